package domain

import "errors"

var (
	// ErrUnauthorized is returned when the caller lacks the required role
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidConfig is returned when edition or instance parameters are malformed
	ErrInvalidConfig = errors.New("invalid config")

	// ErrNotFound is returned for an unknown artist, edition or token
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEdition is returned when a caller-supplied edition id already exists
	ErrDuplicateEdition = errors.New("duplicate edition")

	// ErrDuplicateArtist is returned when the factory already deployed an instance with the same arguments
	ErrDuplicateArtist = errors.New("duplicate artist")

	// ErrNotStarted is returned when buying before the edition start time
	ErrNotStarted = errors.New("auction hasn't started")

	// ErrEnded is returned when buying after the edition end time
	ErrEnded = errors.New("auction has ended")

	// ErrSoldOut is returned when a bounded edition has no tokens left
	ErrSoldOut = errors.New("this edition is already sold out")

	// ErrInvalidSignature is returned when a presale or authorization signature does not verify
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrTicketAlreadyUsed is returned when a presale ticket was consumed before
	ErrTicketAlreadyUsed = errors.New("invalid ticket number or NFT already claimed")

	// ErrInsufficientPayment is returned when the payment is below the edition price
	ErrInsufficientPayment = errors.New("must send enough to purchase the edition")

	// ErrInvalidIdentity is returned when an edition id or serial number does not fit the token id encoding
	ErrInvalidIdentity = errors.New("invalid token identity")
)
