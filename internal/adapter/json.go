package adapter

import (
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// JSON encodes broker payloads. Payloads are canonicalized (RFC 8785) so the same
// event always produces the same bytes, whichever process relays it.
type JSON interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// CanonicalJSON implements JSON with encoding/json followed by JCS canonicalization
type CanonicalJSON struct{}

// NewJSON creates a canonical JSON codec
func NewJSON() JSON {
	return &CanonicalJSON{}
}

func (j *CanonicalJSON) Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize: %w", err)
	}
	return canonical, nil
}

func (j *CanonicalJSON) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
