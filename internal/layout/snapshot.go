package layout

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gowebpki/jcs"

	"github.com/feral-file/ff-editions/internal/domain"
)

// Snapshot is the version-tagged persisted form of one edition record
type Snapshot struct {
	Version Version                    `json:"version"`
	Fields  map[string]json.RawMessage `json:"fields"`
}

type editionCodec struct {
	get func(e *domain.Edition) any
	set func(e *domain.Edition, raw json.RawMessage) error
}

var editionCodecs = map[string]editionCodec{
	"fundingRecipient": addressCodec(func(e *domain.Edition) *common.Address { return &e.FundingRecipient }),
	"price": {
		get: func(e *domain.Edition) any {
			if e.Price == nil {
				return "0"
			}
			return e.Price.String()
		},
		set: func(e *domain.Edition, raw json.RawMessage) error {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return err
			}
			price, ok := new(big.Int).SetString(s, 10)
			if !ok || price.Sign() < 0 {
				return fmt.Errorf("invalid price %q", s)
			}
			e.Price = price
			return nil
		},
	},
	"numSold":              uint32Codec(func(e *domain.Edition) *uint32 { return &e.NumSold }),
	"quantity":             uint32Codec(func(e *domain.Edition) *uint32 { return &e.Quantity }),
	"royaltyBPS":           uint32Codec(func(e *domain.Edition) *uint32 { return &e.RoyaltyBPS }),
	"startTime":            uint32Codec(func(e *domain.Edition) *uint32 { return &e.StartTime }),
	"endTime":              uint32Codec(func(e *domain.Edition) *uint32 { return &e.EndTime }),
	"permissionedQuantity": uint32Codec(func(e *domain.Edition) *uint32 { return &e.PermissionedQuantity }),
	"signerAddress":        addressCodec(func(e *domain.Edition) *common.Address { return &e.SignerAddress }),
	"baseURI": {
		get: func(e *domain.Edition) any { return e.BaseURI },
		set: func(e *domain.Edition, raw json.RawMessage) error {
			return json.Unmarshal(raw, &e.BaseURI)
		},
	},
}

func uint32Codec(field func(e *domain.Edition) *uint32) editionCodec {
	return editionCodec{
		get: func(e *domain.Edition) any { return *field(e) },
		set: func(e *domain.Edition, raw json.RawMessage) error {
			return json.Unmarshal(raw, field(e))
		},
	}
}

func addressCodec(field func(e *domain.Edition) *common.Address) editionCodec {
	return editionCodec{
		get: func(e *domain.Edition) any { return field(e).Hex() },
		set: func(e *domain.Edition, raw json.RawMessage) error {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return err
			}
			if !common.IsHexAddress(s) {
				return fmt.Errorf("invalid address %q", s)
			}
			*field(e) = common.HexToAddress(s)
			return nil
		},
	}
}

// EncodeEdition returns the canonical (RFC 8785) bytes of the fields an
// edition stores under version v
func EncodeEdition(v Version, e *domain.Edition) ([]byte, error) {
	l, err := Get(v)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]any, len(l.Edition))
	for _, field := range l.Edition {
		codec, ok := editionCodecs[field.Name]
		if !ok {
			return nil, fmt.Errorf("no codec for edition field %s", field.Name)
		}
		fields[field.Name] = codec.get(e)
	}

	raw, err := json.Marshal(map[string]any{
		"version": v,
		"fields":  fields,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal edition snapshot: %w", err)
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize edition snapshot: %w", err)
	}
	return canonical, nil
}

// DecodeEdition reads a snapshot written at any version up to v.
// Fields the snapshot's version did not declare keep their zero value.
func DecodeEdition(v Version, data []byte) (*domain.Edition, error) {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal edition snapshot: %w", err)
	}
	if snapshot.Version > v {
		return nil, fmt.Errorf("snapshot v%d is newer than reader v%d", snapshot.Version, v)
	}
	l, err := Get(snapshot.Version)
	if err != nil {
		return nil, err
	}

	declared := make(map[string]bool, len(l.Edition))
	for _, field := range l.Edition {
		declared[field.Name] = true
	}

	e := &domain.Edition{Price: new(big.Int), LayoutVersion: uint8(snapshot.Version)}
	for name, raw := range snapshot.Fields {
		if !declared[name] {
			return nil, fmt.Errorf("field %s is not declared in layout v%d", name, snapshot.Version)
		}
		if err := editionCodecs[name].set(e, raw); err != nil {
			return nil, fmt.Errorf("failed to decode field %s: %w", name, err)
		}
	}
	return e, nil
}

// MigrateEdition rewrites a snapshot from one version to a newer one.
// Appended fields take their zero value and existing fields are untouched.
func MigrateEdition(data []byte, from, to Version) ([]byte, error) {
	if err := CheckUpgrade(from, to); err != nil {
		return nil, err
	}
	e, err := DecodeEdition(from, data)
	if err != nil {
		return nil, err
	}
	if Version(e.LayoutVersion) != from {
		return nil, fmt.Errorf("snapshot is v%d, expected v%d", e.LayoutVersion, from)
	}
	return EncodeEdition(to, e)
}
