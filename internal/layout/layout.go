package layout

import (
	"fmt"
)

// Version is an implementation version of the artist instance
type Version uint8

const (
	V1 Version = iota + 1
	V2
	V3
	V4
	V5

	// Latest is the newest implementation version
	Latest = V5
)

// Kind is the storage type of a field
type Kind string

const (
	KindAddress Kind = "address"
	KindUint32  Kind = "uint32"
	KindUint64  Kind = "uint64"
	KindUint256 Kind = "uint256"
	KindString  Kind = "string"
	KindMapping Kind = "mapping"
)

// Field is one declared storage slot
type Field struct {
	Name string
	Kind Kind
}

// Layout is the ordered storage declaration of one version
type Layout struct {
	Version Version
	// Edition lists the per-edition fields in declaration order
	Edition []Field
	// Artist lists the per-instance fields in declaration order
	Artist []Field
}

// Features are the behaviors an implementation version enables.
// A zero-valued field of an older record always means the feature is off.
type Features struct {
	// Presale enables signature-gated permissioned quantities and tickets
	Presale bool
	// PackedTokenIDs mints editionId<<128|serial instead of sequential ids
	PackedTokenIDs bool
	// OpenEditions lets quantity 0 mean unbounded supply
	OpenEditions bool
	// ExplicitEditionIDs lets callers choose edition ids
	ExplicitEditionIDs bool
	// EditionBaseURI enables per-edition metadata URIs
	EditionBaseURI bool
	// AdminRoles lets the owner delegate edition configuration
	AdminRoles bool
	// OwnerOverride lets the platform recovery address reassign ownership
	OwnerOverride bool
}

// appended lists the fields each version adds on top of its predecessor
var appended = map[Version]Layout{
	V1: {
		Edition: []Field{
			{Name: "fundingRecipient", Kind: KindAddress},
			{Name: "price", Kind: KindUint256},
			{Name: "numSold", Kind: KindUint32},
			{Name: "quantity", Kind: KindUint32},
			{Name: "royaltyBPS", Kind: KindUint32},
			{Name: "startTime", Kind: KindUint32},
			{Name: "endTime", Kind: KindUint32},
		},
		Artist: []Field{
			{Name: "owner", Kind: KindAddress},
			{Name: "baseURI", Kind: KindString},
			{Name: "editions", Kind: KindMapping},
			{Name: "editionCount", Kind: KindUint64},
			{Name: "tokenCount", Kind: KindUint64},
			{Name: "tokenToEdition", Kind: KindMapping},
		},
	},
	V2: {
		Edition: []Field{
			{Name: "permissionedQuantity", Kind: KindUint32},
			{Name: "signerAddress", Kind: KindAddress},
		},
		Artist: []Field{
			{Name: "ticketNumbers", Kind: KindMapping},
		},
	},
	V3: {},
	V4: {},
	V5: {
		Edition: []Field{
			{Name: "baseURI", Kind: KindString},
		},
		Artist: []Field{
			{Name: "roles", Kind: KindMapping},
		},
	},
}

// Valid reports whether v is a known version
func (v Version) Valid() bool {
	return v >= V1 && v <= Latest
}

// Features returns the behaviors enabled at v
func (v Version) Features() Features {
	return Features{
		Presale:            v >= V2,
		PackedTokenIDs:     v >= V3,
		OpenEditions:       v >= V4,
		ExplicitEditionIDs: v >= V5,
		EditionBaseURI:     v >= V5,
		AdminRoles:         v >= V5,
		OwnerOverride:      v >= V5,
	}
}

// Get returns the cumulative layout of v
func Get(v Version) (Layout, error) {
	if !v.Valid() {
		return Layout{}, fmt.Errorf("unknown layout version %d", v)
	}

	l := Layout{Version: v}
	for version := V1; version <= v; version++ {
		l.Edition = append(l.Edition, appended[version].Edition...)
		l.Artist = append(l.Artist, appended[version].Artist...)
	}
	return l, nil
}

// CheckUpgrade verifies that moving storage from one version to another only
// appends fields: nothing is removed, reordered or retyped.
func CheckUpgrade(from, to Version) error {
	if to < from {
		return fmt.Errorf("downgrade from v%d to v%d is not allowed", from, to)
	}
	oldLayout, err := Get(from)
	if err != nil {
		return err
	}
	newLayout, err := Get(to)
	if err != nil {
		return err
	}

	return Compatible(oldLayout, newLayout)
}

// Compatible verifies that newLayout keeps every field of oldLayout in place
func Compatible(oldLayout, newLayout Layout) error {
	if err := checkAppendOnly("edition", oldLayout.Edition, newLayout.Edition); err != nil {
		return err
	}
	return checkAppendOnly("artist", oldLayout.Artist, newLayout.Artist)
}

func checkAppendOnly(record string, oldFields, newFields []Field) error {
	if len(newFields) < len(oldFields) {
		return fmt.Errorf("%s layout drops %d fields", record, len(oldFields)-len(newFields))
	}
	for i, field := range oldFields {
		if newFields[i] != field {
			return fmt.Errorf("%s layout slot %d changed from %s %s to %s %s",
				record, i, field.Kind, field.Name, newFields[i].Kind, newFields[i].Name)
		}
	}
	return nil
}
