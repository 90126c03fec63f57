package modelstore

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

type ObjectType uint8

const (
	ObjectModel ObjectType = iota
	ObjectManifest
	ObjectLatest
)

const (
	V1ModelPrefixFmt = "v1/models/%s/"
	V1ModelNameFmt   = "%s.dlf"
	V1ManifestFmt    = "%s.cbor"
	V1LatestName     = "latest"
)

// Slug lower cases name and replaces every run of characters other than
// letters and digits with a single '-'.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ModelPrefix returns the prefix every snapshot of the alphabet is stored
// under.
func ModelPrefix(alphabet string) (string, error) {
	slug := Slug(alphabet)
	if slug == "" {
		return "", ErrNoAlphabet
	}
	return fmt.Sprintf(V1ModelPrefixFmt, slug), nil
}

// ObjectPath returns the path of one object of a snapshot. id is ignored for
// ObjectLatest.
func ObjectPath(alphabet string, id uuid.UUID, otype ObjectType) (string, error) {
	prefix, err := ModelPrefix(alphabet)
	if err != nil {
		return "", err
	}
	switch otype {
	case ObjectModel:
		return prefix + fmt.Sprintf(V1ModelNameFmt, id.String()), nil
	case ObjectManifest:
		return prefix + fmt.Sprintf(V1ManifestFmt, id.String()), nil
	case ObjectLatest:
		return prefix + V1LatestName, nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownObject, otype)
	}
}
