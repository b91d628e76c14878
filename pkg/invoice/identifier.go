// Package invoice holds the invoice identifier parsed from the portal table
// and the detail payload returned by the portal API.
package invoice

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRowKey is returned for a table row key with fewer than five
// underscore separated parts.
var ErrInvalidRowKey = errors.New("invalid row key")

const rowKeyParts = 5

// Identifier is the tuple that addresses one invoice on the portal
type Identifier struct {
	SellerTaxID  string `json:"nbmst"`
	TemplateCode string `json:"khmshdon"`
	SeriesCode   string `json:"khhdon"`
	Number       string `json:"shdon"`
}

// ParseRowKey splits a table row key on "_". The first part is discarded
// and parts one to four become the identifier. Parts after the fifth are
// ignored.
func ParseRowKey(key string) (Identifier, error) {
	parts := strings.Split(key, "_")
	if len(parts) < rowKeyParts {
		return Identifier{}, fmt.Errorf("%w: %q has %d parts", ErrInvalidRowKey, key, len(parts))
	}
	return Identifier{
		SellerTaxID:  parts[1],
		TemplateCode: parts[2],
		SeriesCode:   parts[3],
		Number:       parts[4],
	}, nil
}

// ParseRowKeys parses every key, returning the identifiers in order and the
// keys that were rejected.
func ParseRowKeys(keys []string) (ids []Identifier, rejected []string) {
	for _, key := range keys {
		id, err := ParseRowKey(key)
		if err != nil {
			rejected = append(rejected, key)
			continue
		}
		ids = append(ids, id)
	}
	return ids, rejected
}

// Filename is the artifact name for the given extension
func (id Identifier) Filename(ext string) string {
	return fmt.Sprintf("HoaDon_%s_%s.%s", id.SellerTaxID, id.Number, strings.TrimPrefix(ext, "."))
}

// PrintFilename is the name of the captured print PDF
func (id Identifier) PrintFilename() string {
	return fmt.Sprintf("HoaDon_%s_%s_Print.pdf", id.SellerTaxID, id.Number)
}

// PrintKey is the session store key for the print view
func (id Identifier) PrintKey() string {
	return fmt.Sprintf("print_invoice_%s_%s_%s_%s", id.SellerTaxID, id.TemplateCode, id.SeriesCode, id.Number)
}

// String renders the identifier for logs
func (id Identifier) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", id.SellerTaxID, id.TemplateCode, id.SeriesCode, id.Number)
}
