package portal

import (
	"fmt"
	"net/url"

	"hdexport/pkg/invoice"
)

const (
	// DetailURL is the invoice detail endpoint
	DetailURL = "https://hoadondientu.gdt.gov.vn:30000/query/invoices/detail"

	// ActionHeader and EndpointHeader mirror what the portal UI sends
	ActionHeader   = "In hoa don (hoa don mua vao)"
	EndpointHeader = "/tra-cuu/tra-cuu-hoa-don"
)

// DetailQueryURL builds the detail request URL for an invoice
func DetailQueryURL(base string, id invoice.Identifier) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse detail url: %w", err)
	}
	q := u.Query()
	q.Set("nbmst", id.SellerTaxID)
	q.Set("khhdon", id.SeriesCode)
	q.Set("shdon", id.Number)
	q.Set("khmshdon", id.TemplateCode)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
