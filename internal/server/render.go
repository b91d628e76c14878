package server

import (
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"hdexport/pkg/invoice"
	"hdexport/pkg/printer"
)

const qrEndpoint = "https://api.qrserver.com/v1/create-qr-code/?size=80x80&data="

type dateParts struct {
	Day   string
	Month string
	Year  string
}

type lineRow struct {
	Index     int
	Name      string
	Unit      string
	Quantity  string
	UnitPrice string
	Discount  string
	TaxRate   string
	Amount    string
}

type rateRow struct {
	TaxRate   string
	Amount    string
	TaxAmount string
}

// invoicePage is the view model of the A4 layout
type invoicePage struct {
	TemplateCode string
	SeriesCode   string
	Number       string
	LookupCode   string
	Date         dateParts
	SignedAt     string
	QRURL        string

	Detail *invoice.Detail
	Items  []lineRow
	Rates  []rateRow

	PreTax    string
	Tax       string
	Total     string
	TotalText string
	PrintedAt string
}

// formatAmount groups digits the Vietnamese way, e.g. 1.234.567,5
func formatAmount(p *message.Printer, d decimal.Decimal) string {
	return p.Sprint(number.Decimal(d.InexactFloat64(), number.MaxFractionDigits(3)))
}

func pick(primary invoice.Text, fallback string) string {
	if primary != "" {
		return primary.String()
	}
	return fallback
}

// buildPage maps a session entry to the layout. Header codes fall back to
// the identifier when the payload omits them.
func buildPage(e printer.Entry, now time.Time) invoicePage {
	p := message.NewPrinter(language.Vietnamese)
	d := e.Data
	if d == nil {
		d = &invoice.Detail{}
	}

	page := invoicePage{
		TemplateCode: pick(d.TemplateCode, e.Invoice.TemplateCode),
		SeriesCode:   pick(d.SeriesCode, e.Invoice.SeriesCode),
		Number:       pick(d.Number, e.Invoice.Number),
		LookupCode:   d.LookupCode.String(),
		Detail:       d,
		PreTax:       formatAmount(p, d.TotalBeforeTax),
		Tax:          formatAmount(p, d.TotalTax),
		Total:        formatAmount(p, d.Total),
		TotalText:    d.TotalInWords.String(),
		PrintedAt:    now.Format("02/01/2006 15:04:05"),
	}

	if t, ok := d.IssueDate(); ok {
		page.Date = dateParts{
			Day:   t.Format("02"),
			Month: t.Format("01"),
			Year:  t.Format("2006"),
		}
		page.SignedAt = t.UTC().Format("2006-01-02T15:04:05")
	}
	if d.QRCode != "" {
		page.QRURL = qrEndpoint + url.QueryEscape(d.QRCode.String())
	}

	for i, item := range d.Items {
		page.Items = append(page.Items, lineRow{
			Index:     i + 1,
			Name:      item.Name.String(),
			Unit:      item.Unit.String(),
			Quantity:  formatAmount(p, item.Quantity),
			UnitPrice: formatAmount(p, item.UnitPrice),
			Discount:  formatAmount(p, item.Discount),
			TaxRate:   item.TaxRate.String(),
			Amount:    formatAmount(p, item.Amount),
		})
	}
	for _, rate := range d.TaxSummary {
		page.Rates = append(page.Rates, rateRow{
			TaxRate:   rate.TaxRate.String(),
			Amount:    formatAmount(p, rate.Amount),
			TaxAmount: formatAmount(p, rate.TaxAmount),
		})
	}
	return page
}
