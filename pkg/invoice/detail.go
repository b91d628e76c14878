package invoice

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind tells which artifact a detail payload produces
type Kind int

const (
	KindJSON Kind = iota
	KindXML
	KindRemotePDF
)

func (k Kind) String() string {
	switch k {
	case KindXML:
		return "xml"
	case KindRemotePDF:
		return "pdf"
	default:
		return "json"
	}
}

// Extension is the file extension of the artifact
func (k Kind) Extension() string {
	return k.String()
}

// LineItem is one goods or service row (hdhhdvu)
type LineItem struct {
	Ordinal   json.Number     `json:"stt"`
	Name      Text            `json:"ten"`
	Unit      Text            `json:"dvtinh"`
	Quantity  decimal.Decimal `json:"sluong"`
	UnitPrice decimal.Decimal `json:"dgia"`
	TaxRate   Text            `json:"tsuat"`
	Amount    decimal.Decimal `json:"thtien"`
	TaxAmount decimal.Decimal `json:"tthue"`
	Discount  decimal.Decimal `json:"stckhau"`
}

// TaxSummary is one per-rate total (thttltsuat)
type TaxSummary struct {
	TaxRate   Text            `json:"tsuat"`
	Amount    decimal.Decimal `json:"thtien"`
	TaxAmount decimal.Decimal `json:"tthue"`
}

// Detail is the invoice detail payload returned by the portal. The payload
// is opaque: Raw keeps it as received, XML and PDFURL drive the artifact
// choice, and the remaining fields are a best-effort view for printing.
type Detail struct {
	SellerTaxID  Text `json:"nbmst"`
	TemplateCode Text `json:"khmshdon"`
	SeriesCode   Text `json:"khhdon"`
	Number       Text `json:"shdon"`
	LookupCode   Text `json:"mhdon"`
	IssuedAt     Text `json:"tdlap"`

	SellerName    Text `json:"nbten"`
	SellerAddress Text `json:"nbdchi"`
	SellerPhone   Text `json:"nbsdthoai"`
	SellerAccount Text `json:"nbstkhoan"`
	SellerBank    Text `json:"nbtnhang"`

	BuyerTaxID   Text `json:"nmmst"`
	BuyerName    Text `json:"nmten"`
	BuyerAddress Text `json:"nmdchi"`

	PaymentMethod Text `json:"thtttoan"`

	TotalBeforeTax decimal.Decimal `json:"tgtcthue"`
	TotalTax       decimal.Decimal `json:"tgtthue"`
	Total          decimal.Decimal `json:"tgtttbso"`
	TotalInWords   Text            `json:"tgtttbchu"`

	Items      []LineItem   `json:"-"`
	TaxSummary []TaxSummary `json:"-"`
	QRCode     Text         `json:"qrcode"`

	// XML is set only when the payload carries xml as a JSON string
	XML    string `json:"-"`
	PDFURL string `json:"-"`

	Raw json.RawMessage `json:"-"`
	// Warnings lists print fields that could not be read
	Warnings []string `json:"-"`
}

// Decode keeps a payload as the detail of one invoice. Only empty or
// malformed JSON is an error; unreadable print fields end up in Warnings.
func Decode(data []byte) (*Detail, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("invoice detail: empty payload")
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("invoice detail: malformed JSON")
	}

	d := &Detail{Raw: append(json.RawMessage(nil), trimmed...)}
	if trimmed[0] != '{' {
		d.warn("payload", fmt.Errorf("not a JSON object"))
		return d, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		d.warn("payload", err)
		return d, nil
	}

	d.XML = stringField(fields["xml"])
	d.PDFURL = stringField(fields["pdfUrl"])

	for key, raw := range fields {
		switch key {
		case "hdhhdvu":
			for i, elem := range elements(d, key, raw) {
				var item LineItem
				d.decodeObject(fmt.Sprintf("%s[%d]", key, i), elem, &item)
				d.Items = append(d.Items, item)
			}
		case "thttltsuat":
			for i, elem := range elements(d, key, raw) {
				var rate TaxSummary
				d.decodeObject(fmt.Sprintf("%s[%d]", key, i), elem, &rate)
				d.TaxSummary = append(d.TaxSummary, rate)
			}
		default:
			d.decodeField(key, key, raw, d)
		}
	}
	sort.Strings(d.Warnings)
	return d, nil
}

func (d *Detail) warn(field string, err error) {
	d.Warnings = append(d.Warnings, fmt.Sprintf("%s: %v", field, err))
}

// decodeObject fills target one key at a time so a bad value only loses
// its own field
func (d *Detail) decodeObject(path string, raw json.RawMessage, target interface{}) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		d.warn(path, err)
		return
	}
	for key, value := range fields {
		d.decodeField(path+"."+key, key, value, target)
	}
}

func (d *Detail) decodeField(path, key string, raw json.RawMessage, target interface{}) {
	err := unmarshalKey(key, raw, target)
	if err == nil {
		return
	}
	// Amounts sometimes arrive as "", "1,5" or "1.000.000"
	if s, ok := amountLiteral(raw); ok {
		if unmarshalKey(key, s, target) == nil {
			return
		}
	}
	d.warn(path, err)
}

func unmarshalKey(key string, raw json.RawMessage, target interface{}) error {
	name, err := json.Marshal(key)
	if err != nil {
		return err
	}
	doc := make([]byte, 0, len(name)+len(raw)+3)
	doc = append(doc, '{')
	doc = append(doc, name...)
	doc = append(doc, ':')
	doc = append(doc, raw...)
	doc = append(doc, '}')
	return json.Unmarshal(doc, target)
}

func elements(d *Detail, key string, raw json.RawMessage) []json.RawMessage {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		d.warn(key, err)
		return nil
	}
	return list
}

func stringField(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// amountLiteral rewrites a quoted amount in Vietnamese notation as a
// plain decimal literal. An empty string becomes null.
func amountLiteral(raw json.RawMessage) (json.RawMessage, bool) {
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return nil, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return json.RawMessage("null"), true
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	if _, err := decimal.NewFromString(s); err != nil {
		return nil, false
	}
	return json.RawMessage(strconv.Quote(s)), true
}

// Kind reports which single artifact this payload produces: inline XML
// first, then a remote PDF, then the JSON payload itself.
func (d *Detail) Kind() Kind {
	switch {
	case d.XML != "":
		return KindXML
	case d.PDFURL != "":
		return KindRemotePDF
	default:
		return KindJSON
	}
}

// XMLContent returns the inline XML. Content that does not start with an
// XML declaration is treated as base64.
func (d *Detail) XMLContent() ([]byte, error) {
	if strings.HasPrefix(d.XML, "<?xml") {
		return []byte(d.XML), nil
	}
	out, err := base64.StdEncoding.DecodeString(strings.TrimSpace(d.XML))
	if err != nil {
		return nil, fmt.Errorf("decode inline xml: %w", err)
	}
	return out, nil
}

// PrettyJSON renders the raw payload with two space indentation
func (d *Detail) PrettyJSON() ([]byte, error) {
	raw := d.Raw
	if len(raw) == 0 {
		var err error
		if raw, err = json.Marshal(d); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("indent invoice detail: %w", err)
	}
	return buf.Bytes(), nil
}

// Identifier returns the identifier carried by the payload
func (d *Detail) Identifier() Identifier {
	return Identifier{
		SellerTaxID:  string(d.SellerTaxID),
		TemplateCode: string(d.TemplateCode),
		SeriesCode:   string(d.SeriesCode),
		Number:       string(d.Number),
	}
}

var issueLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// IssueDate parses tdlap
func (d *Detail) IssueDate() (time.Time, bool) {
	for _, layout := range issueLayouts {
		if t, err := time.Parse(layout, string(d.IssuedAt)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
