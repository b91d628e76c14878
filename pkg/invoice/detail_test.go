package invoice

import (
	"encoding/base64"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
	"nbmst": "0101234567", "khmshdon": 1, "khhdon": "C24TAA", "shdon": 123,
	"nbten": "CONG TY A", "nmten": "CONG TY B", "tdlap": "2024-03-05T00:00:00Z",
	"tgtcthue": 1000000, "tgtthue": 100000, "tgtttbso": "1100000",
	"hdhhdvu": [{"stt": 1, "ten": "Dich vu", "sluong": 2, "dgia": 500000, "tsuat": "10%", "thtien": 1000000}],
	"thttltsuat": [{"tsuat": "10%", "thtien": 1000000, "tthue": 100000}],
	"extra": {"kept": true}
}`

func TestDecode(t *testing.T) {
	d, err := Decode([]byte(samplePayload))
	require.NoError(t, err)

	assert.Equal(t, Text("0101234567"), d.SellerTaxID)
	assert.Equal(t, Text("1"), d.TemplateCode)
	assert.Equal(t, Text("123"), d.Number)
	assert.Equal(t, "CONG TY A", d.SellerName.String())
	assert.True(t, decimal.NewFromInt(1100000).Equal(d.Total))
	require.Len(t, d.Items, 1)
	assert.True(t, decimal.NewFromInt(2).Equal(d.Items[0].Quantity))
	assert.Equal(t, Text("10%"), d.TaxSummary[0].TaxRate)
	assert.Equal(t, Identifier{SellerTaxID: "0101234567", TemplateCode: "1", SeriesCode: "C24TAA", Number: "123"}, d.Identifier())
	assert.Contains(t, string(d.Raw), `"kept": true`)

	issued, ok := d.IssueDate()
	require.True(t, ok)
	assert.Equal(t, 2024, issued.Year())
}

func TestDecodeRejectsEmptyOrMalformed(t *testing.T) {
	for _, body := range []string{"", "  ", "null", "<html>", `{"nbmst":`} {
		_, err := Decode([]byte(body))
		assert.Error(t, err, body)
	}
}

func TestDecodeKeepsOddPayloads(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		kind    Kind
		check   func(t *testing.T, d *Detail)
		warning bool
	}{
		{
			name: "empty amount",
			body: `{"tgtttbso":""}`,
			kind: KindJSON,
			check: func(t *testing.T, d *Detail) {
				assert.True(t, d.Total.IsZero())
			},
		},
		{
			name: "xml object falls back to json",
			body: `{"xml":{"inner":"x"},"pdfUrl":"https://x/y.pdf"}`,
			kind: KindRemotePDF,
			check: func(t *testing.T, d *Detail) {
				assert.Empty(t, d.XML)
			},
		},
		{
			name: "comma decimal quantity",
			body: `{"hdhhdvu":[{"sluong":"1,5","dgia":"1.000.000","ten":"A"}]}`,
			kind: KindJSON,
			check: func(t *testing.T, d *Detail) {
				require.Len(t, d.Items, 1)
				assert.True(t, decimal.RequireFromString("1.5").Equal(d.Items[0].Quantity))
				assert.True(t, decimal.NewFromInt(1000000).Equal(d.Items[0].UnitPrice))
				assert.Equal(t, Text("A"), d.Items[0].Name)
			},
		},
		{
			name: "numeric qrcode",
			body: `{"qrcode":123}`,
			kind: KindJSON,
			check: func(t *testing.T, d *Detail) {
				assert.Equal(t, Text("123"), d.QRCode)
			},
		},
		{
			name:    "array body",
			body:    `[{"nbmst":"1"}]`,
			kind:    KindJSON,
			warning: true,
		},
		{
			name: "unreadable field keeps the rest",
			body: `{"tgtttbso":"abc","nbten":"CONG TY A","thttltsuat":"none"}`,
			kind: KindJSON,
			check: func(t *testing.T, d *Detail) {
				assert.True(t, d.Total.IsZero())
				assert.Equal(t, Text("CONG TY A"), d.SellerName)
				assert.Empty(t, d.TaxSummary)
			},
			warning: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Decode([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, d.Kind())
			assert.JSONEq(t, tt.body, string(d.Raw))
			if tt.warning {
				assert.NotEmpty(t, d.Warnings)
			} else {
				assert.Empty(t, d.Warnings)
			}
			if tt.check != nil {
				tt.check(t, d)
			}

			out, err := d.PrettyJSON()
			require.NoError(t, err)
			assert.JSONEq(t, tt.body, string(out))
		})
	}
}

func TestDecodeInlineXML(t *testing.T) {
	d, err := Decode([]byte(`{"xml":"<?xml version=\"1.0\"?><HDon/>","pdfUrl":"https://x/y.pdf"}`))
	require.NoError(t, err)
	assert.Equal(t, KindXML, d.Kind())
	assert.Equal(t, `<?xml version="1.0"?><HDon/>`, d.XML)
}

func TestKindPrecedence(t *testing.T) {
	tests := []struct {
		name   string
		detail Detail
		want   Kind
	}{
		{"xml wins over pdf", Detail{XML: "<?xml", PDFURL: "https://x/y.pdf"}, KindXML},
		{"pdf url", Detail{PDFURL: "https://x/y.pdf"}, KindRemotePDF},
		{"neither", Detail{}, KindJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.detail.Kind())
		})
	}
	assert.Equal(t, "xml", KindXML.Extension())
	assert.Equal(t, "pdf", KindRemotePDF.Extension())
	assert.Equal(t, "json", KindJSON.Extension())
}

func TestXMLContent(t *testing.T) {
	plain := `<?xml version="1.0"?><HDon/>`

	d := Detail{XML: plain}
	got, err := d.XMLContent()
	require.NoError(t, err)
	assert.Equal(t, plain, string(got))

	d = Detail{XML: base64.StdEncoding.EncodeToString([]byte(plain))}
	got, err = d.XMLContent()
	require.NoError(t, err)
	assert.Equal(t, plain, string(got))

	d = Detail{XML: "%%% not base64"}
	_, err = d.XMLContent()
	assert.Error(t, err)
}

func TestPrettyJSON(t *testing.T) {
	d, err := Decode([]byte(`{"nbmst":"1","shdon":2}`))
	require.NoError(t, err)

	out, err := d.PrettyJSON()
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"nbmst\": \"1\",\n  \"shdon\": 2\n}", string(out))
}

func TestTextAcceptsNumbersAndNull(t *testing.T) {
	d, err := Decode([]byte(`{"nbmst": null, "shdon": 42, "nbsdthoai": "0243"}`))
	require.NoError(t, err)
	assert.Equal(t, Text(""), d.SellerTaxID)
	assert.Equal(t, Text("42"), d.Number)
	assert.Equal(t, Text("0243"), d.SellerPhone)

	d, err = Decode([]byte(`{"shdon": true}`))
	require.NoError(t, err)
	assert.Equal(t, Text(""), d.Number)
	require.Len(t, d.Warnings, 1)
	assert.Contains(t, d.Warnings[0], "shdon")
}
