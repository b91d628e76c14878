package invoice

import (
	"bytes"
	"encoding/json"
)

// Text is a string field the portal sometimes sends as a JSON number.
// Numbers keep their literal form and null decodes to "".
type Text string

// UnmarshalJSON accepts a string, a number or null
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*t = Text(n.String())
		return nil
	}
}

func (t Text) String() string {
	return string(t)
}
