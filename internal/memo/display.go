package memo

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// displayString decodes a JSON string, number or boolean into display text.
// Numbers keep their literal form. Null decodes to "".
type displayString string

func (d *displayString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*d = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = displayString(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		if b {
			*d = "true"
		} else {
			*d = "false"
		}
		return nil
	case '{', '[':
		return eris.New("expected a scalar value")
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*d = displayString(n.String())
		return nil
	}
}
