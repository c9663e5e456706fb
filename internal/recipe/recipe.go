package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is the upstream recipe identifier. The recipe service emits integers,
// but string ids are accepted too; each is echoed in the form it arrived in.
type ID struct {
	value   string
	numeric bool
}

// NumberID returns the id for an integer upstream value.
func NumberID(n int64) ID { return ID{value: strconv.FormatInt(n, 10), numeric: true} }

// StringID returns the id for a string upstream value.
func StringID(s string) ID { return ID{value: s} }

func (id *ID) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("failed to decode recipe id: %w", err)
	}
	switch val := v.(type) {
	case json.Number:
		*id = ID{value: val.String(), numeric: true}
	case string:
		*id = StringID(val)
	case nil:
		*id = ID{}
	default:
		return fmt.Errorf("unsupported recipe id %s", string(data))
	}
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.value), nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(id.value); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (id ID) String() string { return id.value }

// Recipe is the flattened view of an upstream record used in prompts.
type Recipe struct {
	ID       ID       `json:"id"`
	Title    string   `json:"title"`
	Symptoms []string `json:"symptoms"`
}

// Clone returns a deep copy so callers can't mutate a store entry.
func (r Recipe) Clone() Recipe {
	r.Symptoms = append([]string(nil), r.Symptoms...)
	return r
}
