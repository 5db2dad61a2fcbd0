package extract

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FieldStatus tags whether a field was extracted, absent, or present but
// unusable. The zero value is Missing so keys the model never emitted
// decode correctly without any extra handling.
type FieldStatus int

const (
	FieldMissing FieldStatus = iota
	FieldPresent
	FieldInvalid
)

func (s FieldStatus) String() string {
	switch s {
	case FieldPresent:
		return "present"
	case FieldInvalid:
		return "invalid"
	default:
		return "missing"
	}
}

// TextField is a string-valued field that keeps "never extracted"
// distinguishable from "extracted as empty". Invalid carries the raw
// token so nothing the model said is discarded.
type TextField struct {
	Status FieldStatus
	Value  string
	Raw    string
}

// Text builds a present TextField.
func Text(v string) TextField {
	return TextField{Status: FieldPresent, Value: v}
}

func (f *TextField) UnmarshalJSON(b []byte) error {
	token := strings.TrimSpace(string(b))
	if token == "null" {
		*f = TextField{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = TextField{Status: FieldPresent, Value: s}
		return nil
	}
	// Scalars like bare numbers or booleans still read fine as text.
	if len(token) > 0 && token[0] != '{' && token[0] != '[' {
		*f = TextField{Status: FieldPresent, Value: token}
		return nil
	}
	*f = TextField{Status: FieldInvalid, Raw: token}
	return nil
}

// MarshalJSON emits the value for present fields, null for missing ones,
// and an {"invalid":true,"raw":...} object for flagged fields, so a
// serialized record round-trips without losing the flags.
func (f TextField) MarshalJSON() ([]byte, error) {
	switch f.Status {
	case FieldPresent:
		return json.Marshal(f.Value)
	case FieldInvalid:
		return json.Marshal(map[string]any{"invalid": true, "raw": f.Raw})
	default:
		return []byte("null"), nil
	}
}

// NumberField is a numeric field with the same tagging. Strings that
// carry formatting ("$1,299.50") are coerced; anything that does not
// parse as a number degrades to Invalid instead of failing the record.
type NumberField struct {
	Status FieldStatus
	Value  float64
	Raw    string
}

// Number builds a present NumberField.
func Number(v float64) NumberField {
	return NumberField{Status: FieldPresent, Value: v}
}

func (f *NumberField) UnmarshalJSON(b []byte) error {
	token := strings.TrimSpace(string(b))
	if token == "null" {
		*f = NumberField{}
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = NumberField{Status: FieldPresent, Value: n}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if v, ok := parseNumeric(s); ok {
			*f = NumberField{Status: FieldPresent, Value: v, Raw: s}
			return nil
		}
		// An empty string has no text of its own; keep the JSON token
		// so the flag always carries what the model actually emitted.
		if s == "" {
			s = token
		}
		*f = NumberField{Status: FieldInvalid, Raw: s}
		return nil
	}
	*f = NumberField{Status: FieldInvalid, Raw: token}
	return nil
}

func (f NumberField) MarshalJSON() ([]byte, error) {
	switch f.Status {
	case FieldPresent:
		return json.Marshal(f.Value)
	case FieldInvalid:
		return json.Marshal(map[string]any{"invalid": true, "raw": f.Raw})
	default:
		return []byte("null"), nil
	}
}

// parseNumeric strips currency symbols, grouping commas, and surrounding
// whitespace before parsing. The upstream prompt asks the model to keep
// original formatting, so "$1,200.00" is an expected shape.
func parseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$€£₹¥ ")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
