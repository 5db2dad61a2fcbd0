package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

// recognizedKeys are the top-level keys a purchase order payload can
// carry. A located object must mention at least one of them to win over
// incidental JSON embedded in the surrounding prose.
var recognizedKeys = []string{
	"order_number", "order_date", "expiry_date",
	"customer", "vendor", "line_items",
	"tax_lines", "discount", "shipping_cost", "grand_total",
}

// ParseRecord locates a JSON payload in the model's free-text response
// and decodes it leniently into a PurchaseOrderRecord. The model may
// wrap the payload in code fences or prose; if no JSON can be located at
// all, the error is a *ParseError carrying the full raw text. Parsing is
// pure: the same input always yields an identical record.
func ParseRecord(raw string) (*PurchaseOrderRecord, error) {
	text := stripCodeBlock(raw)

	if rec, ok := decodeCandidate(text); ok {
		return rec, nil
	}

	var fallback *PurchaseOrderRecord
	for i := 0; i < len(text); i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		candidate, end, ok := balancedSlice(text, i)
		if !ok {
			continue
		}
		if rec, ok := decodeCandidate(candidate); ok {
			return rec, nil
		}
		if json.Valid([]byte(candidate)) {
			if fallback == nil {
				if rec, ok := decodeAnyObject(candidate); ok {
					fallback = rec
				}
			}
			i = end
		}
		// Balanced but not valid JSON: keep scanning inside it, a real
		// payload may be nested in brace-laden prose.
	}
	if fallback != nil {
		return fallback, nil
	}

	return nil, &ParseError{Raw: raw}
}

// decodeCandidate accepts an object naming at least one recognized key,
// or a bare array treated as the line-item table.
func decodeCandidate(s string) (*PurchaseOrderRecord, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	switch s[0] {
	case '{':
		var keys map[string]json.RawMessage
		if err := json.Unmarshal([]byte(s), &keys); err != nil {
			return nil, false
		}
		known := false
		for _, k := range recognizedKeys {
			if _, ok := keys[k]; ok {
				known = true
				break
			}
		}
		if !known {
			return nil, false
		}
		return decodeRecord(s)
	case '[':
		var items []LineItem
		if err := json.Unmarshal([]byte(s), &items); err != nil {
			return nil, false
		}
		rec := &PurchaseOrderRecord{LineItems: items}
		rec.Normalize()
		return rec, true
	default:
		return nil, false
	}
}

// decodeAnyObject is the fallback for responses whose only JSON object
// carries none of the expected keys: it still decodes to an all-missing
// record rather than discarding the extraction.
func decodeAnyObject(s string) (*PurchaseOrderRecord, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s[0] != '{' {
		return nil, false
	}
	if !json.Valid([]byte(s)) {
		return nil, false
	}
	return decodeRecord(s)
}

func decodeRecord(s string) (*PurchaseOrderRecord, bool) {
	var rec PurchaseOrderRecord
	if err := json.Unmarshal([]byte(s), &rec); err != nil {
		return nil, false
	}
	rec.Normalize()
	return &rec, true
}

// balancedSlice returns the balanced JSON value starting at start,
// honoring string literals and escapes. end is the index of the closing
// delimiter.
func balancedSlice(s string, start int) (string, int, bool) {
	open := s[start]
	var closing byte
	switch open {
	case '{':
		closing = '}'
	case '[':
		closing = ']'
	default:
		return "", 0, false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return s[start : i+1], i, true
			}
		}
	}
	return "", 0, false
}
