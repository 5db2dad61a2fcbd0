package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/poextract/internal/raster"
)

// Mode selects the field set the model is asked to extract.
type Mode string

const (
	ModeBasic    Mode = "basic"
	ModeAdvanced Mode = "advanced"
)

// ParseMode validates a user-supplied mode string. Empty means basic.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeBasic):
		return ModeBasic, nil
	case string(ModeAdvanced):
		return ModeAdvanced, nil
	default:
		return "", fmt.Errorf("unknown extraction mode: %q", s)
	}
}

// basicFields are the JSON keys requested in every run. advancedFields
// extend them, so the advanced field set is a strict superset.
var basicFields = []string{
	"order_number",
	"order_date",
	"expiry_date",
	"customer.name",
	"customer.address",
	"customer.contact",
	"vendor.name",
	"vendor.address",
	"vendor.contact",
	"line_items.description",
	"line_items.quantity",
	"line_items.unit_price",
}

var advancedFields = []string{
	"line_items.line_total",
	"tax_lines",
	"discount",
	"shipping_cost",
	"grand_total",
}

// Fields returns the JSON keys for a mode.
func Fields(mode Mode) []string {
	if mode == ModeAdvanced {
		out := make([]string, 0, len(basicFields)+len(advancedFields))
		out = append(out, basicFields...)
		out = append(out, advancedFields...)
		return out
	}
	return append([]string(nil), basicFields...)
}

const instructionHeader = `You are an expert document extraction system specializing in purchase orders.
The user message contains a purchase order converted from PDF pages to images, in page order.
Extract the following fields into a single JSON object:`

const instructionRules = `Rules:
- If a field is not present in the document, use null for that field
- "line_items" must always be a JSON array, empty if the document has no item table
- For numerical values, preserve the original format (including currency symbols if present)
- Handle different purchase order layouts and formatting anomalies
- Respond with ONLY the JSON object, no additional explanation`

// Instruction builds the schema instruction for a mode. The text
// enumerates exactly the field keys of that mode.
func Instruction(mode Mode) string {
	var sb strings.Builder
	sb.WriteString(instructionHeader)
	sb.WriteString("\n\n")
	for _, f := range Fields(mode) {
		sb.WriteString("- ")
		sb.WriteString(f)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(instructionRules)
	return sb.String()
}

// ErrNoPages rejects a request built from an empty page sequence.
var ErrNoPages = errors.New("extraction request requires at least one page image")

// Request bundles the rendered pages with the schema instruction for a
// single upstream call. Pure assembly: building one performs no I/O.
type Request struct {
	Pages       []raster.PageImage
	Instruction string
	Mode        Mode
}

func NewRequest(pages []raster.PageImage, mode Mode) (*Request, error) {
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	return &Request{
		Pages:       pages,
		Instruction: Instruction(mode),
		Mode:        mode,
	}, nil
}
