package extract

// Party is the customer or vendor block of a purchase order.
type Party struct {
	Name    TextField `json:"name"`
	Address TextField `json:"address"`
	Contact TextField `json:"contact"`
}

// LineItem is one row of the purchase order's item table.
type LineItem struct {
	Description TextField   `json:"description"`
	Quantity    NumberField `json:"quantity"`
	UnitPrice   NumberField `json:"unit_price"`
	LineTotal   NumberField `json:"line_total"`
}

// TaxLine is one entry of the tax breakdown (advanced mode).
type TaxLine struct {
	Label  TextField   `json:"label"`
	Amount NumberField `json:"amount"`
}

// PurchaseOrderRecord is the structured result of one extraction run.
// Every scalar is a tagged field; the line-item table is always a
// non-nil slice, possibly empty.
type PurchaseOrderRecord struct {
	OrderNumber TextField `json:"order_number"`
	OrderDate   TextField `json:"order_date"`
	ExpiryDate  TextField `json:"expiry_date"`

	Customer Party `json:"customer"`
	Vendor   Party `json:"vendor"`

	LineItems []LineItem `json:"line_items"`

	// Advanced-mode fields. Decoded leniently like everything else;
	// missing in basic-mode responses.
	TaxLines     []TaxLine   `json:"tax_lines"`
	Discount     NumberField `json:"discount"`
	ShippingCost NumberField `json:"shipping_cost"`
	GrandTotal   NumberField `json:"grand_total"`
}

// Normalize enforces the record invariants after a lenient decode:
// tables are present as empty sequences, never absent.
func (r *PurchaseOrderRecord) Normalize() {
	if r.LineItems == nil {
		r.LineItems = []LineItem{}
	}
	if r.TaxLines == nil {
		r.TaxLines = []TaxLine{}
	}
}
