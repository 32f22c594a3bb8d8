package domain

import (
	"time"
)

// Transaction represents one retail sale after cleaning.
// Categorical attributes are stored as enum codes, not free text.
type Transaction struct {
	InvoiceID      string       `json:"invoice_id" validate:"required"`
	Branch         Branch       `json:"branch"`
	City           City         `json:"city"`
	CustomerType   CustomerType `json:"customer_type"`
	Gender         Gender       `json:"gender"`
	ProductLine    ProductLine  `json:"product_line"`
	UnitPrice      float64      `json:"unit_price" validate:"gt=0"`
	Quantity       int64        `json:"quantity" validate:"gt=0"`
	Tax            float64      `json:"tax_5pct" validate:"gte=0"`
	Sales          float64      `json:"sales" validate:"gte=0"`
	Payment        Payment      `json:"payment"`
	COGS           float64      `json:"cogs" validate:"gte=0"`
	GrossMarginPct float64      `json:"gross_margin_pct" validate:"gte=0,lte=100"`
	GrossIncome    float64      `json:"gross_income"`
	Rating         float64      `json:"rating" validate:"gte=0,lte=10"`
	Timestamp      time.Time    `json:"transaction_timestamp"`
}

// ExpectedSales returns the sales total implied by the financial identity
// sales = cogs + tax.
func (t *Transaction) ExpectedSales() float64 {
	return t.COGS + t.Tax
}

// ExpectedGrossMarginPct is the constant gross margin of the dataset:
// tax / sales with a 5% tax rate, i.e. 5/105 as a percentage.
const ExpectedGrossMarginPct = 100.0 * 5.0 / 105.0

// TimestampLayout is the textual form of a transaction timestamp in
// text-based outputs (xlsx, csv).
const TimestampLayout = "2006-01-02 15:04:05"
