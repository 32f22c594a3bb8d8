package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Output column names, in output order.
const (
	ColInvoiceID      = "invoice_id"
	ColBranch         = "branch"
	ColCity           = "city"
	ColCustomerType   = "customer_type"
	ColGender         = "gender"
	ColProductLine    = "product_line"
	ColUnitPrice      = "unit_price"
	ColQuantity       = "quantity"
	ColTax            = "tax_5pct"
	ColSales          = "sales"
	ColPayment        = "payment"
	ColCOGS           = "cogs"
	ColGrossMarginPct = "gross_margin_pct"
	ColGrossIncome    = "gross_income"
	ColRating         = "rating"
	ColTimestamp      = "transaction_timestamp"
)

// Kind is the semantic type of a column.
type Kind string

const (
	KindString    Kind = "string"
	KindEnum      Kind = "enum"
	KindInt       Kind = "int64"
	KindFloat     Kind = "float64"
	KindTimestamp Kind = "timestamp"
)

// Field describes one output column: its name, its semantic type and how to
// move values in and out of a Transaction. Raw input headers are not part of
// the field; they come from the column contract.
type Field struct {
	Name   string
	Kind   Kind
	Levels []string // permitted values, enum columns only

	get func(*Transaction) any
	set func(*Transaction, string) error
}

// Value returns the typed value of the field. Enum fields return their enum
// type, which implements fmt.Stringer.
func (f Field) Value(t *Transaction) any {
	return f.get(t)
}

// Text returns the canonical text form of the field. Floats use the shortest
// representation that parses back to the identical value.
func (f Field) Text(t *Transaction) string {
	switch v := f.get(t).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case time.Time:
		return v.Format(TimestampLayout)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Parse sets the field on t from its canonical text form.
func (f Field) Parse(t *Transaction, s string) error {
	return f.set(t, s)
}

// Derived reports whether the column is computed from other raw columns
// rather than read directly.
func (f Field) Derived() bool {
	return f.Kind == KindTimestamp
}

var fields = []Field{
	{
		Name: ColInvoiceID, Kind: KindString,
		get: func(t *Transaction) any { return t.InvoiceID },
		set: func(t *Transaction, s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("empty identifier")
			}
			t.InvoiceID = s
			return nil
		},
	},
	{
		Name: ColBranch, Kind: KindEnum, Levels: branchLevels.clone(),
		get: func(t *Transaction) any { return t.Branch },
		set: func(t *Transaction, s string) (err error) { t.Branch, err = ParseBranch(s); return },
	},
	{
		Name: ColCity, Kind: KindEnum, Levels: cityLevels.clone(),
		get: func(t *Transaction) any { return t.City },
		set: func(t *Transaction, s string) (err error) { t.City, err = ParseCity(s); return },
	},
	{
		Name: ColCustomerType, Kind: KindEnum, Levels: customerTypeLevels.clone(),
		get: func(t *Transaction) any { return t.CustomerType },
		set: func(t *Transaction, s string) (err error) { t.CustomerType, err = ParseCustomerType(s); return },
	},
	{
		Name: ColGender, Kind: KindEnum, Levels: genderLevels.clone(),
		get: func(t *Transaction) any { return t.Gender },
		set: func(t *Transaction, s string) (err error) { t.Gender, err = ParseGender(s); return },
	},
	{
		Name: ColProductLine, Kind: KindEnum, Levels: productLineLevels.clone(),
		get: func(t *Transaction) any { return t.ProductLine },
		set: func(t *Transaction, s string) (err error) { t.ProductLine, err = ParseProductLine(s); return },
	},
	{
		Name: ColUnitPrice, Kind: KindFloat,
		get: func(t *Transaction) any { return t.UnitPrice },
		set: func(t *Transaction, s string) (err error) { t.UnitPrice, err = parseFloat(s); return },
	},
	{
		Name: ColQuantity, Kind: KindInt,
		get: func(t *Transaction) any { return t.Quantity },
		set: func(t *Transaction, s string) (err error) { t.Quantity, err = strconv.ParseInt(s, 10, 64); return },
	},
	{
		Name: ColTax, Kind: KindFloat,
		get: func(t *Transaction) any { return t.Tax },
		set: func(t *Transaction, s string) (err error) { t.Tax, err = parseFloat(s); return },
	},
	{
		Name: ColSales, Kind: KindFloat,
		get: func(t *Transaction) any { return t.Sales },
		set: func(t *Transaction, s string) (err error) { t.Sales, err = parseFloat(s); return },
	},
	{
		Name: ColPayment, Kind: KindEnum, Levels: paymentLevels.clone(),
		get: func(t *Transaction) any { return t.Payment },
		set: func(t *Transaction, s string) (err error) { t.Payment, err = ParsePayment(s); return },
	},
	{
		Name: ColCOGS, Kind: KindFloat,
		get: func(t *Transaction) any { return t.COGS },
		set: func(t *Transaction, s string) (err error) { t.COGS, err = parseFloat(s); return },
	},
	{
		Name: ColGrossMarginPct, Kind: KindFloat,
		get: func(t *Transaction) any { return t.GrossMarginPct },
		set: func(t *Transaction, s string) (err error) { t.GrossMarginPct, err = parseFloat(s); return },
	},
	{
		Name: ColGrossIncome, Kind: KindFloat,
		get: func(t *Transaction) any { return t.GrossIncome },
		set: func(t *Transaction, s string) (err error) { t.GrossIncome, err = parseFloat(s); return },
	},
	{
		Name: ColRating, Kind: KindFloat,
		get: func(t *Transaction) any { return t.Rating },
		set: func(t *Transaction, s string) (err error) { t.Rating, err = parseFloat(s); return },
	},
	{
		Name: ColTimestamp, Kind: KindTimestamp,
		get: func(t *Transaction) any { return t.Timestamp },
		set: func(t *Transaction, s string) (err error) { t.Timestamp, err = time.Parse(TimestampLayout, s); return },
	},
}

// Fields returns the output schema in column order.
func Fields() []Field {
	return append([]Field(nil), fields...)
}

// InputFields returns the fields read directly from one raw input column.
func InputFields() []Field {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		if !f.Derived() {
			out = append(out, f)
		}
	}
	return out
}

// LookupField returns the field with the given output column name.
func LookupField(name string) (Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ColumnNames returns the output column names in order.
func ColumnNames() []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}
