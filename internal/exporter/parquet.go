package exporter

import (
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"salesclean/pkg/contracts/domain"
)

// parquetRow is the on-disk layout of a transaction. Categorical columns are
// dictionary-encoded strings carrying the ENUM logical type, so readers see
// the short code or label rather than an opaque integer.
type parquetRow struct {
	InvoiceID      string    `parquet:"invoice_id"`
	Branch         string    `parquet:"branch,enum,dict"`
	City           string    `parquet:"city,enum,dict"`
	CustomerType   string    `parquet:"customer_type,enum,dict"`
	Gender         string    `parquet:"gender,enum,dict"`
	ProductLine    string    `parquet:"product_line,enum,dict"`
	UnitPrice      float64   `parquet:"unit_price"`
	Quantity       int64     `parquet:"quantity"`
	Tax            float64   `parquet:"tax_5pct"`
	Sales          float64   `parquet:"sales"`
	Payment        string    `parquet:"payment,enum,dict"`
	COGS           float64   `parquet:"cogs"`
	GrossMarginPct float64   `parquet:"gross_margin_pct"`
	GrossIncome    float64   `parquet:"gross_income"`
	Rating         float64   `parquet:"rating"`
	Timestamp      time.Time `parquet:"transaction_timestamp,timestamp(millisecond)"`
}

func toParquetRow(t *domain.Transaction) parquetRow {
	return parquetRow{
		InvoiceID:      t.InvoiceID,
		Branch:         t.Branch.String(),
		City:           t.City.String(),
		CustomerType:   t.CustomerType.String(),
		Gender:         t.Gender.String(),
		ProductLine:    t.ProductLine.String(),
		UnitPrice:      t.UnitPrice,
		Quantity:       t.Quantity,
		Tax:            t.Tax,
		Sales:          t.Sales,
		Payment:        t.Payment.String(),
		COGS:           t.COGS,
		GrossMarginPct: t.GrossMarginPct,
		GrossIncome:    t.GrossIncome,
		Rating:         t.Rating,
		Timestamp:      t.Timestamp.UTC(),
	}
}

func (r *parquetRow) transaction() (domain.Transaction, error) {
	t := domain.Transaction{
		InvoiceID:      r.InvoiceID,
		UnitPrice:      r.UnitPrice,
		Quantity:       r.Quantity,
		Tax:            r.Tax,
		Sales:          r.Sales,
		COGS:           r.COGS,
		GrossMarginPct: r.GrossMarginPct,
		GrossIncome:    r.GrossIncome,
		Rating:         r.Rating,
		Timestamp:      r.Timestamp.UTC(),
	}

	var err error
	if t.Branch, err = domain.ParseBranch(r.Branch); err != nil {
		return t, err
	}
	if t.City, err = domain.ParseCity(r.City); err != nil {
		return t, err
	}
	if t.CustomerType, err = domain.ParseCustomerType(r.CustomerType); err != nil {
		return t, err
	}
	if t.Gender, err = domain.ParseGender(r.Gender); err != nil {
		return t, err
	}
	if t.ProductLine, err = domain.ParseProductLine(r.ProductLine); err != nil {
		return t, err
	}
	if t.Payment, err = domain.ParsePayment(r.Payment); err != nil {
		return t, err
	}
	return t, nil
}

// WriteParquet writes records as a zstd-compressed Parquet file. Every
// key/value pair in metadata is stored in the file footer.
func WriteParquet(path string, records []domain.Transaction, metadata map[string]string) error {
	rows := make([]parquetRow, len(records))
	for i := range records {
		rows[i] = toParquetRow(&records[i])
	}

	options := []parquet.WriterOption{
		parquet.Compression(&parquet.Zstd),
		parquet.CreatedBy("salesclean", "", ""),
	}
	for k, v := range metadata {
		options = append(options, parquet.KeyValueMetadata(k, v))
	}

	return writeAtomic(path, func(tmp string) error {
		if err := parquet.WriteFile(tmp, rows, options...); err != nil {
			return fmt.Errorf("failed to write parquet: %w", err)
		}
		return nil
	})
}

// ReadParquet reads a file written by WriteParquet.
func ReadParquet(path string) ([]domain.Transaction, error) {
	rows, err := parquet.ReadFile[parquetRow](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet: %w", err)
	}

	records := make([]domain.Transaction, len(rows))
	for i := range rows {
		rec, err := rows[i].transaction()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		records[i] = rec
	}
	return records, nil
}
