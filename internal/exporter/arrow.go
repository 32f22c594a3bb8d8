package exporter

import (
	"fmt"
	"os"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"salesclean/pkg/contracts/domain"
)

var timestampType = &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: "UTC"}

// ArrowSchema returns the Arrow schema of the cleaned table. Categorical
// columns are dictionary arrays with int8 indices.
func ArrowSchema(metadata map[string]string) *arrow.Schema {
	fields := domain.Fields()
	out := make([]arrow.Field, len(fields))
	for i, f := range fields {
		out[i] = arrow.Field{Name: f.Name, Type: arrowType(f.Kind)}
	}

	var md *arrow.Metadata
	if len(metadata) > 0 {
		keys := make([]string, 0, len(metadata))
		for k := range metadata {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		values := make([]string, len(keys))
		for i, k := range keys {
			values[i] = metadata[k]
		}
		m := arrow.NewMetadata(keys, values)
		md = &m
	}
	return arrow.NewSchema(out, md)
}

func arrowType(k domain.Kind) arrow.DataType {
	switch k {
	case domain.KindEnum:
		return &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int8, ValueType: arrow.BinaryTypes.String}
	case domain.KindInt:
		return arrow.PrimitiveTypes.Int64
	case domain.KindFloat:
		return arrow.PrimitiveTypes.Float64
	case domain.KindTimestamp:
		return timestampType
	default:
		return arrow.BinaryTypes.String
	}
}

// WriteArrow writes records as a single-batch Arrow IPC file (Feather v2)
// with zstd-compressed buffers. Each dictionary holds the full permitted value
// set of its column, whether or not every value occurs.
func WriteArrow(path string, records []domain.Transaction, metadata map[string]string) error {
	mem := memory.NewGoAllocator()
	schema := ArrowSchema(metadata)

	fields := domain.Fields()
	columns := make([]arrow.Array, len(fields))
	defer func() {
		for _, c := range columns {
			if c != nil {
				c.Release()
			}
		}
	}()
	for i, f := range fields {
		col, err := buildArrowColumn(mem, f, records)
		if err != nil {
			return fmt.Errorf("column %s: %w", f.Name, err)
		}
		columns[i] = col
	}

	rec := array.NewRecord(schema, columns, int64(len(records)))
	defer rec.Release()

	return writeAtomic(path, func(tmp string) error {
		file, err := os.Create(tmp)
		if err != nil {
			return fmt.Errorf("failed to create arrow file: %w", err)
		}
		defer file.Close()

		w, err := ipc.NewFileWriter(file, ipc.WithSchema(schema), ipc.WithAllocator(mem), ipc.WithZstd())
		if err != nil {
			return fmt.Errorf("failed to create arrow writer: %w", err)
		}
		if err := w.Write(rec); err != nil {
			w.Close()
			return fmt.Errorf("failed to write arrow record: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("failed to finish arrow file: %w", err)
		}
		return file.Close()
	})
}

func buildArrowColumn(mem memory.Allocator, f domain.Field, records []domain.Transaction) (arrow.Array, error) {
	switch f.Kind {
	case domain.KindEnum:
		dictBuilder := array.NewStringBuilder(mem)
		defer dictBuilder.Release()
		dictBuilder.AppendValues(f.Levels, nil)
		dict := dictBuilder.NewArray()
		defer dict.Release()

		idx := array.NewInt8Builder(mem)
		defer idx.Release()
		for i := range records {
			code := slices.Index(f.Levels, f.Text(&records[i]))
			if code < 0 {
				return nil, fmt.Errorf("value %q outside the permitted set", f.Text(&records[i]))
			}
			idx.Append(int8(code))
		}
		indices := idx.NewArray()
		defer indices.Release()
		return array.NewDictionaryArray(arrowType(f.Kind), indices, dict), nil

	case domain.KindInt:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for i := range records {
			b.Append(f.Value(&records[i]).(int64))
		}
		return b.NewArray(), nil

	case domain.KindFloat:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		for i := range records {
			b.Append(f.Value(&records[i]).(float64))
		}
		return b.NewArray(), nil

	case domain.KindTimestamp:
		b := array.NewTimestampBuilder(mem, timestampType)
		defer b.Release()
		for i := range records {
			b.Append(arrow.Timestamp(records[i].Timestamp.UnixMilli()))
		}
		return b.NewArray(), nil

	default:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		for i := range records {
			b.Append(f.Text(&records[i]))
		}
		return b.NewArray(), nil
	}
}

// ReadArrow reads a file written by WriteArrow.
func ReadArrow(path string) ([]domain.Transaction, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open arrow file: %w", err)
	}
	defer file.Close()

	r, err := ipc.NewFileReader(file, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("failed to open arrow reader: %w", err)
	}
	defer r.Close()

	var records []domain.Transaction
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read record batch %d: %w", i, err)
		}
		batch, err := transactionsFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("record batch %d: %w", i, err)
		}
		records = append(records, batch...)
	}
	return records, nil
}

func transactionsFromRecord(rec arrow.Record) ([]domain.Transaction, error) {
	out := make([]domain.Transaction, rec.NumRows())
	schema := rec.Schema()

	for c, af := range schema.Fields() {
		f, ok := domain.LookupField(af.Name)
		if !ok {
			return nil, fmt.Errorf("unknown column %q", af.Name)
		}
		col := rec.Column(c)

		for i := range out {
			if f.Kind == domain.KindTimestamp {
				ts, ok := col.(*array.Timestamp)
				if !ok {
					return nil, fmt.Errorf("column %s is %s, not a timestamp", f.Name, col.DataType())
				}
				out[i].Timestamp = ts.Value(i).ToTime(arrow.Millisecond)
				continue
			}

			text, err := arrowText(col, i)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", f.Name, err)
			}
			if err := f.Parse(&out[i], text); err != nil {
				return nil, fmt.Errorf("column %s row %d: %w", f.Name, i+1, err)
			}
		}
	}
	return out, nil
}

func arrowText(col arrow.Array, i int) (string, error) {
	switch c := col.(type) {
	case *array.Dictionary:
		dict, ok := c.Dictionary().(*array.String)
		if !ok {
			return "", fmt.Errorf("dictionary of type %s", c.Dictionary().DataType())
		}
		return dict.Value(c.GetValueIndex(i)), nil
	case *array.String:
		return c.Value(i), nil
	case *array.Int64:
		return c.ValueStr(i), nil
	case *array.Float64:
		return formatFloat(c.Value(i)), nil
	default:
		return "", fmt.Errorf("unsupported arrow type %s", col.DataType())
	}
}
