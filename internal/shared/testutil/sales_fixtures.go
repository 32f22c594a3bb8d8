package testutil

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

// SalesHeader is the header row of the raw supermarket sales file, in the
// order the original export uses.
var SalesHeader = []string{
	"Invoice ID", "Branch", "City", "Customer type", "Gender", "Product line",
	"Unit price", "Quantity", "Tax 5%", "Sales", "Date", "Time", "Payment",
	"cogs", "gross margin percentage", "gross income", "Rating",
}

var (
	fixtureBranches     = []string{"Alex", "Giza", "Cairo"}
	fixtureCities       = []string{"Yangon", "Naypyitaw", "Mandalay"}
	fixtureCustomers    = []string{"Member", "Normal"}
	fixtureGenders      = []string{"Female", "Male"}
	fixturePayments     = []string{"Ewallet", "Cash", "Credit card"}
	fixtureProductLines = []string{
		"Health and beauty", "Electronic accessories", "Home and lifestyle",
		"Sports and travel", "Food and beverages", "Fashion accessories",
	}
)

// SalesRow returns the i-th deterministic raw row. Every generated row is
// valid: categorical values use the long labels of the raw file, Date and
// Time follow the raw layout and sales equals cogs + tax to four decimals.
func SalesRow(i int) []string {
	unitPrice := 10 + float64(i%90) + float64(i%4)*0.25
	quantity := int64(1 + i%10)
	cogs := round(unitPrice*float64(quantity), 2)
	tax := round(cogs*0.05, 4)
	sales := round(cogs+tax, 4)

	ts := time.Date(2019, time.Month(1+i%3), 1+i%28, 10+i%11, i%60, 0, 0, time.UTC)

	return []string{
		fmt.Sprintf("%03d-%02d-%04d", 100+i%900, i%100, i%10000),
		fixtureBranches[i%len(fixtureBranches)],
		fixtureCities[i%len(fixtureCities)],
		fixtureCustomers[i%len(fixtureCustomers)],
		fixtureGenders[(i/2)%len(fixtureGenders)],
		fixtureProductLines[i%len(fixtureProductLines)],
		formatFloat(unitPrice),
		strconv.FormatInt(quantity, 10),
		formatFloat(tax),
		formatFloat(sales),
		ts.Format("1/2/2006"),
		ts.Format("3:04:05 PM"),
		fixturePayments[i%len(fixturePayments)],
		formatFloat(cogs),
		"4.761904762",
		formatFloat(tax),
		strconv.FormatFloat(float64(i%91)/10, 'f', 1, 64),
	}
}

// SalesRows returns n deterministic raw rows.
func SalesRows(n int) [][]string {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = SalesRow(i)
	}
	return rows
}

// WriteSalesCSV writes header and rows to name inside dir and returns the
// path.
func WriteSalesCSV(t *testing.T, dir, name string, header []string, rows [][]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create fixture %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		t.Fatalf("failed to write fixture header: %v", err)
	}
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("failed to write fixture rows: %v", err)
	}
	return path
}

// WriteValidSalesCSV writes n generated rows with the standard header.
func WriteValidSalesCSV(t *testing.T, dir string, n int) string {
	t.Helper()
	return WriteSalesCSV(t, dir, "SuperMarketAnalysis.csv", SalesHeader, SalesRows(n))
}

// SalesColumn returns the position of a raw header in SalesHeader.
func SalesColumn(header string) int {
	for i, h := range SalesHeader {
		if h == header {
			return i
		}
	}
	panic("unknown sales header " + header)
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
