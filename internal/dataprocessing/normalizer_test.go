package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesclean/internal/contract"
	apperrors "salesclean/internal/errors"
	"salesclean/internal/shared/testutil"
)

func defaultContract(t *testing.T) *contract.Contract {
	t.Helper()
	c, err := contract.Default()
	require.NoError(t, err)
	return c
}

func rawFixture(n int) *RawTable {
	return &RawTable{
		Source: "fixture.csv",
		Header: append([]string(nil), testutil.SalesHeader...),
		Rows:   testutil.SalesRows(n),
	}
}

func TestCleanString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Member", "Member"},
		{"  Member  ", "Member"},
		{"Health\tand  beauty", "Health and beauty"},
		{"Credit card", "Credit card"},
		{"　Cash　", "Cash"},
		{"Ｅｗａｌｌｅｔ", "Ewallet"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanString(tt.in), "input %q", tt.in)
	}
}

func TestNormalizerValue(t *testing.T) {
	n := NewNormalizer(defaultContract(t))

	tests := []struct {
		header string
		in     string
		want   string
		mapped bool
	}{
		{"Customer type", "Member", "M", true},
		{"Customer type", "Normal", "N", true},
		{"Customer type", " Member ", "M", true},
		{"Customer type", "M", "M", true},
		{"Customer type", "N", "N", true},
		{"Gender", "Female", "F", true},
		{"Gender", "Male", "M", true},
		{"Gender", "F", "F", true},
		{"Gender", "Other", "Other", false},
		{"Customer type", "VIP", "VIP", false},
		// Columns without mappings pass through after cleanup.
		{"Branch", "  Giza ", "Giza", true},
		{"City", "Atlantis", "Atlantis", true},
	}
	for _, tt := range tests {
		got, mapped := n.Value(tt.header, tt.in)
		assert.Equal(t, tt.want, got, "%s=%q", tt.header, tt.in)
		assert.Equal(t, tt.mapped, mapped, "%s=%q", tt.header, tt.in)
	}
}

func TestNormalizerIdempotent(t *testing.T) {
	n := NewNormalizer(defaultContract(t))

	for _, header := range []string{"Customer type", "Gender", "Payment", "Product line"} {
		for _, in := range []string{"Member", "Normal", "Female", "Male", "M", "N", "F", " Cash", "Food  and beverages", "unknown"} {
			once, _ := n.Value(header, in)
			twice, _ := n.Value(header, once)
			assert.Equal(t, once, twice, "%s=%q", header, in)
		}
	}

	raw := rawFixture(20)
	first, _ := n.Normalize(raw)
	second, warnings := n.Normalize(first)
	assert.Equal(t, first.Rows, second.Rows)
	assert.Empty(t, warnings)
}

func TestNormalize(t *testing.T) {
	n := NewNormalizer(defaultContract(t))

	raw := rawFixture(4)
	gender := testutil.SalesColumn("Gender")
	customer := testutil.SalesColumn("Customer type")
	branch := testutil.SalesColumn("Branch")
	raw.Rows[1][gender] = "Unknown"
	raw.Rows[2][branch] = "  Cairo\t"
	raw.Rows[3][customer] = "  Normal  "

	out, warnings := n.Normalize(raw)

	// The input table is left untouched.
	assert.Equal(t, "Unknown", raw.Rows[1][gender])
	assert.Equal(t, "  Cairo\t", raw.Rows[2][branch])

	assert.Equal(t, "Unknown", out.Rows[1][gender])
	assert.Equal(t, "Cairo", out.Rows[2][branch])
	assert.Equal(t, "N", out.Rows[3][customer])
	for _, row := range out.Rows {
		assert.Contains(t, []string{"M", "N"}, row[customer])
	}

	require.Len(t, warnings, 1)
	w := warnings[0]
	assert.Equal(t, apperrors.ErrTypeValidationWarning, w.Type)
	assert.Equal(t, apperrors.RuleUnmappedValue, w.Rule)
	assert.Equal(t, StageNormalize, w.Stage)
	assert.Equal(t, 2, w.Row)
	assert.Equal(t, "gender", w.Column)
	assert.Equal(t, "Unknown", w.Actual)
	assert.Equal(t, out.Rows[1][testutil.SalesColumn("Invoice ID")], w.RecordID)
	assert.False(t, w.Fatal())
}
