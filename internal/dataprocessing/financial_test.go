package dataprocessing

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "salesclean/internal/errors"
	"salesclean/pkg/contracts/domain"
)

func TestIsClose(t *testing.T) {
	tol := DefaultTolerance()

	tests := []struct {
		name     string
		actual   float64
		expected float64
		want     bool
	}{
		{"equal", 548.9715, 548.9715, true},
		{"float rounding", 0.1 + 0.2, 0.3, true},
		{"within relative", 1000.005, 1000, true},
		{"outside relative", 1000.02, 1000, false},
		{"one cent off small sale", 10.51, 10.5, false},
		{"tiny absolute around zero", 5e-9, 0, true},
		{"absolute around zero exceeded", 1e-7, 0, false},
		{"nan", math.NaN(), 1, false},
		{"inf", math.Inf(1), 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsClose(tt.actual, tt.expected, tol))
		})
	}

	t.Run("custom tolerance", func(t *testing.T) {
		loose := Tolerance{Absolute: 0.01}
		assert.True(t, IsClose(10.505, 10.5, loose))
		assert.False(t, IsClose(10.52, 10.5, loose))
	})
}

func TestValidateFinancials(t *testing.T) {
	records := []domain.Transaction{
		{InvoiceID: "750-67-8428", COGS: 522.83, Tax: 26.1415, Sales: 548.9715},
		{InvoiceID: "226-31-3081", COGS: 76.4, Tax: 3.82, Sales: 80.22},
		{InvoiceID: "631-41-3108", COGS: 324.31, Tax: 16.2155, Sales: 350},
		{InvoiceID: "123-19-1176", COGS: 465.76, Tax: 23.288, Sales: 489.048},
		{InvoiceID: "373-73-7910", COGS: 604.17, Tax: 30.2085, Sales: 0},
	}

	res := ValidateFinancials(records, DefaultTolerance())

	assert.Equal(t, 5, res.Checked)
	assert.False(t, res.Conforming())
	assert.Equal(t, []string{"631-41-3108", "373-73-7910"}, res.NonConforming)
	require.Len(t, res.Warnings, 2)

	w := res.Warnings[0]
	assert.Equal(t, apperrors.RuleFinancialIdentity, w.Rule)
	assert.Equal(t, StageFinancial, w.Stage)
	assert.Equal(t, 3, w.Row)
	assert.Equal(t, "631-41-3108", w.RecordID)
	assert.Equal(t, "sales", w.Column)
	expected, err := strconv.ParseFloat(w.Expected, 64)
	require.NoError(t, err)
	assert.InDelta(t, 340.5255, expected, 1e-9)
	assert.Equal(t, "350", w.Actual)
	assert.False(t, w.Fatal())

	assert.Equal(t, 5, res.Warnings[1].Row)
}

func TestValidateFinancialsEmpty(t *testing.T) {
	res := ValidateFinancials(nil, DefaultTolerance())
	assert.True(t, res.Conforming())
	assert.Zero(t, res.Checked)
	assert.Empty(t, res.Warnings)
}
