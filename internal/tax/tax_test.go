package tax_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/papertrail/internal/domain"
	"github.com/dukerupert/papertrail/internal/tax"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func item(qty int, unit, discount string) domain.LineItem {
	return domain.LineItem{
		Description: "line",
		Quantity:    qty,
		UnitPrice:   d(unit),
		Discount:    d(discount),
	}
}

// Two items at 18%: 2x100 and 1x50 less 10 -> 200 + 40 = 240, tax 43.20.
func Test_Calculate_WorkedExample(t *testing.T) {
	result, err := tax.Calculate([]domain.LineItem{
		item(2, "100", "0"),
		item(1, "50", "10"),
	}, d("18"))

	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.True(t, d("200").Equal(result.Items[0].Total))
	assert.True(t, d("40").Equal(result.Items[1].Total))
	assert.True(t, d("240").Equal(result.Subtotal))
	assert.True(t, d("43.20").Equal(result.TaxAmount))
	assert.True(t, d("283.20").Equal(result.Total))
}

func Test_Calculate_Rounding(t *testing.T) {
	tests := []struct {
		name        string
		items       []domain.LineItem
		rate        string
		expectedTax string
		explanation string
	}{
		{
			name:        "half rounds up",
			items:       []domain.LineItem{item(1, "0.25", "0")},
			rate:        "10",
			expectedTax: "0.03",
			explanation: "0.025 rounds half-up to 0.03",
		},
		{
			name:        "below half rounds down",
			items:       []domain.LineItem{item(1, "0.24", "0")},
			rate:        "10",
			expectedTax: "0.02",
			explanation: "0.024 rounds to 0.02",
		},
		{
			name:        "zero rate",
			items:       []domain.LineItem{item(3, "99.99", "0")},
			rate:        "0",
			expectedTax: "0",
			explanation: "no tax at 0%",
		},
		{
			name:        "fractional rate",
			items:       []domain.LineItem{item(1, "1000", "0")},
			rate:        "12.5",
			expectedTax: "125",
			explanation: "1000 * 12.5% = 125",
		},
		{
			name:        "full rate",
			items:       []domain.LineItem{item(1, "19.99", "0")},
			rate:        "100",
			expectedTax: "19.99",
			explanation: "100% doubles the subtotal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tax.Calculate(tt.items, d(tt.rate))
			require.NoError(t, err)
			assert.True(t, d(tt.expectedTax).Equal(result.TaxAmount),
				"%s: got %s", tt.explanation, result.TaxAmount)
		})
	}
}

func Test_Calculate_TotalsAreConsistent(t *testing.T) {
	items := []domain.LineItem{
		item(3, "33.33", "0.01"),
		item(7, "14.29", "2.50"),
		item(1, "0.01", "0"),
	}

	for rate := 0; rate <= 100; rate += 7 {
		result, err := tax.Calculate(items, decimal.NewFromInt(int64(rate)))
		require.NoError(t, err)

		sum := decimal.Zero
		for _, it := range result.Items {
			sum = sum.Add(it.Total)
		}
		assert.True(t, sum.Equal(result.Subtotal), "rate %d: subtotal equals sum of lines", rate)
		assert.True(t, result.Subtotal.Add(result.TaxAmount).Equal(result.Total), "rate %d: total = subtotal + tax", rate)
		assert.LessOrEqual(t, -result.TaxAmount.Exponent(), int32(tax.Places))
	}
}

func Test_Calculate_Deterministic(t *testing.T) {
	items := []domain.LineItem{item(2, "10.10", "1"), item(5, "3.33", "0")}

	first, err := tax.Calculate(items, d("18"))
	require.NoError(t, err)
	second, err := tax.Calculate(items, d("18"))
	require.NoError(t, err)

	assert.Equal(t, first.Subtotal.String(), second.Subtotal.String())
	assert.Equal(t, first.TaxAmount.String(), second.TaxAmount.String())
	assert.Equal(t, first.Total.String(), second.Total.String())
	for i := range first.Items {
		assert.Equal(t, first.Items[i].Total.String(), second.Items[i].Total.String())
	}
	assert.True(t, items[0].Total.IsZero(), "input slice must not be modified")
}

func Test_Calculate_PreservesOrder(t *testing.T) {
	items := []domain.LineItem{item(1, "1", "0"), item(1, "2", "0"), item(1, "3", "0")}
	items[0].Description, items[1].Description, items[2].Description = "a", "b", "c"

	result, err := tax.Calculate(items, d("18"))
	require.NoError(t, err)

	assert.Equal(t, "a", result.Items[0].Description)
	assert.Equal(t, "b", result.Items[1].Description)
	assert.Equal(t, "c", result.Items[2].Description)
}

func Test_Calculate_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		items []domain.LineItem
		rate  string
		want  error
	}{
		{name: "no items", items: nil, rate: "18", want: domain.ErrNoLineItems},
		{name: "negative rate", items: []domain.LineItem{item(1, "1", "0")}, rate: "-1", want: domain.ErrInvalidTaxRate},
		{name: "rate above 100", items: []domain.LineItem{item(1, "1", "0")}, rate: "100.01", want: domain.ErrInvalidTaxRate},
		{name: "discount exceeds line", items: []domain.LineItem{item(1, "10", "10.01")}, rate: "18", want: domain.ErrNegativeLineTotal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tax.Calculate(tt.items, d(tt.rate))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func Test_Calculate_InvalidItems(t *testing.T) {
	tests := []struct {
		name string
		item domain.LineItem
	}{
		{name: "zero quantity", item: item(0, "10", "0")},
		{name: "negative unit price", item: item(1, "-1", "0")},
		{name: "negative discount", item: item(1, "10", "-1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tax.Calculate([]domain.LineItem{tt.item}, d("18"))
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
		})
	}
}

func Test_Calculate_DiscountEqualToLineIsZero(t *testing.T) {
	result, err := tax.Calculate([]domain.LineItem{item(2, "5", "10")}, d("18"))
	require.NoError(t, err)
	assert.True(t, result.Total.IsZero())
}
