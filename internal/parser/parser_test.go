package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pedidos-app/internal/models"
)

func TestParseItemLine(t *testing.T) {
	cases := []struct {
		name string
		in   string
		qty  float64
		unit string
		prod string
	}{
		{"kg before", "2kg tomate", 2, models.UnitKG, "tomate"},
		{"kg spelled out", "3 kilos papa", 3, models.UnitKG, "papa"},
		{"standalone k", "2 k cebolla", 2, models.UnitKG, "cebolla"},
		{"decimal dot", "1.5kg zanahoria", 1.5, models.UnitKG, "zanahoria"},
		{"decimal comma", "1,5kg zanahoria", 1.5, models.UnitKG, "zanahoria"},
		{"half kilo", "medio kilo manzana", 0.5, models.UnitKG, "manzana"},
		{"media variant", "media kilo manzana", 0.5, models.UnitKG, "manzana"},
		{"grams", "500g queso", 0.5, models.UnitKG, "queso"},
		{"gr abbreviation", "250 gr jamon", 0.25, models.UnitKG, "jamon"},
		{"explicit units", "3 unidades palta", 3, models.UnitUnit, "palta"},
		{"uni abbreviation", "2 uni lechuga", 2, models.UnitUnit, "lechuga"},
		{"bare number is count", "8 mangos", 8, models.UnitUnit, "mangos"},
		{"qty after name kg", "tomate 2kg", 2, models.UnitKG, "tomate"},
		{"qty after name grams", "queso 500g", 0.5, models.UnitKG, "queso"},
		{"qty after half", "manzana medio kilo", 0.5, models.UnitKG, "manzana"},
		{"qty after bare number", "mangos 8", 8, models.UnitUnit, "mangos"},
		{"de filler", "2kg de tomate", 2, models.UnitKG, "tomate"},
		{"accents normalized", "1kg limón", 1, models.UnitKG, "limon"},
		{"trailing comma", "2kg tomate,", 2, models.UnitKG, "tomate"},
		{"no quantity falls back", "cilantro", 1, models.UnitUnit, "cilantro"},
		{"multiword name", "2kg tomate cherry", 2, models.UnitKG, "tomate cherry"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := parseItemLine(tc.in)
			assert.InDelta(t, tc.qty, item.Qty, 1e-9)
			assert.Equal(t, tc.unit, item.Unit)
			assert.Equal(t, tc.prod, item.ProductName)
			assert.Equal(t, tc.in, item.RawText)
		})
	}
}

func TestParseOrderTextCustomers(t *testing.T) {
	text := "Zulma:\n2kg tomate\n- 8 mangos\n\nAna:\n# nota interna\nmedio kilo manzana\n"
	res := ParseOrderText(text)

	require.Len(t, res.Items, 3)
	assert.Equal(t, "Zulma", res.Items[0].CustomerName)
	assert.Equal(t, "Zulma", res.Items[1].CustomerName)
	assert.Equal(t, "Ana", res.Items[2].CustomerName)

	// Sorted alphabetically, not in appearance order.
	assert.Equal(t, []string{"Ana", "Zulma"}, res.Customers)

	assert.Equal(t, "mangos", res.Items[1].ProductName)
	assert.Equal(t, 8.0, res.Items[1].Qty)
	assert.Equal(t, 0.5, res.Items[2].Qty)
}

func TestParseOrderTextLineNumbers(t *testing.T) {
	res := ParseOrderText("2kg tomate\n\n8 mangos")
	require.Len(t, res.Items, 2)
	assert.Equal(t, 1, res.Items[0].LineNumber)
	assert.Equal(t, 3, res.Items[1].LineNumber)
}

func TestParseOrderTextNeverDropsLines(t *testing.T) {
	// Garbage lines still come back as qty-1 items.
	res := ParseOrderText("???!!\nalgo raro sin numero")
	require.Len(t, res.Items, 2)
	for _, it := range res.Items {
		assert.Equal(t, 1.0, it.Qty)
		assert.Equal(t, models.UnitUnit, it.Unit)
	}
}

func TestParseOrderTextNoCustomerHeader(t *testing.T) {
	res := ParseOrderText("2kg tomate")
	require.Len(t, res.Items, 1)
	assert.Empty(t, res.Items[0].CustomerName)
	assert.Empty(t, res.Customers)
}
