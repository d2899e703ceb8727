package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"finitefield.org/storefront/internal/catalog"
)

func sample() []catalog.Product {
	original := int64(3999)
	rating := 4.5
	return []catalog.Product{
		{
			ID: 1, Name: "Shoe", Brand: "Acme", Price: 2999, OriginalPrice: &original,
			Image: "/img/shoe.jpg", Shipping: catalog.Shipping{Method: catalog.ShippingFree},
			Colors: []catalog.Color{{Name: "Red", Hex: "#f00"}, {Name: "Blue", Hex: "#00f"}},
			Sizes:  []string{"40", "41"}, Rating: &rating,
		},
		{ID: 2, Name: "Sock", Price: 499, Image: "/img/sock.jpg"},
	}
}

func TestXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, XLSX(&buf, sample(), "USD"))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, []string{"1", "Shoe", "Acme", "$29.99", "$39.99", "25", "Free Shipping", "true", "4.5",
		"Red, Blue", "40, 41", "/?id=1", "/img/shoe.jpg"}, rows[1])
	assert.Equal(t, "Sock", rows[2][1])
	assert.Equal(t, "$4.99", rows[2][3])
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, sample(), "USD"))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Red, Blue", records[1][9])
	assert.Equal(t, "", records[2][4], "no original price when not on sale")
}

func TestForPath(t *testing.T) {
	_, err := ForPath("out/catalog.XLSX")
	assert.NoError(t, err)
	_, err = ForPath("catalog.csv")
	assert.NoError(t, err)
	_, err = ForPath("catalog.pdf")
	assert.Error(t, err)
}
