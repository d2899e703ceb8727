// Package export writes the catalog as a spreadsheet for merchandising
// review.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"finitefield.org/storefront/internal/catalog"
	"finitefield.org/storefront/internal/format"
	"finitefield.org/storefront/internal/route"
)

const sheet = "Catalog"

var header = []string{
	"id", "name", "brand", "price", "original_price", "discount_pct",
	"shipping", "in_stock", "rating", "colors", "sizes", "url", "image",
}

func record(p catalog.Product, currency string) []string {
	var original, discount, rating string
	if p.OnSale() {
		original = format.Price(*p.OriginalPrice, currency)
		discount = strconv.Itoa(format.Discount(p.Price, *p.OriginalPrice))
	}
	if p.Rating != nil {
		rating = strconv.FormatFloat(*p.Rating, 'f', 1, 64)
	}
	colors := make([]string, 0, len(p.Colors))
	for _, c := range p.Colors {
		colors = append(colors, c.Name)
	}
	return []string{
		strconv.FormatInt(p.ID, 10),
		p.Name,
		p.Brand,
		format.Price(p.Price, currency),
		original,
		discount,
		p.Shipping.Label(),
		strconv.FormatBool(p.Available()),
		rating,
		strings.Join(colors, ", "),
		strings.Join(p.Sizes, ", "),
		route.Default.URL(route.Product(p.ID)),
		p.Image,
	}
}

// XLSX writes products to w as an Excel workbook with one row per product.
func XLSX(w io.Writer, products []catalog.Product, currency string) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	// StreamWriter for efficiency on large catalogs
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := sw.SetRow("A1", cells(header)); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	for i, p := range products {
		cell, _ := excelize.CoordinatesToCellName(1, i+2) // A2, A3, ...
		if err := sw.SetRow(cell, cells(record(p, currency))); err != nil {
			return fmt.Errorf("export: row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

// CSV writes products to w as comma separated values.
func CSV(w io.Writer, products []catalog.Product, currency string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, p := range products {
		if err := cw.Write(record(p, currency)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ForPath picks the writer matching the extension of path.
func ForPath(path string) (func(io.Writer, []catalog.Product, string) error, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return XLSX, nil
	case ".csv":
		return CSV, nil
	default:
		return nil, fmt.Errorf("export: unsupported file type %q (want .xlsx or .csv)", filepath.Ext(path))
	}
}

func cells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
