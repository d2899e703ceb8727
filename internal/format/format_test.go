package format

import "testing"

func TestPrice(t *testing.T) {
	cases := []struct {
		minor    int64
		currency string
		want     string
	}{
		{2999, "USD", "$29.99"},
		{2999, "", "$29.99"},
		{5, "usd", "$0.05"},
		{123456789, "USD", "$1,234,567.89"},
		{-1050, "USD", "-$10.50"},
		{12345, "JPY", "¥12,345"},
		{100, "EUR", "€1.00"},
		{250, "CHF", "CHF 2.50"},
	}
	for _, c := range cases {
		if got := Price(c.minor, c.currency); got != c.want {
			t.Fatalf("Price(%d, %q) = %q, want %q", c.minor, c.currency, got, c.want)
		}
	}
}

func TestDiscount(t *testing.T) {
	if got := Discount(2999, 3999); got != 25 {
		t.Fatalf("expected 25, got %d", got)
	}
	if got := Discount(3999, 2999); got != 0 {
		t.Fatalf("expected 0 for no markdown, got %d", got)
	}
	if got := Discount(100, 0); got != 0 {
		t.Fatalf("expected 0 for missing original, got %d", got)
	}
}

func TestRating(t *testing.T) {
	if got := Rating(4.46); got != "4.5 / 5" {
		t.Fatalf("unexpected rating %q", got)
	}
	if got := Rating(9); got != "5.0 / 5" {
		t.Fatalf("expected clamp, got %q", got)
	}
}

func TestDecimal(t *testing.T) {
	if got := Decimal(2999, "USD"); got != "29.99" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Decimal(123456, "USD"); got != "1234.56" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Decimal(500, "jpy"); got != "500" {
		t.Fatalf("unexpected %q", got)
	}
}
