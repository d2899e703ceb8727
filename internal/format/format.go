package format

import (
	"fmt"
	"math"
	"strings"
)

// Price formats an amount in minor units for the shop currency.
// Example: Price(2999, "USD") => "$29.99", Price(12345, "JPY") => "¥12,345"
func Price(minor int64, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	switch currency {
	case "JPY":
		return signed(minor, func(m int64) string { return "¥" + thousandSep(m) })
	case "", "USD":
		return signed(minor, func(m int64) string { return "$" + major(m, 2) })
	case "EUR":
		return signed(minor, func(m int64) string { return "€" + major(m, 2) })
	case "GBP":
		return signed(minor, func(m int64) string { return "£" + major(m, 2) })
	default:
		return signed(minor, func(m int64) string { return currency + " " + major(m, 2) })
	}
}

// Decimal formats minor units as a plain decimal string without symbol or
// grouping, e.g. "29.99", as used in structured data.
func Decimal(minor int64, currency string) string {
	if strings.EqualFold(strings.TrimSpace(currency), "JPY") {
		return fmt.Sprintf("%d", minor)
	}
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// Discount returns the whole-percent reduction from original to price, or 0.
func Discount(price, original int64) int {
	if original <= 0 || price >= original {
		return 0
	}
	return int(math.Round(float64(original-price) * 100 / float64(original)))
}

// Rating renders a 0–5 rating with one decimal, e.g. "4.5 / 5".
func Rating(r float64) string {
	if r < 0 {
		r = 0
	}
	if r > 5 {
		r = 5
	}
	return fmt.Sprintf("%.1f / 5", r)
}

func signed(minor int64, f func(int64) string) string {
	if minor < 0 {
		return "-" + f(-minor)
	}
	return f(minor)
}

func major(minor int64, digits int) string {
	div := int64(math.Pow10(digits))
	return fmt.Sprintf("%s.%0*d", thousandSep(minor/div), digits, minor%div)
}

func thousandSep(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i != 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
