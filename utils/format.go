// utils/format.go
package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatNumber groups thousands: 12345 -> "12,345".
func FormatNumber(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatPoints renders a score the way user flair shows it.
func FormatPoints(n int) string {
	if n == 1 {
		return "1 point"
	}
	return FormatNumber(n) + " points"
}
