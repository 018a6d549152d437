package receipt

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// FormatAmount renders minor units with two decimals and thousands
// separators, e.g. "NGN 165,750.00".
func FormatAmount(minorUnits int64, currency string) string {
	sign := ""
	if minorUnits < 0 {
		sign = "-"
		minorUnits = -minorUnits
	}
	major := humanize.Comma(minorUnits / 100)
	value := fmt.Sprintf("%s%s.%02d", sign, major, minorUnits%100)

	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return value
	}
	return currency + " " + value
}
