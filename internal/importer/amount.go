package importer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var currencySymbols = regexp.MustCompile(`[€$£¥₣₤₹₺₽₩฿₫₴₸₪\s]|CHF|EUR|USD|GBP`)

// ParseAmount parses amounts written as "1,234.56", "1.234,56", "1'234.56",
// "CHF 12.50" or "-7". An empty string is an error.
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	standardized := standardizeAmount(amountStr)
	if standardized == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	amount, err := decimal.NewFromString(standardized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	return amount, nil
}

func standardizeAmount(amountStr string) string {
	s := currencySymbols.ReplaceAllString(amountStr, "")
	s = strings.ReplaceAll(s, "'", "")

	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		if strings.LastIndex(s, ".") < strings.LastIndex(s, ",") {
			// 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			// 1,234.56
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Contains(s, ","):
		parts := strings.Split(s, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	return s
}
