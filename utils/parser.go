package utils

import (
	"regexp"
	"strings"
)

// priceRegex finds the first price-looking number in a string.
// It handles integers (1,079), decimals (119.00 or 119,00), and group
// separators of either kind.
var priceRegex = regexp.MustCompile(`\d[\d.,]*`)

// CleanPrice normalises the text of a price fragment.
//
// The whole-part fragment renders as "1,079." or "1.079," (the decimal
// separator belongs to the whole part), so the number is cut out of the
// surrounding text and one trailing separator is dropped. Text
// without any number is returned trimmed, and empty input stays empty.
func CleanPrice(priceStr string) string {
	priceStr = strings.TrimSpace(priceStr)
	if priceStr == "" {
		return ""
	}

	foundPrice := priceRegex.FindString(priceStr)
	if foundPrice == "" {
		return priceStr
	}
	if n := len(foundPrice); foundPrice[n-1] == '.' || foundPrice[n-1] == ',' {
		foundPrice = foundPrice[:n-1]
	}
	return foundPrice
}
