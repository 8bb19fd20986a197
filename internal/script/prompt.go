// Package script drafts the spoken review for a catalog item.
package script

import (
	"fmt"
	"strconv"
)

const promptTemplate = `Write a product review script for a promotional video about the following product.

Product: %s
Category: %s
Price: $%s
Customer rating: %s out of 5

The review must have an introduction, key features, pros, cons, and a conclusion.
End with a call to action asking the viewer to buy it through this link: %s`

// BuildPrompt returns the completion prompt for one item. It depends only on
// its arguments.
func BuildPrompt(name, category string, price, rating float64, affiliateLink string) string {
	return fmt.Sprintf(promptTemplate,
		name,
		category,
		formatNumber(price, 2),
		formatNumber(rating, 1),
		affiliateLink,
	)
}

// formatNumber prints whole values without decimals so that 99 reads "99"
// rather than "99.00".
func formatNumber(value float64, precision int) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}

	return strconv.FormatFloat(value, 'f', precision, 64)
}
