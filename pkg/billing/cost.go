// Package billing meters generation requests against the credit ledger.
package billing

import "strings"

const (
	CostStandard = 1
	Cost2K       = 2
	Cost4K       = 5
)

// EstimateCost maps an image size tier to a credit cost. Unknown or empty
// tiers cost the standard rate.
func EstimateCost(tier string) int {
	t := strings.ToUpper(tier)
	switch {
	case strings.Contains(t, "4K"):
		return Cost4K
	case strings.Contains(t, "2K"):
		return Cost2K
	default:
		return CostStandard
	}
}

// TierLabel is the tier as written into ledger reasons.
func TierLabel(tier string) string {
	if strings.TrimSpace(tier) == "" {
		return "1K"
	}
	return tier
}
