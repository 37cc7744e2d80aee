package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		tier string
		want int
	}{
		{"4K", 5},
		{"4k", 5},
		{"2k", 2},
		{"2K", 2},
		{"1K", 1},
		{"unknown", 1},
		{"", 1},
		{"ultra-4K-hdr", 5},
		{"2K/4K", 5},
	}

	for _, tt := range tests {
		t.Run(tt.tier, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateCost(tt.tier))
		})
	}
}

func TestTierLabel(t *testing.T) {
	assert.Equal(t, "1K", TierLabel(""))
	assert.Equal(t, "1K", TierLabel("  "))
	assert.Equal(t, "2k", TierLabel("2k"))
}
