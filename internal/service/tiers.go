package service

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/metrics"
	"github.com/iliyamo/script-review-portal/internal/model"
)

// Tier is one entry of the pricing catalogue. Prices are in cents.
type Tier struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
	PerPage     bool   `json:"per_page_review"`
}

// TopTier is the only tier offered per-page rubrics.
const TopTier = "premium"

var tiers = []Tier{
	{ID: "free", Name: "Free", Price: 0, Description: "Logline and first-ten-pages read"},
	{ID: "basic", Name: "Basic", Price: 2500, Description: "Full rubric coverage"},
	{ID: "standard", Name: "Standard", Price: 5000, Description: "Full rubric coverage with extended notes"},
	{ID: TopTier, Name: "Premium", Price: 10000, Description: "Full rubric plus page-by-page review", PerPage: true},
}

// Tiers returns the catalogue ordered by price.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// LookupTier matches id or name case-insensitively.
func LookupTier(s string) (Tier, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Tier{}, false
	}
	for _, t := range tiers {
		if t.ID == s || strings.ToLower(t.Name) == s {
			return t, true
		}
	}
	return Tier{}, false
}

func priceKnown(amount int64) bool {
	for _, t := range tiers {
		if t.Price == amount {
			return true
		}
	}
	return false
}

// ResolveAmount returns the amount to charge. Amounts in the price list are
// kept. Others are replaced by the price of the tier named by tierID, then
// tierName; when neither resolves the received amount is used. Every
// correction is logged with ErrTierMismatch and counted.
func ResolveAmount(log *zap.Logger, amount int64, tierID, tierName string) int64 {
	if priceKnown(amount) {
		return amount
	}
	for _, key := range []string{tierID, tierName} {
		if t, ok := LookupTier(key); ok {
			log.Warn("checkout: amount corrected from tier",
				zap.Error(fmt.Errorf("%w: %d", ErrTierMismatch, amount)),
				zap.String("tier", t.ID), zap.Int64("corrected", t.Price))
			metrics.TierCorrections.Inc()
			return t.Price
		}
	}
	log.Warn("checkout: unknown tier, using received amount",
		zap.Error(fmt.Errorf("%w: %d", ErrTierMismatch, amount)),
		zap.String("tier_id", tierID), zap.String("tier_name", tierName))
	return amount
}

// IsTopTier reports whether the script bought per-page review.
func IsTopTier(s *model.Script) bool {
	if t, ok := LookupTier(s.TierID); ok {
		return t.PerPage
	}
	if t, ok := LookupTier(s.TierName); ok {
		return t.PerPage
	}
	return false
}
