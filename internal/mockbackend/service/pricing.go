package service

import (
	"math"

	"billdash/internal/models"
)

// Tier boundaries and per-call rates in millionths of a dollar.
const (
	FreeTierCalls     int64 = 10_000
	StandardTierCalls int64 = 100_000

	standardRateMicros int64 = 1_000
	premiumRateMicros  int64 = 500
)

type tier struct {
	name       string
	upTo       int64 // inclusive upper bound; 0 means unbounded
	rateMicros int64
}

var tiers = []tier{
	{name: "Free", upTo: FreeTierCalls, rateMicros: 0},
	{name: "Standard", upTo: StandardTierCalls, rateMicros: standardRateMicros},
	{name: "Premium", upTo: 0, rateMicros: premiumRateMicros},
}

// CalculateCharges splits calls across the pricing tiers. Tiers a month never
// reaches are omitted. The total is rounded to cents.
func CalculateCharges(calls int64) ([]models.TierCharge, models.Decimal) {
	var (
		breakdown   []models.TierCharge
		totalMicros int64
		floor       int64
	)
	for _, t := range tiers {
		if calls <= floor {
			break
		}
		inTier := calls - floor
		if t.upTo > 0 {
			inTier = min(calls, t.upTo) - floor
		}
		amount := inTier * t.rateMicros
		totalMicros += amount
		breakdown = append(breakdown, models.TierCharge{
			Tier:   t.name,
			Calls:  inTier,
			Rate:   microsToDecimal(t.rateMicros, 4),
			Amount: microsToDecimal(amount, 2),
		})
		floor = t.upTo
		if t.upTo == 0 {
			break
		}
	}
	return breakdown, microsToDecimal(totalMicros, 2)
}

func microsToDecimal(micros int64, prec int) models.Decimal {
	scale := math.Pow10(prec)
	v := math.Round(float64(micros)/1e6*scale) / scale
	return models.NewDecimal(v, prec)
}
