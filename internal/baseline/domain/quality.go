package domain

// DataQuality grades a baseline from its sample size, observation window
// and revenue variance. Thresholds are fixed; the tier is recomputed
// whenever the external baseline job syncs a snapshot.
func DataQuality(sampleSize, periodDays int, revenueVariance float64) DataQualityTier {
	if sampleSize < 10 || periodDays < 30 {
		return DataQualityLow
	}
	if sampleSize < 30 || periodDays < 90 || revenueVariance > 0.50 {
		return DataQualityMedium
	}
	return DataQualityHigh
}
