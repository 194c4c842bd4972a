package fire

import "math"

// baseInterval returns the base review interval for a mastery level by
// walking the banding table from the highest band down.
func baseInterval(masteryLevel int, params *Params) int {
	for _, band := range params.MasteryBands {
		if masteryLevel >= band.MinMastery {
			return band.BaseDays
		}
	}
	// Bands always end at MinMastery 0, so this is only reachable with a
	// misconfigured table.
	return params.MinIntervalDays
}

// applyAccuracy adjusts a base interval for recent performance. Multipliers
// are floored, matching the banding table's whole-day granularity.
func applyAccuracy(days int, accuracy int, params *Params) int {
	switch {
	case accuracy >= params.ExcellentAccuracy:
		return int(math.Floor(float64(days) * params.ExcellentModifier))
	case accuracy >= params.GoodAccuracy:
		return days
	case accuracy >= params.ModerateAccuracy:
		return int(math.Floor(float64(days) * params.ModerateModifier))
	default:
		return int(math.Floor(float64(days) * params.PoorModifier))
	}
}

// clampInterval bounds an interval to the configured [min, max] range.
func clampInterval(days int, params *Params) int {
	if days < params.MinIntervalDays {
		return params.MinIntervalDays
	}
	if days > params.MaxIntervalDays {
		return params.MaxIntervalDays
	}
	return days
}

// calculateInterval computes the next review interval in days.
//
// The normal path takes the mastery banding and applies the accuracy
// multiplier. When a previous interval exists and accuracy meets the
// doubling threshold, the successful-repetition path takes precedence:
// the new interval is double the previous one regardless of banding.
// The result is always clamped to [MinIntervalDays, MaxIntervalDays].
func calculateInterval(masteryLevel, accuracy int, previousInterval *int, params *Params) int {
	days := baseInterval(masteryLevel, params)
	days = applyAccuracy(days, accuracy, params)

	if previousInterval != nil && accuracy >= params.DoublingAccuracy {
		days = *previousInterval * 2
	}

	return clampInterval(days, params)
}

// calculateImplicitExtension computes how many days to push an encompassed
// topic's scheduled review when an encompassing topic is practiced
// successfully. The extension is a fraction of the encompassed topic's own
// current interval, never less than one day: review debt is deferred, not
// skipped.
func calculateImplicitExtension(currentIntervalDays int, params *Params) int {
	ext := int(math.Floor(float64(currentIntervalDays) * params.ImplicitExtensionFactor))
	if ext < 1 {
		ext = 1
	}
	return ext
}
