package fire

// MasteryBand maps a minimum mastery level to a base review interval.
type MasteryBand struct {
	MinMastery int
	BaseDays   int
}

// Params defines all configurable parameters for the FIRe scheduling
// algorithm (Fractional Implicit Repetition).
type Params struct {
	// Base interval bands, checked highest mastery first.
	MasteryBands []MasteryBand

	// Accuracy thresholds and their interval multipliers. At or above
	// GoodAccuracy the interval is unchanged; PoorModifier applies below
	// ModerateAccuracy.
	ExcellentAccuracy int
	ExcellentModifier float64
	GoodAccuracy      int
	ModerateAccuracy  int
	ModerateModifier  float64
	PoorModifier      float64

	// Successful-repetition doubling: when a previous interval exists and
	// accuracy is at least DoublingAccuracy, the new interval is double the
	// previous one, overriding the banding path.
	DoublingAccuracy int

	// Implicit repetition: fraction of an encompassed topic's current
	// interval added to its next review on successful advanced practice.
	ImplicitExtensionFactor float64

	// Hard interval bounds in days.
	MinIntervalDays int
	MaxIntervalDays int
}

// ParamsConfig allows overriding the default parameters when creating a new
// Params instance. Zero values leave the corresponding default in place.
type ParamsConfig struct {
	ExcellentAccuracy int
	GoodAccuracy      int
	ModerateAccuracy  int
	DoublingAccuracy  int

	ExcellentModifier float64
	ModerateModifier  float64
	PoorModifier      float64

	ImplicitExtensionFactor float64

	MinIntervalDays int
	MaxIntervalDays int
}

// NewDefaultParams creates a new Params instance with the standard FIRe
// constants.
func NewDefaultParams() *Params {
	return &Params{
		// Near-perfect mastery reviews monthly; fresh material daily.
		MasteryBands: []MasteryBand{
			{MinMastery: 95, BaseDays: 30},
			{MinMastery: 90, BaseDays: 21},
			{MinMastery: 80, BaseDays: 14},
			{MinMastery: 70, BaseDays: 10},
			{MinMastery: 60, BaseDays: 7},
			{MinMastery: 50, BaseDays: 5},
			{MinMastery: 40, BaseDays: 3},
			{MinMastery: 25, BaseDays: 2},
			{MinMastery: 0, BaseDays: 1},
		},

		ExcellentAccuracy: 90,
		ExcellentModifier: 1.5,
		GoodAccuracy:      75,
		ModerateAccuracy:  60,
		ModerateModifier:  0.8,
		PoorModifier:      0.5,

		DoublingAccuracy: 75,

		ImplicitExtensionFactor: 0.5,

		MinIntervalDays: 1,
		MaxIntervalDays: 60,
	}
}

// NewParams creates a new Params instance with custom configuration applied
// over the defaults.
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.ExcellentAccuracy > 0 {
		params.ExcellentAccuracy = config.ExcellentAccuracy
	}
	if config.GoodAccuracy > 0 {
		params.GoodAccuracy = config.GoodAccuracy
	}
	if config.ModerateAccuracy > 0 {
		params.ModerateAccuracy = config.ModerateAccuracy
	}
	if config.DoublingAccuracy > 0 {
		params.DoublingAccuracy = config.DoublingAccuracy
	}

	if config.ExcellentModifier > 0 {
		params.ExcellentModifier = config.ExcellentModifier
	}
	if config.ModerateModifier > 0 {
		params.ModerateModifier = config.ModerateModifier
	}
	if config.PoorModifier > 0 {
		params.PoorModifier = config.PoorModifier
	}

	if config.ImplicitExtensionFactor > 0 {
		params.ImplicitExtensionFactor = config.ImplicitExtensionFactor
	}

	if config.MinIntervalDays > 0 {
		params.MinIntervalDays = config.MinIntervalDays
	}
	if config.MaxIntervalDays > 0 {
		params.MaxIntervalDays = config.MaxIntervalDays
	}

	return params
}
