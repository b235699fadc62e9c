package anticheat

const (
	DefaultBaseSpeedTolerance       = 1.15
	DefaultBaseProximityTolerance   = 60.0
	DefaultStutterToleranceMs       = 0
	DefaultLowFpsThreshold          = 30.0
	DefaultConfidenceThreshold      = 0.8
	DefaultMaxSpeedMultiplier       = 2.0
	DefaultMaxProximityMultiplier   = 1.8
	DefaultMaxTimeWindowExtensionMs = 500
)

// Options is the process-wide tuning surface of the validation engine. A
// snapshot is immutable once installed; SetPerformanceThresholds replaces the
// whole struct in one atomic swap.
type Options struct {
	BaseSpeedTolerance           float64 `json:"baseSpeedTolerance"`
	BaseProximityTolerancePx     float64 `json:"baseProximityTolerancePx"`
	StutterToleranceMs           int64   `json:"stutterToleranceMs"`
	LowFpsThreshold              float64 `json:"lowFpsThreshold"`
	ConfidenceThreshold          float64 `json:"confidenceThreshold"`
	PerformanceAdjustmentEnabled bool    `json:"performanceAdjustmentEnabled"`
	MaxSpeedMultiplier           float64 `json:"maxSpeedMultiplier"`
	MaxProximityMultiplier       float64 `json:"maxProximityMultiplier"`
	MaxTimeWindowExtensionMs     int64   `json:"maxTimeWindowExtensionMs"`
}

func DefaultOptions() Options {
	return Options{
		BaseSpeedTolerance:           DefaultBaseSpeedTolerance,
		BaseProximityTolerancePx:     DefaultBaseProximityTolerance,
		StutterToleranceMs:           DefaultStutterToleranceMs,
		LowFpsThreshold:              DefaultLowFpsThreshold,
		ConfidenceThreshold:          DefaultConfidenceThreshold,
		PerformanceAdjustmentEnabled: true,
		MaxSpeedMultiplier:           DefaultMaxSpeedMultiplier,
		MaxProximityMultiplier:       DefaultMaxProximityMultiplier,
		MaxTimeWindowExtensionMs:     DefaultMaxTimeWindowExtensionMs,
	}
}

func (o Options) normalized() Options {
	normalized := o
	if normalized.BaseSpeedTolerance <= 0 {
		normalized.BaseSpeedTolerance = DefaultBaseSpeedTolerance
	}
	if normalized.BaseProximityTolerancePx <= 0 {
		normalized.BaseProximityTolerancePx = DefaultBaseProximityTolerance
	}
	if normalized.StutterToleranceMs < 0 {
		normalized.StutterToleranceMs = 0
	}
	if normalized.LowFpsThreshold <= 0 {
		normalized.LowFpsThreshold = DefaultLowFpsThreshold
	}
	if normalized.ConfidenceThreshold < 0 {
		normalized.ConfidenceThreshold = 0
	}
	if normalized.ConfidenceThreshold > 1 {
		normalized.ConfidenceThreshold = 1
	}
	if normalized.MaxSpeedMultiplier < 1 {
		normalized.MaxSpeedMultiplier = DefaultMaxSpeedMultiplier
	}
	if normalized.MaxProximityMultiplier < 1 {
		normalized.MaxProximityMultiplier = DefaultMaxProximityMultiplier
	}
	if normalized.MaxTimeWindowExtensionMs < 0 {
		normalized.MaxTimeWindowExtensionMs = DefaultMaxTimeWindowExtensionMs
	}
	return normalized
}

// Normalized clamps out-of-range values onto usable defaults.
func (o Options) Normalized() Options {
	return o.normalized()
}
