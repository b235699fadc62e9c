package anticheat

// Reason identifies why a submission was rejected. The set is closed; callers
// switch on it to pick client messaging and retry behavior.
type Reason string

const (
	// ReasonSpeedExceeded marks a move pair over the baseline speed limit with
	// no performance adjustment in play.
	ReasonSpeedExceeded Reason = "SpeedExceeded"
	// ReasonDynamicSpeedExceeded marks a move pair over the limit even after
	// performance-adjusted tolerances were applied.
	ReasonDynamicSpeedExceeded Reason = "DynamicSpeedExceeded"
	// ReasonSpeedExceededDespiteStutter marks a move pair inside a recorded
	// stutter window that still cleared the anti-teleport ceiling.
	ReasonSpeedExceededDespiteStutter Reason = "SpeedExceededDespiteStutter"
	// ReasonProximityExceeded marks an item pickup too far from the player
	// with no performance adjustment in play.
	ReasonProximityExceeded Reason = "ProximityExceeded"
	// ReasonDynamicProximityExceeded marks a pickup too far from the player
	// even after performance-adjusted tolerances were applied.
	ReasonDynamicProximityExceeded Reason = "DynamicProximityExceeded"
	// ReasonLowConfidence marks a submission whose aggregate trust score fell
	// below the configured threshold after the rule validators passed.
	ReasonLowConfidence Reason = "LowConfidence"
)

// Adjustment is the set of tolerance relaxations derived from one
// performance context. Values never drop below their neutral floor.
type Adjustment struct {
	SpeedToleranceMultiplier     float64 `json:"speedToleranceMultiplier"`
	ProximityToleranceMultiplier float64 `json:"proximityToleranceMultiplier"`
	TimeWindowExtensionMs        int64   `json:"timeWindowExtensionMs"`
	StutterToleranceMs           int64   `json:"stutterToleranceMs"`
}

// NeutralAdjustment returns the adjustment that leaves every tolerance
// untouched.
func NeutralAdjustment() Adjustment {
	return Adjustment{
		SpeedToleranceMultiplier:     1.0,
		ProximityToleranceMultiplier: 1.0,
		TimeWindowExtensionMs:        0,
		StutterToleranceMs:           0,
	}
}

// IsNeutral reports whether the adjustment relaxes nothing.
func (a Adjustment) IsNeutral() bool {
	return a.SpeedToleranceMultiplier == 1.0 &&
		a.ProximityToleranceMultiplier == 1.0 &&
		a.TimeWindowExtensionMs == 0 &&
		a.StutterToleranceMs == 0
}

// Result is the engine's verdict for one submitted session.
type Result struct {
	Valid               bool        `json:"valid"`
	Reason              Reason      `json:"reason,omitempty"`
	Confidence          float64     `json:"confidence"`
	PerformanceAdjusted bool        `json:"performanceAdjusted"`
	Adjustment          *Adjustment `json:"adjustment,omitempty"`
}

func validResult(confidence float64, adjustment Adjustment) Result {
	result := Result{Valid: true, Confidence: confidence}
	if !adjustment.IsNeutral() {
		result.PerformanceAdjusted = true
		details := adjustment
		result.Adjustment = &details
	}
	return result
}

func invalidResult(reason Reason, confidence float64, adjustment Adjustment) Result {
	result := Result{Valid: false, Reason: reason, Confidence: confidence}
	if !adjustment.IsNeutral() {
		result.PerformanceAdjusted = true
		details := adjustment
		result.Adjustment = &details
	}
	return result
}
