package anticheat

// DefaultNominalMaxSpeed is the catcher's configured maximum lateral speed in
// pixels per second. The client clamps movement to the same constant.
const DefaultNominalMaxSpeed = 420.0

// Profile carries the game constants the validators measure reported play
// against. It is fixed at engine construction.
type Profile struct {
	NominalMaxSpeed float64 `json:"nominalMaxSpeed"`
}

func DefaultProfile() Profile {
	return Profile{NominalMaxSpeed: DefaultNominalMaxSpeed}
}

func (p Profile) normalized() Profile {
	normalized := p
	if normalized.NominalMaxSpeed <= 0 {
		normalized.NominalMaxSpeed = DefaultNominalMaxSpeed
	}
	return normalized
}

// Normalized clamps out-of-range values onto usable defaults.
func (p Profile) Normalized() Profile {
	return p.normalized()
}
