package prediction

// Regime classifies the pace of recent observations by their average gap.
type Regime int

// Regimes. Boundaries are strict: avgGap == FastGapThreshold and
// avgGap == SlowGapThreshold are both mid.
const (
	RegimeUnknown Regime = iota
	RegimeFast
	RegimeMid
	RegimeSlow
)

var regimeNames = map[Regime]string{
	RegimeUnknown: "unknown",
	RegimeFast:    "fast",
	RegimeMid:     "mid",
	RegimeSlow:    "slow",
}

func (r Regime) String() string {
	if s, ok := regimeNames[r]; ok {
		return s
	}
	return regimeNames[RegimeUnknown]
}

// MarshalText encodes the regime by name.
func (r Regime) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ClassifyRegime maps an average gap onto a regime using p's thresholds.
func (p Params) ClassifyRegime(avgGap float64) Regime {
	switch {
	case avgGap < p.FastGapThreshold:
		return RegimeFast
	case avgGap > p.SlowGapThreshold:
		return RegimeSlow
	default:
		return RegimeMid
	}
}

// ClassifyRegime uses the default thresholds.
func ClassifyRegime(avgGap float64) Regime {
	return DefaultParams().ClassifyRegime(avgGap)
}
