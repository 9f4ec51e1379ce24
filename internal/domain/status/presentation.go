package status

import (
	"strconv"

	"github.com/okian/cadence/internal/domain/prediction"
)

// Urgency orders statuses by how soon the user has to act.
type Urgency int

// Urgency levels.
const (
	UrgencyNone Urgency = iota
	UrgencyLow
	UrgencyElevated
	UrgencyHighest
)

// Colors used by the dashboard.
const (
	ColorMuted = "#71717a"
	ColorAmber = "#fbbf24"
	ColorGreen = "#10b981"
	ColorRed   = "#ef4444"
)

// Presentation carries rendering hints for a status.
type Presentation struct {
	Label       string  `json:"label"`
	TextColor   string  `json:"text_color"`
	BorderColor string  `json:"border_color"`
	Pulse       string  `json:"pulse,omitempty"`
	Urgency     Urgency `json:"urgency"`
}

var presentations = map[Status]Presentation{
	Cold: {
		Label:       "MARKET COLD... WAITING",
		TextColor:   ColorMuted,
		BorderColor: ColorAmber,
		Urgency:     UrgencyLow,
	},
	SpikeImminent: {
		Label:       "QUANTUM SPIKE: PREPARE",
		TextColor:   ColorAmber,
		BorderColor: ColorAmber,
		Pulse:       "pulse-warning",
		Urgency:     UrgencyElevated,
	},
	Execute: {
		Label:       "EXECUTE POSITION NOW",
		TextColor:   ColorGreen,
		BorderColor: ColorGreen,
		Pulse:       "pulse-execute",
		Urgency:     UrgencyHighest,
	},
	Expired: {
		Label:       "TELEMETRY EXPIRED",
		TextColor:   ColorRed,
		BorderColor: ColorAmber,
		Urgency:     UrgencyNone,
	},
}

// Present returns the rendering hints for s.
func (s Status) Present() Presentation {
	return presentations[s]
}

// Neutral banners shown while no status can be derived.
const (
	BannerScanning = "SCANNING MARKET..."
	BannerError    = "[ERROR]: "
)

// Idle returns the neutral presentation for a session without a prediction.
// need is the number of observations still missing.
func Idle(need int) Presentation {
	label := BannerScanning
	if need > 0 && need < prediction.Window {
		label = InsufficientData(need)
	}
	return Presentation{Label: label, TextColor: ColorAmber, BorderColor: ColorAmber, Urgency: UrgencyNone}
}

// InsufficientData renders the banner shown while fewer than three
// observations exist.
func InsufficientData(need int) string {
	return "INSUFFICIENT DATA: NEED " + strconv.Itoa(need)
}
