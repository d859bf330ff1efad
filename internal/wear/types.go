package wear

// PreEOL is the coarse pre-end-of-life health flag reported by flash
// controllers.
type PreEOL int

const (
	PreEOLUnknown PreEOL = 0
	PreEOLNormal  PreEOL = 1
	PreEOLWarning PreEOL = 2
	PreEOLUrgent  PreEOL = 3
)

func (p PreEOL) String() string {
	switch p {
	case PreEOLNormal:
		return "normal"
	case PreEOLWarning:
		return "warning"
	case PreEOLUrgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// Information is a point-in-time health report decoded from a vendor dump.
// Lifetime estimates are bucketed percentages of rated endurance consumed;
// nil means the controller does not report that channel.
type Information struct {
	LifetimeA *int   `json:"lifetime_estimate_a"`
	LifetimeB *int   `json:"lifetime_estimate_b"`
	PreEOL    PreEOL `json:"pre_eol"`
}

// Estimate returns the wear estimate carried by this report.
func (i Information) Estimate() Estimate {
	return Estimate{A: i.LifetimeA, B: i.LifetimeB}
}

// decodeLifetime converts a raw lifetime register code to a percentage.
// Code 0 means the channel is not reported; the registers define 0x1..0xB,
// mapping to 0%..100% in steps of 10.
func decodeLifetime(code uint64) *int {
	if code == 0 || code > 0xB {
		return nil
	}
	pct := int(code-1) * 10
	return &pct
}

// decodePreEOL converts a raw pre-EOL register code. Codes outside 1..3 are
// not defined by either register spec.
func decodePreEOL(code uint64) PreEOL {
	switch code {
	case 1:
		return PreEOLNormal
	case 2:
		return PreEOLWarning
	case 3:
		return PreEOLUrgent
	default:
		return PreEOLUnknown
	}
}

// Provider loads wear information from a device-specific source. A load
// failure means "no data this poll", not a fatal condition.
type Provider interface {
	Load() (*Information, error)
}
