package coordinator

// Phase is the protocol phase a round is in.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseSum
	PhaseUpdate
	PhaseSum2
	PhaseUnmask
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSum:
		return "sum"
	case PhaseUpdate:
		return "update"
	case PhaseSum2:
		return "sum2"
	case PhaseUnmask:
		return "unmask"
	default:
		return "unknown"
	}
}

// MarshalText renders the phase by name in JSON and TOML.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
