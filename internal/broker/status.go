package broker

// Status is the state of the broker session.
type Status int32

const (
	// Disconnected means there is no session and no attempt in flight.
	Disconnected Status = iota
	// Connecting means an attempt is in flight.
	Connecting
	// Connected means publishes can be sent.
	Connected
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}
