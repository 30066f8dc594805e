package alert

// Verdict is the outcome of evaluating one feed payload.
type Verdict int

const (
	// Empty means the feed carried no active alert.
	Empty Verdict = iota
	// Suppressed means an alert was present but must not be dispatched.
	Suppressed
	// Dispatch means the alert is new, relevant and must be announced.
	Dispatch
)

// String implements fmt.Stringer.
func (v Verdict) String() string {
	switch v {
	case Empty:
		return "empty"
	case Suppressed:
		return "suppressed"
	case Dispatch:
		return "dispatch"
	default:
		return "unknown"
	}
}

// Reason explains a Suppressed verdict.
type Reason string

const (
	// ReasonNone accompanies Empty and Dispatch verdicts.
	ReasonNone Reason = ""
	// ReasonRegion means the alert does not cover the monitored region.
	ReasonRegion Reason = "region"
	// ReasonTest means the alert is a drill.
	ReasonTest Reason = "test"
	// ReasonDuplicate means the alert id was already dispatched.
	ReasonDuplicate Reason = "duplicate"
)

// Decision is the verdict for one payload, with the parsed alert when one was present.
type Decision struct {
	Verdict Verdict
	Reason  Reason
	Alert   *Alert
}

// EmptyDecision returns the decision for a payload without an alert.
func EmptyDecision() Decision {
	return Decision{Verdict: Empty}
}

// Suppress returns a Suppressed decision for a with the given reason.
func Suppress(a *Alert, reason Reason) Decision {
	return Decision{Verdict: Suppressed, Reason: reason, Alert: a}
}

// DispatchDecision returns a Dispatch decision for a.
func DispatchDecision(a *Alert) Decision {
	return Decision{Verdict: Dispatch, Alert: a}
}
