package advisory

// attemptState is a step of the per-batch retry machine:
//
//	stateFirst --fail--> stateCorrective --fail--> stateFallback
//	     \--ok--> stateDone        \--ok--> stateDone
type attemptState int

const (
	stateFirst attemptState = iota
	stateCorrective
	stateFallback
	stateDone
)

func (s attemptState) String() string {
	switch s {
	case stateFirst:
		return "first"
	case stateCorrective:
		return "corrective"
	case stateFallback:
		return "fallback"
	case stateDone:
		return "done"
	}
	return "unknown"
}

// outcome classifies one attempt.
type outcome int

const (
	outcomeOK outcome = iota
	outcomeTransport
	outcomeBadStatus
	outcomeMalformed
	// outcomeCanceled means the caller gave up; no retry is worth making.
	outcomeCanceled
)

func (o outcome) String() string {
	switch o {
	case outcomeOK:
		return "ok"
	case outcomeTransport:
		return "transport_error"
	case outcomeBadStatus:
		return "bad_status"
	case outcomeMalformed:
		return "malformed"
	case outcomeCanceled:
		return "canceled"
	}
	return "unknown"
}

// next is the whole retry policy.
func next(s attemptState, o outcome) attemptState {
	switch {
	case s == stateDone || s == stateFallback:
		return s
	case o == outcomeOK:
		return stateDone
	case o == outcomeCanceled:
		return stateFallback
	case s == stateFirst:
		return stateCorrective
	default:
		return stateFallback
	}
}
