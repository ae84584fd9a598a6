package advisory

import (
	"context"
	"time"
)

// Call describes one inference attempt, corrective retries included.
type Call struct {
	RunID         string
	Model         string
	Fields        []string
	Corrective    bool
	Outcome       string
	RequestedAt   time.Time
	Duration      time.Duration
	PromptChars   int
	ResponseChars int
	Error         string
}

// Success reports whether the attempt produced a usable answer.
func (c Call) Success() bool {
	return c.Outcome == outcomeOK.String()
}

// CallRecorder receives every attempt. Implementations must not block for
// long and must not fail the classification; errors are theirs to log.
type CallRecorder interface {
	RecordCall(ctx context.Context, call Call)
}

// SetRecorder attaches r to the gateway. Call before the first classification.
func (g *Gateway) SetRecorder(r CallRecorder) {
	g.recorder = r
}

func (g *Gateway) record(ctx context.Context, call Call) {
	if g.recorder == nil {
		return
	}
	g.recorder.RecordCall(context.WithoutCancel(ctx), call)
}
