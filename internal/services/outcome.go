package services

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// EffectResult reports one best-effort action taken after a commit.
type EffectResult struct {
	Effect string
	Err    error
}

func (r EffectResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Effect string `json:"effect"`
		OK     bool   `json:"ok"`
		Error  string `json:"error,omitempty"`
	}{Effect: r.Effect, OK: r.Err == nil}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// Outcome lists post-commit effects. It never changes the result of the primary operation.
type Outcome []EffectResult

func (o Outcome) Failed() Outcome {
	var failed Outcome
	for _, r := range o {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

func (o Outcome) OK() bool {
	return len(o.Failed()) == 0
}

// effects runs best-effort actions with a per-effect timeout and records each result.
type effects struct {
	logger  *zap.Logger
	timeout time.Duration
	results Outcome
}

func newEffects(logger *zap.Logger, timeout time.Duration) *effects {
	return &effects{logger: logger, timeout: timeout}
}

func (e *effects) run(ctx context.Context, name string, fn func(ctx context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	err := fn(ctx)
	if err != nil {
		e.logger.Warn("post-commit effect failed", zap.String("effect", name), zap.Error(err))
	}
	e.results = append(e.results, EffectResult{Effect: name, Err: err})
}

func (e *effects) outcome() Outcome {
	return e.results
}
