// Package health reports whether the configured store and the access policy are usable.
package health

import (
	"context"
	"time"
)

// Pinger is implemented by *sql.DB. Nil when the store has no connection to check.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker is implemented by the OPA evaluator.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Status is the overall outcome of a check.
type Status string

const (
	StatusServing    Status = "serving"
	StatusNotServing Status = "not_serving"
)

// Result is the outcome of one named check. Err is empty when it passed or was skipped.
type Result struct {
	Name    string
	Skipped bool
	Err     string
}

// Report is what Check returns.
type Report struct {
	Status  Status
	Results []Result
}

// Check pings the store and evaluates the policy, each within timeout. Nil dependencies are skipped.
func Check(ctx context.Context, pinger Pinger, policy PolicyChecker, timeout time.Duration) Report {
	r := Report{Status: StatusServing}
	run := func(name string, fn func(context.Context) error, skip bool) {
		if skip {
			r.Results = append(r.Results, Result{Name: name, Skipped: true})
			return
		}
		cctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		res := Result{Name: name}
		if err := fn(cctx); err != nil {
			res.Err = err.Error()
			r.Status = StatusNotServing
		}
		r.Results = append(r.Results, res)
	}
	run("database", func(ctx context.Context) error { return pinger.PingContext(ctx) }, pinger == nil)
	run("policy", func(ctx context.Context) error { return policy.HealthCheck(ctx) }, policy == nil)
	return r
}
