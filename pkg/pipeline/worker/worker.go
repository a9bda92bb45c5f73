// Package worker runs independent jobs on a bounded pool of goroutines with
// retry of transient failures and an optional global start rate.
package worker

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/palantir/survey-tabulator/pkg/pipeline/core"
)

type FailurePolicy int

const (
	// FailurePolicyPartialOutput records per-job errors and keeps going.
	FailurePolicyPartialOutput FailurePolicy = iota
	// FailurePolicyFailFast cancels remaining jobs on the first error.
	FailurePolicyFailFast
)

type Options struct {
	Workers    int
	MaxRetries int

	// RateLimitRPS caps job attempts per second across all workers. Set to
	// <=0 to disable.
	RateLimitRPS float64

	FailurePolicy FailurePolicy

	BackoffInitial time.Duration
	BackoffMax     time.Duration
	// BackoffJitterFrac applies +/- jitter to backoff sleeps (0.2 = +/-20%).
	BackoffJitterFrac float64
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 100 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 2 * time.Second
	}
	if o.BackoffJitterFrac < 0 {
		o.BackoffJitterFrac = 0
	}
	return o
}

// Result is the outcome of one job. Attempts counts processor calls.
type Result[In any, Out any] struct {
	Index    int
	Input    In
	Output   Out
	Err      error
	Attempts int
}

// Run processes every item and returns results in input order.
//
// onResult, when set, is called from the calling goroutine in completion
// order; an error from it aborts the run. Under FailurePolicyFailFast the
// first job error is returned and the remaining jobs are not started.
func Run[In any, Out any](
	ctx context.Context,
	items []In,
	process func(context.Context, In) (Out, error),
	onResult func(Result[In, Out]) error,
	opts Options,
) ([]Result[In, Out], error) {
	opts = opts.withDefaults()
	if opts.Workers > len(items) && len(items) > 0 {
		opts.Workers = len(items)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}

	indexes := make(chan int)
	done := make(chan Result[In, Out], opts.Workers)

	var once sync.Once
	var firstErr error
	abort := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	var wg sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				res := attempt(runCtx, i, items[i], process, limiter, opts)
				select {
				case done <- res:
				case <-runCtx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(indexes)
		for i := range items {
			select {
			case indexes <- i:
			case <-runCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	out := make([]Result[In, Out], len(items))
	for res := range done {
		out[res.Index] = res
		if res.Err != nil && opts.FailurePolicy == FailurePolicyFailFast {
			abort(res.Err)
		}
		if onResult != nil {
			if err := onResult(res); err != nil {
				abort(err)
			}
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func attempt[In any, Out any](
	ctx context.Context,
	idx int,
	item In,
	process func(context.Context, In) (Out, error),
	limiter *rate.Limiter,
	opts Options,
) Result[In, Out] {
	res := Result[In, Out]{Index: idx, Input: item}
	for {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				res.Err = err
				return res
			}
		}

		res.Attempts++
		res.Output, res.Err = process(ctx, item)
		if res.Err == nil {
			return res
		}
		if !IsTransient(res.Err) || res.Attempts > retryBudget(opts.MaxRetries, res.Err) {
			return res
		}

		t := time.NewTimer(backoff(opts, res.Attempts-1))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			res.Err = ctx.Err()
			return res
		}
	}
}

// IsTransient reports whether err is worth another attempt.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *core.TransientError
	if errors.As(err, &te) {
		return true
	}
	var lte *core.LimitedTransientError
	if errors.As(err, &lte) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

type retryCap interface {
	MaxExtraRetries() int
}

func retryBudget(defaultRetries int, err error) int {
	var capErr retryCap
	if errors.As(err, &capErr) {
		if limited := max(capErr.MaxExtraRetries(), 0); limited < defaultRetries {
			return limited
		}
	}
	return defaultRetries
}

func backoff(opts Options, retry int) time.Duration {
	sleep := opts.BackoffInitial
	for i := 0; i < retry && sleep < opts.BackoffMax; i++ {
		sleep *= 2
	}
	sleep = min(sleep, opts.BackoffMax)
	if opts.BackoffJitterFrac == 0 {
		return sleep
	}
	j := 1 + (rand.Float64()*2-1)*opts.BackoffJitterFrac
	return time.Duration(float64(sleep) * j)
}
