package core

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxConcurrentParses bounds ParseBatch when no limit is given.
const DefaultMaxConcurrentParses = 4

// BatchOptions configures ParseBatch.
type BatchOptions struct {
	// MaxConcurrent is the number of statements parsed at once.
	MaxConcurrent int
	// Timeout bounds the whole batch. Zero means only ctx applies.
	Timeout time.Duration
}

// BatchResult is the outcome of one statement of a batch. Result may be set
// even when Err is not nil (see ParseStatement).
type BatchResult struct {
	Name   string
	Result *Result
	Err    error
}

// ParseBatch parses independent statements in parallel. Outcomes are
// reported per statement, in input order; one failing statement does not
// cancel the others. The inputs normally share one Registrar, which must be
// safe for concurrent use.
//
// Cancellation is checked between tables, so a deadline stops the batch at
// the next table boundary of every statement in progress.
func ParseBatch(ctx context.Context, inputs []StatementInput, opts BatchOptions) []BatchResult {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrentParses
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	results := make([]BatchResult, len(inputs))

	var g errgroup.Group
	g.SetLimit(opts.MaxConcurrent)
	for i, in := range inputs {
		g.Go(func() error {
			res, err := ParseStatement(ctx, in)
			results[i] = BatchResult{Name: in.Name, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait() // goroutines report through results

	return results
}
