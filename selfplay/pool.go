package selfplay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNoMatches is returned by RunMatches with an empty spec list.
var ErrNoMatches = errors.New("no matches to run")

// RunMatches plays specs on up to workers goroutines. Results come back in
// spec order; a failed match leaves its slot nil and its error joined into
// the returned error. onDone is called from worker goroutines as matches end.
func RunMatches(ctx context.Context, specs []MatchSpec, workers int, log *slog.Logger, onDone func(*MatchResult)) ([]*MatchResult, error) {
	if len(specs) == 0 {
		return nil, ErrNoMatches
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(specs) {
		workers = len(specs)
	}
	if log == nil {
		log = slog.Default()
	}

	results := make([]*MatchResult, len(specs))
	errs := make([]error, len(specs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			wlog := log.With("worker", worker)
			for i := range jobs {
				res, err := PlayMatch(ctx, specs[i], wlog, specs[i].OnProgress)
				if err != nil {
					errs[i] = fmt.Errorf("match %d (%s): %w", i, specs[i].Scenario.Name, err)
					continue
				}
				results[i] = res
				if onDone != nil {
					onDone(res)
				}
			}
		}(w)
	}

feed:
	for i := range specs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return results, errors.Join(errs...)
}
