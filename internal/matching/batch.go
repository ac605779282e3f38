package matching

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"marketplace-matching/internal/common/errors"
)

// Identified is implemented by Requester and Provider.
type Identified interface {
	CandidateID() string
}

// Scored pairs a candidate with its result.
type Scored[T Identified] struct {
	Candidate T           `json:"candidate"`
	Result    MatchResult `json:"result"`
}

// Rejection records a candidate dropped from a batch.
type Rejection struct {
	Index       int              `json:"index"`
	CandidateID string           `json:"candidateId"`
	Code        errors.ErrorCode `json:"code"`
	Reason      string           `json:"reason"`
}

// Batch is the outcome of one orchestration pass. Scored keeps input order.
type Batch[T Identified] struct {
	Scored   []Scored[T] `json:"scored"`
	Rejected []Rejection `json:"rejected,omitempty"`
}

const (
	reasonInvalidRecord = "invalid_record"
	reasonPanic         = "evaluation_panic"
)

// ScoreMany scores every requester against one provider. A malformed
// requester is dropped with a rejection, never failing the batch. When ctx
// is cancelled the partial batch is returned together with ctx.Err().
func (e *Engine) ScoreMany(ctx context.Context, provider Provider, requesters []Requester, prefs MatchPreferences) (Batch[Requester], error) {
	if err := provider.Validate(); err != nil {
		return Batch[Requester]{}, fmt.Errorf("invalid provider: %w", err)
	}
	p := e.newPlan(prefs)
	return runBatch(ctx, e, requesters, Requester.Validate, func(r Requester) MatchResult {
		return e.score(p, r, provider)
	})
}

// ScoreProviders is the reverse direction: many providers against one
// requester.
func (e *Engine) ScoreProviders(ctx context.Context, requester Requester, providers []Provider, prefs MatchPreferences) (Batch[Provider], error) {
	if err := requester.Validate(); err != nil {
		return Batch[Provider]{}, fmt.Errorf("invalid requester: %w", err)
	}
	p := e.newPlan(prefs)
	return runBatch(ctx, e, providers, Provider.Validate, func(pr Provider) MatchResult {
		return e.score(p, requester, pr)
	})
}

type slot[T Identified] struct {
	scored    *Scored[T]
	rejection *Rejection
}

func runBatch[T Identified](ctx context.Context, e *Engine, candidates []T, validate func(T) error, score func(T) MatchResult) (Batch[T], error) {
	start := time.Now()
	slots := make([]slot[T], len(candidates))
	sem := make(chan struct{}, e.cfg.Concurrency)
	var wg sync.WaitGroup

	var ctxErr error
launch:
	for i := range candidates {
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break launch
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			if ctx.Err() != nil {
				return
			}
			slots[i] = evaluate(e, i, candidates[i], validate, score)
		}(i)
	}
	wg.Wait()
	if ctxErr == nil {
		ctxErr = ctx.Err()
	}

	batch := Batch[T]{Scored: make([]Scored[T], 0, len(candidates))}
	for _, s := range slots {
		switch {
		case s.scored != nil:
			batch.Scored = append(batch.Scored, *s.scored)
		case s.rejection != nil:
			batch.Rejected = append(batch.Rejected, *s.rejection)
		}
	}

	fields := map[string]interface{}{
		"inputCount":    len(candidates),
		"scoredCount":   len(batch.Scored),
		"rejectedCount": len(batch.Rejected),
		"durationMs":    time.Since(start).Milliseconds(),
	}
	if ctxErr != nil {
		fields["error"] = ctxErr
		e.logger.Warn("batch stopped early", fields)
		return batch, ctxErr
	}
	e.logger.Info("batch scored", fields)
	return batch, nil
}

func evaluate[T Identified](e *Engine, i int, c T, validate func(T) error, score func(T) MatchResult) (out slot[T]) {
	defer func() {
		if r := recover(); r != nil {
			out = slot[T]{rejection: e.reject(i, c.CandidateID(), reasonPanic, fmt.Sprint(r))}
		}
	}()

	if err := validate(c); err != nil {
		return slot[T]{rejection: e.reject(i, c.CandidateID(), reasonInvalidRecord, err.Error())}
	}

	result := score(c)
	e.recorder.CandidateScored(result.Score)
	return slot[T]{scored: &Scored[T]{Candidate: c, Result: result}}
}

func (e *Engine) reject(i int, id, reason, detail string) *Rejection {
	stdErr := errors.NewCandidateEvaluationError(id, detail)
	e.recorder.CandidateRejected(reason)
	e.logger.Warn("candidate dropped from batch", map[string]interface{}{
		"index":       i,
		"candidateId": id,
		"reason":      reason,
		"error":       stdErr,
	})
	return &Rejection{Index: i, CandidateID: id, Code: stdErr.Code, Reason: reason + ": " + detail}
}

// Rank returns the scored candidates ordered by score descending, ties
// broken by candidate id ascending. The batch is not modified.
func Rank[T Identified](b Batch[T]) []Scored[T] {
	ranked := append([]Scored[T](nil), b.Scored...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Result.Score != ranked[j].Result.Score {
			return ranked[i].Result.Score > ranked[j].Result.Score
		}
		return ranked[i].Candidate.CandidateID() < ranked[j].Candidate.CandidateID()
	})
	return ranked
}

// TopK ranks the batch and keeps the first k entries. k <= 0 keeps all.
func TopK[T Identified](b Batch[T], k int) []Scored[T] {
	ranked := Rank(b)
	if k > 0 && len(ranked) > k {
		return ranked[:k]
	}
	return ranked
}
