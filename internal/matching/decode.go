package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"marketplace-matching/internal/common/errors"
)

// Decoded is a candidate array decoded element by element. Elements that
// fail to decode become rejections instead of failing the whole array.
type Decoded[T Identified] struct {
	Candidates []T
	// Positions holds the array index of each candidate. Nil means the
	// candidates are the array itself.
	Positions  []int
	Rejected   []Rejection
}

// Len is the size of the original array.
func (d Decoded[T]) Len() int {
	return len(d.Candidates) + len(d.Rejected)
}

// DecodeCandidates decodes a JSON array of candidates. Only a document that
// is not an array is an error.
func DecodeCandidates[T Identified](data []byte) (Decoded[T], error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Decoded[T]{}, err
	}

	out := Decoded[T]{
		Candidates: make([]T, 0, len(raw)),
		Positions:  make([]int, 0, len(raw)),
	}
	for i, elem := range raw {
		var c T
		if err := json.Unmarshal(elem, &c); err != nil {
			out.Rejected = append(out.Rejected, decodeRejection(i, elem, err))
			continue
		}
		out.Candidates = append(out.Candidates, c)
		out.Positions = append(out.Positions, i)
	}
	return out, nil
}

func decodeRejection(i int, elem json.RawMessage, err error) Rejection {
	var head struct {
		ID interface{} `json:"id"`
	}
	id := ""
	if json.Unmarshal(elem, &head) == nil {
		if s, ok := head.ID.(string); ok {
			id = s
		}
	}
	return Rejection{
		Index:       i,
		CandidateID: id,
		Code:        errors.ErrCodeCandidateEvaluationFailed,
		Reason:      fmt.Sprintf("%s: %s", reasonInvalidRecord, err),
	}
}

// ScoreDecodedRequesters is ScoreMany over a decoded array. Rejection
// indices refer to the original array.
func (e *Engine) ScoreDecodedRequesters(ctx context.Context, provider Provider, d Decoded[Requester], prefs MatchPreferences) (Batch[Requester], error) {
	batch, err := e.ScoreMany(ctx, provider, d.Candidates, prefs)
	return mergeDecoded(e, d, batch), err
}

// ScoreDecodedProviders is ScoreProviders over a decoded array.
func (e *Engine) ScoreDecodedProviders(ctx context.Context, requester Requester, d Decoded[Provider], prefs MatchPreferences) (Batch[Provider], error) {
	batch, err := e.ScoreProviders(ctx, requester, d.Candidates, prefs)
	return mergeDecoded(e, d, batch), err
}

func mergeDecoded[T Identified](e *Engine, d Decoded[T], b Batch[T]) Batch[T] {
	if d.Positions != nil {
		for i := range b.Rejected {
			if idx := b.Rejected[i].Index; idx >= 0 && idx < len(d.Positions) {
				b.Rejected[i].Index = d.Positions[idx]
			}
		}
	}
	if len(d.Rejected) == 0 {
		return b
	}

	for _, r := range d.Rejected {
		e.recorder.CandidateRejected(reasonInvalidRecord)
		e.logger.Warn("candidate dropped from batch", map[string]interface{}{
			"index":       r.Index,
			"candidateId": r.CandidateID,
			"reason":      reasonInvalidRecord,
			"error":       r.Reason,
		})
	}
	b.Rejected = append(b.Rejected, d.Rejected...)
	sort.SliceStable(b.Rejected, func(i, j int) bool {
		return b.Rejected[i].Index < b.Rejected[j].Index
	})
	return b
}
