// Package promotion implements the Promotion Engine described in
// spec.md §4.8: evaluating pending memory candidates and transferring
// qualified ones into long-term memory.
package promotion

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/jidoka-ai/memengine/pkg/clock"
	"github.com/jidoka-ai/memengine/pkg/ltm"
	"github.com/jidoka-ai/memengine/pkg/pending"
)

// PromotedRecord describes one item the engine persisted to LTM.
type PromotedRecord struct {
	ID         string
	Type       pending.MemoryType
	Confidence float64
	Reason     string
}

// SkippedRecord describes one item the engine declined to promote this call.
type SkippedRecord struct {
	ID     string
	Reason string
}

// FailedRecord describes one item the engine could not process.
type FailedRecord struct {
	ID     string
	Reason string
}

// Result is the outcome of one Promote call (spec.md §4.8).
type Result struct {
	Promoted []PromotedRecord
	Skipped  []SkippedRecord
	Failed   []FailedRecord

	// Remaining holds the items to re-enqueue onto the live pending queue:
	// in ModeImplicit, any item skipped or failed to persist this call
	// (invalid items are not re-enqueued); in both modes, any item never
	// reached because the batch budget, a repeated id, or cancellation ended
	// the call early.
	Remaining []pending.Item
}

// Engine evaluates pending items and persists the qualifying ones via an
// ltm.Adapter.
type Engine struct {
	adapter ltm.Adapter
	clock   clock.Clock
	log     zerolog.Logger
}

// New returns an Engine using the system clock.
func New(adapter ltm.Adapter, log zerolog.Logger) *Engine {
	return NewWithClock(adapter, log, clock.System{})
}

// NewWithClock is like New but lets tests inject a fake clock.
func NewWithClock(adapter ltm.Adapter, log zerolog.Logger, c clock.Clock) *Engine {
	return &Engine{
		adapter: adapter,
		clock:   c,
		log:     log.With().Str("component", "promotion.Engine").Logger(),
	}
}

// Promote evaluates items (the current contents of a session's pending
// queue, head first) against criteria and persists qualifying ones into
// graph. It returns which items were promoted, skipped, or failed, and which
// items the caller should re-enqueue onto the live queue.
//
// items is treated as a FIFO: up to criteria.BatchSize unique items consume
// a processing slot. Items to re-enqueue are collected in Remaining rather
// than put back on the batch being evaluated, so each item is evaluated at
// most once per call; a per-call processed-id set also ends the call as soon
// as an id already evaluated comes up again (spec.md §4.8).
func (e *Engine) Promote(ctx context.Context, items []pending.Item, criteria Criteria, mode Mode, graph ltm.NamedGraph) (Result, error) {
	queue := pending.New(len(items) + 1)
	for _, it := range items {
		if err := queue.Enqueue(it); err != nil {
			return Result{}, fmt.Errorf("promotion: seed batch: %w", err)
		}
	}

	var result Result
	processed := make(map[string]bool, len(items))
	now := e.clock.Now()
	batchUsed := 0

	for batchUsed < criteria.BatchSize && !queue.Empty() {
		item, err := queue.Dequeue()
		if err != nil {
			break
		}

		if processed[item.ID] {
			result.Remaining = append(result.Remaining, e.drainRemaining(item, queue)...)
			return result, nil
		}
		processed[item.ID] = true

		select {
		case <-ctx.Done():
			result.Remaining = append(result.Remaining, e.drainRemaining(item, queue)...)
			return result, fmt.Errorf("promotion: %w", ctx.Err())
		default:
		}

		ev := e.evaluate(item, criteria, now)

		switch ev.decision {
		case decisionInvalid:
			result.Failed = append(result.Failed, FailedRecord{ID: item.ID, Reason: "invalid: missing data or id"})
			batchUsed++
			continue

		case decisionSkip:
			result.Skipped = append(result.Skipped, SkippedRecord{ID: item.ID, Reason: ev.reason})
			if mode == ModeImplicit {
				result.Remaining = append(result.Remaining, item)
				continue // re-enqueued items never consume a batch slot
			}
			batchUsed++
			continue

		case decisionPromote:
			mem := e.buildMemory(item, ev, graph, now)
			if err := e.adapter.Persist(ctx, mem); err != nil {
				e.log.Warn().Err(err).Str("item_id", item.ID).Msg("promotion persist failed")
				result.Failed = append(result.Failed, FailedRecord{ID: item.ID, Reason: fmt.Sprintf("persist: %v", err)})
				batchUsed++
				if mode == ModeImplicit {
					result.Remaining = append(result.Remaining, item)
				}
				continue
			}
			result.Promoted = append(result.Promoted, PromotedRecord{ID: item.ID, Type: ev.memType, Confidence: ev.confidence, Reason: ev.reason})
			batchUsed++
		}
	}

	// Items the batch budget never reached stay pending in either mode.
	result.Remaining = append(result.Remaining, queue.All()...)
	return result, nil
}

// drainRemaining returns cycled together with whatever is still queued, used
// when the call ends early on a repeat or a cancellation.
func (e *Engine) drainRemaining(cycled pending.Item, queue *pending.Queue) []pending.Item {
	out := append([]pending.Item{cycled}, queue.All()...)
	return out
}

type decision int

const (
	decisionPromote decision = iota
	decisionSkip
	decisionInvalid
)

type evaluation struct {
	decision   decision
	memType    pending.MemoryType
	confidence float64
	reason     string
}

// evaluate implements spec.md §4.8 steps 1-5.
func (e *Engine) evaluate(item pending.Item, criteria Criteria, now time.Time) evaluation {
	if item.ID == "" || item.Data == nil {
		return evaluation{decision: decisionInvalid}
	}

	typeProvided := item.Type != nil
	memType := pending.TypeFact
	switch {
	case typeProvided:
		memType = *item.Type
	case criteria.InferTypes:
		memType = inferType(item.Data)
	}

	ageSeconds := now.Sub(item.Timestamp).Seconds()
	if ageSeconds < 0 {
		ageSeconds = 0
	}

	qualifies := item.Importance >= criteria.MinImportance ||
		ageSeconds >= criteria.MaxAgeSeconds ||
		item.Importance >= 0.8 // high-importance override, regardless of age

	if !qualifies {
		return evaluation{decision: decisionSkip, memType: memType, reason: "below_criteria"}
	}

	typeSpecificity := 0.5
	if typeProvided {
		typeSpecificity = 1.0
	}
	recencyBonus := ageSeconds / criteria.MaxAgeSeconds
	if recencyBonus > 1.0 {
		recencyBonus = 1.0
	} else if recencyBonus < 0 {
		recencyBonus = 0
	}

	confidence := 0.4*item.Importance + 0.3*dataQuality(item.Data) + 0.2*typeSpecificity + 0.1*recencyBonus
	confidence = clamp01(confidence)
	confidence = math.Round(confidence*1000) / 1000

	return evaluation{
		decision:   decisionPromote,
		memType:    memType,
		confidence: confidence,
		reason:     promotionReason(item, memType),
	}
}

// promotionReason produces the informational label spec.md §4.8 describes.
func promotionReason(item pending.Item, memType pending.MemoryType) string {
	switch {
	case item.Importance >= 0.8:
		return "high_importance"
	case memType == pending.TypeDecision:
		return "decision"
	case memType == pending.TypeConvention:
		return "user_preference"
	default:
		return "meets_criteria"
	}
}

func (e *Engine) buildMemory(item pending.Item, ev evaluation, graph ltm.NamedGraph, now time.Time) ltm.Memory {
	verified := false
	if item.Verified != nil {
		verified = *item.Verified
	}
	return ltm.Memory{
		ID:         item.ID,
		Type:       ev.memType,
		Content:    item.Data,
		Importance: item.Importance,
		Confidence: ev.confidence,
		Source:     "promotion_engine",
		Verified:   verified,
		CreatedAt:  item.Timestamp,
		UpdatedAt:  now,
		Graph:      graph,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
