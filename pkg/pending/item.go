package pending

import "time"

// MemoryType is the closed set of memory kinds the engine recognizes
// (spec.md §3.1). It is a tagged variant, not a class hierarchy: every
// consumer pattern-matches on it rather than subclassing.
type MemoryType string

const (
	TypeFact           MemoryType = "fact"
	TypeAssumption     MemoryType = "assumption"
	TypeHypothesis     MemoryType = "hypothesis"
	TypeDiscovery      MemoryType = "discovery"
	TypeRisk           MemoryType = "risk"
	TypeUnknown        MemoryType = "unknown"
	TypeDecision       MemoryType = "decision"
	TypeTask           MemoryType = "task"
	TypeConvention     MemoryType = "convention"
	TypeError          MemoryType = "error"
	TypeLessonLearned  MemoryType = "lesson_learned"
	TypeConversation   MemoryType = "conversation"
	TypeAnalysis       MemoryType = "analysis"
	TypeFileContext    MemoryType = "file_context"
)

// Item is a candidate record queued in STM for future promotion to LTM
// (spec.md §3.1).
type Item struct {
	ID         string
	Type       *MemoryType // nil means "infer at promotion time"
	Data       map[string]any
	Importance float64
	Timestamp  time.Time
	Verified   *bool
}
