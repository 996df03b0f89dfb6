package promotion

// Criteria configures how Engine.Promote evaluates pending items
// (spec.md §4.8).
type Criteria struct {
	// MinImportance is the threshold below which an item is skipped unless
	// the age or high-importance override applies.
	MinImportance float64
	// MaxAgeSeconds: items at least this old are promoted even if below
	// MinImportance.
	MaxAgeSeconds float64
	// MinConfidence is a policy cutoff reserved for future use; the current
	// algorithm computes and records confidence but does not gate on it.
	MinConfidence float64
	// InferTypes enables heuristic type inference for items with no Type set.
	InferTypes bool
	// BatchSize caps the number of items that consume a processing slot per
	// Promote call.
	BatchSize int
}

// DefaultCriteria returns the defaults spec.md §4.8 specifies.
func DefaultCriteria() Criteria {
	return Criteria{
		MinImportance: 0.5,
		MaxAgeSeconds: 300,
		MinConfidence: 0.3,
		InferTypes:    true,
		BatchSize:     10,
	}
}

// Mode selects how Promote treats items that do not qualify (spec.md §4.8).
type Mode int

const (
	// ModeImplicit promotes only qualifying items; non-qualifying items are
	// re-enqueued and do not consume a batch slot.
	ModeImplicit Mode = iota
	// ModeExplicit processes every item it reaches exactly once and never
	// re-enqueues a processed item; every processed item consumes a batch
	// slot.
	ModeExplicit
)

func (m Mode) String() string {
	if m == ModeExplicit {
		return "explicit"
	}
	return "implicit"
}
