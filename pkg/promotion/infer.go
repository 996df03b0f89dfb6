package promotion

import "github.com/jidoka-ai/memengine/pkg/pending"

// inferType applies the data-key heuristics of spec.md §4.8 step 2, in the
// specified priority order.
func inferType(data map[string]any) pending.MemoryType {
	if hasAnyKey(data, "file_path", "file", "path", "code", "module", "function") {
		return pending.TypeFileContext
	}
	if hasAnyKey(data, "analysis", "conclusion", "reasoning", "summary", "finding") {
		return pending.TypeAnalysis
	}
	if hasAnyKey(data, "message", "utterance", "role", "content", "user", "assistant") {
		return pending.TypeConversation
	}
	return pending.TypeFact
}

func hasAnyKey(data map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := data[k]; ok {
			return true
		}
	}
	return false
}

// dataQuality scores the shape of data per spec.md §4.8 step 5: 0 for empty,
// 1.0 for 3+ keys, 0.5 otherwise, plus a 0.2 bonus (capped at 1.0) if any
// value is itself a nested map.
func dataQuality(data map[string]any) float64 {
	var base float64
	switch n := len(data); {
	case n == 0:
		base = 0
	case n >= 3:
		base = 1.0
	default:
		base = 0.5
	}

	for _, v := range data {
		if _, ok := v.(map[string]any); ok {
			base += 0.2
			break
		}
	}
	if base > 1.0 {
		base = 1.0
	}
	return base
}
