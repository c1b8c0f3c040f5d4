package memory

import (
	"sort"
	"time"
	"unicode/utf8"

	"github.com/MrWong99/mnemosyne/pkg/memory/shape"
)

// AssembleBootstrap applies the retrieval policy to raw pinned and recent
// records: pinned items come first, the recent set is deduplicated against
// them, scored with the content shaper, and admitted greedily under the
// character budget. The function is pure — backends feed it their query
// results and the caller's clock — so every backend ranks identically.
//
// Pinned items are never dropped for budget reasons, but they count toward
// MaxItems and their shaped cost accrues against the budget before any
// recent item is admitted. A recent item that would overflow the budget is
// skipped rather than ending the fill: a smaller later item may still fit.
// Costs and the budget (MaxTokens × 4) are measured in code points of the
// shaped content plus the title.
//
// Both returned slices are non-nil.
func AssembleBootstrap(p BootstrapParams, pinned, recent []ItemRecord, now time.Time) (pinnedOut, recentOut []BootstrapItem) {
	p = p.Normalized()

	pinnedIDs := make(map[string]bool, len(pinned))
	for _, rec := range pinned {
		pinnedIDs[rec.ID] = true
	}

	type scored struct {
		rec   ItemRecord
		score float64
	}
	candidates := make([]scored, 0, len(recent))
	for _, rec := range recent {
		if pinnedIDs[rec.ID] {
			continue
		}
		s := shape.Score(rec.Kind, rec.UpdatedAt, rec.WorkspaceHint, p.WorkspaceHint, rec.Importance, now)
		candidates = append(candidates, scored{rec: rec, score: s})
	}
	// Stable keeps the store's updated_at DESC order among equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	budget := p.MaxTokens * 4
	used := 0

	pinnedOut = make([]BootstrapItem, 0, len(pinned))
	for _, rec := range pinned {
		shaped := shape.SelectContent(rec.Kind, rec.Content, rec.ContentCompact, p.Mode)
		used += itemCost(rec.Title, shaped)
		pinnedOut = append(pinnedOut, FormatBootstrapItem(rec, shaped))
		if len(pinnedOut) >= p.MaxItems {
			break
		}
	}

	recentOut = make([]BootstrapItem, 0, p.MaxItems-len(pinnedOut))
	for _, c := range candidates {
		if len(pinnedOut)+len(recentOut) >= p.MaxItems {
			break
		}
		shaped := shape.SelectContent(c.rec.Kind, c.rec.Content, c.rec.ContentCompact, p.Mode)
		cost := itemCost(c.rec.Title, shaped)
		if p.MaxTokens > 0 && used+cost > budget {
			continue
		}
		recentOut = append(recentOut, FormatBootstrapItem(c.rec, shaped))
		used += cost
	}

	return pinnedOut, recentOut
}

// itemCost is an item's weight against the bootstrap budget.
func itemCost(title, shaped string) int {
	return utf8.RuneCountInString(shaped) + utf8.RuneCountInString(title)
}
