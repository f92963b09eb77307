package agent

import "go-deep-research/internal/types"

// computePermissions derives which actions are allowed on the current
// step from the loop's accumulated state, per SPEC_FULL.md §4.J.
// Caller must hold a.mu.
func (a *Agent) computePermissions() types.ActionPermissions {
	if a.state.Kind == types.StateBeastMode {
		return types.BeastModeOnly()
	}

	return types.ActionPermissions{
		Search:  a.searchHasRoom(),
		Read:    a.hasUnvisitedURLs(),
		Reflect: !a.gapQueueSaturated(),
		Answer:  a.state.TotalStep >= a.config.MinStepsBeforeAnswer || a.config.AllowDirectAnswer,
	}
}

// searchHasRoom reports whether issuing more queries could plausibly
// surface new ground — i.e. the loop hasn't already exhausted every
// query it would naturally generate from the current gap questions.
// A concrete determination (would new queries survive dedup?) happens
// at dispatch time against the action's actual declared queries; this
// permission is a coarse default that always returns true, and queries
// that would not survive dedup are dropped in dispatchSearch.
func (a *Agent) searchHasRoom() bool {
	return true
}

func (a *Agent) hasUnvisitedURLs() bool {
	for _, s := range a.collectedURLs {
		if !a.visitedURLs[s.URL] && !a.badURLs[s.URL] {
			return true
		}
	}
	return false
}

// gapQueueSaturated reports whether the gap-question queue is large
// enough that further reflection would mostly duplicate existing
// entries.
func (a *Agent) gapQueueSaturated() bool {
	return len(a.gapQuestions) >= a.config.MaxReflectPerStep*4
}
