package memento

import (
	"context"
	"sort"
	"strings"
	"time"
)

// RecallQuery narrows and orders a recall() call (spec.md §4.5).
type RecallQuery struct {
	Query             string
	Limit             int
	People            []string
	MinSalience       int
	From, To          *time.Time
	ProjectTag        string
	IncludeSuppressed bool
}

// RecallResult pairs a Memory with its computed relevance and final rank.
type RecallResult struct {
	Memory    Memory
	Relevance float64
	Rank      float64
}

// fallbackRelevance is used when no vector signal is available for a
// candidate — metadata-only recall per the provider-downgrade policy
// (spec.md §7).
const fallbackRelevance = 0.5

// Recall returns up to q.Limit memories ordered by rank = 0.65·relevance +
// 0.35·(salience/100), ties broken by more-recent createdAt.
func (m *Memento) Recall(ctx context.Context, user string, q RecallQuery) ([]RecallResult, error) {
	states := []ForgottenState{StateActive}
	if q.IncludeSuppressed {
		states = append(states, StateSuppressed, StateArchived)
	}

	candidates, err := m.store.FindMemories(MemoryFilter{
		User:            user,
		ForgottenStates: states,
		ProjectTag:      q.ProjectTag,
		Since:           q.From,
	})
	if err != nil {
		return nil, err
	}

	relevance := make(map[string]float64, len(candidates))
	byID := make(map[string]Memory, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
		relevance[c.ID] = fallbackRelevance
	}

	if strings.TrimSpace(q.Query) != "" && m.embedder != nil && m.vectors != nil {
		vctx, cancel := context.WithTimeout(ctx, msDuration(m.config.EmbedderTimeoutMs))
		defer cancel()

		qvec, err := m.embedder.Embed(vctx, q.Query, "RETRIEVAL_QUERY")
		if err != nil {
			logf("retrieval", "embed query failed, falling back to metadata-only recall: %v", err)
		} else {
			matches, err := m.vectors.Search(vctx, user, qvec, VectorFilters{User: user, ForgottenState: StateActive}, 50)
			if err != nil {
				logf("retrieval", "vector search failed, falling back to metadata-only recall: %v", err)
			} else {
				for _, mt := range matches {
					if _, known := byID[mt.MemoryID]; !known {
						mem, err := m.store.GetMemory(mt.MemoryID)
						if err != nil {
							continue
						}
						byID[mt.MemoryID] = mem
						candidates = append(candidates, mem)
					}
					relevance[mt.MemoryID] = clamp01(1 - mt.Distance)
				}
			}
		}
	}

	var results []RecallResult
	for _, mem := range candidates {
		if mem.Salience < q.MinSalience {
			continue
		}
		if q.To != nil && mem.CreatedAt.After(*q.To) {
			continue
		}
		if len(q.People) > 0 && !anyPersonMatch(mem.Features.People, q.People) {
			continue
		}
		rel := relevance[mem.ID]
		rank := 0.65*rel + 0.35*(float64(mem.Salience)/100.0)
		results = append(results, RecallResult{Memory: mem, Relevance: rel, Rank: rank})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Rank != results[j].Rank {
			return results[i].Rank > results[j].Rank
		}
		return results[i].Memory.CreatedAt.After(results[j].Memory.CreatedAt)
	})

	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

func anyPersonMatch(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, h := range have {
		set[strings.ToLower(h)] = true
	}
	for _, w := range want {
		if set[strings.ToLower(w)] {
			return true
		}
	}
	return false
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

// Vote is one up/down adjustment targeting a memory's salience.
type Vote struct {
	MemoryID string
	Up       bool
}

// VoteOnMemories adjusts each memory's salience by ±3 (clamped 0..100) and
// records the vote timestamp (spec.md §4.5).
func (m *Memento) VoteOnMemories(votes []Vote) error {
	now := time.Now()
	for _, v := range votes {
		var opErr error
		m.locks.withKey(memoryKey(v.MemoryID), func() {
			mem, err := m.store.GetMemory(v.MemoryID)
			if err != nil {
				opErr = err
				return
			}
			delta := -3
			if v.Up {
				delta = 3
			}
			mem.Salience = clampInt(mem.Salience+delta, 0, 100)
			mem.LastVotedAt = &now
			opErr = m.store.UpdateMemoryState(mem)
		})
		if opErr != nil {
			logf("retrieval", "vote on %s failed: %v", v.MemoryID, opErr)
		}
	}
	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
