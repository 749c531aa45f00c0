// Package similarity answers "what looks like X" and "what is duplicated"
// over the fingerprinted corpus. Every operation is a read-only scan; items
// without a fingerprint or flagged unusable are silently excluded.
package similarity

import (
	"sort"

	"github.com/rs/zerolog"

	"medialib/hash"
	"medialib/types"
)

// Store is the slice of the record store the engine reads from.
type Store interface {
	GetMediaByID(id int64) (*types.MediaRecord, error)
	ListFingerprinted() ([]types.MediaRecord, error)
	ListContentHashed() ([]types.MediaRecord, error)
	TagsOf(mediaID int64) ([]int64, error)
	ItemsSharingTag(tagID int64) ([]int64, error)
}

// Options are the engine's policy constants.
type Options struct {
	// Thresholds bucket similarity scores into tiers.
	Thresholds hash.Thresholds

	// MoreLikeThisMinSimilarity is the relaxed fingerprint threshold used
	// by recommendations before the tag fallback kicks in.
	MoreLikeThisMinSimilarity int

	// Tag-overlap fallback scoring: base + step per shared tag, capped so
	// a synthetic score never outranks a strong fingerprint match.
	TagSimilarityBase int
	TagSimilarityStep int
	TagSimilarityCap  int
}

// DefaultOptions returns the stock policy.
func DefaultOptions() Options {
	return Options{
		Thresholds:                hash.DefaultThresholds(),
		MoreLikeThisMinSimilarity: 60,
		TagSimilarityBase:         50,
		TagSimilarityStep:         10,
		TagSimilarityCap:          90,
	}
}

// Engine runs similarity search and duplicate clustering against a store.
type Engine struct {
	store  Store
	opts   Options
	logger zerolog.Logger
}

// NewEngine wires an engine to its record store.
func NewEngine(store Store, opts Options, logger zerolog.Logger) *Engine {
	return &Engine{store: store, opts: opts, logger: logger}
}

// FindSimilar scans every other fingerprinted, usable item and returns
// those scoring at least minSimilarity against the target, best first (ties
// broken by ascending candidate id), truncated to limit (<= 0 for no
// limit). A target without a fingerprint yields an empty result, not an
// error. Cost is one full corpus scan per call.
func (e *Engine) FindSimilar(targetID int64, minSimilarity, limit int, sameKindOnly bool) ([]types.Match, error) {
	target, err := e.store.GetMediaByID(targetID)
	if err != nil {
		return nil, err
	}
	if target == nil || target.Excluded || target.Fingerprint == "" {
		return nil, nil
	}

	corpus, err := e.store.ListFingerprinted()
	if err != nil {
		return nil, err
	}

	matches := make([]types.Match, 0)
	for _, rec := range corpus {
		if rec.ID == target.ID || rec.Excluded || rec.Fingerprint == "" {
			continue
		}
		if sameKindOnly && rec.Kind != target.Kind {
			continue
		}
		similarity := hash.Similarity(target.Fingerprint, rec.Fingerprint)
		if similarity < minSimilarity {
			continue
		}
		matches = append(matches, types.Match{
			TargetID:    target.ID,
			CandidateID: rec.ID,
			Distance:    hash.Distance(target.Fingerprint, rec.Fingerprint),
			Similarity:  similarity,
			Tier:        string(e.opts.Thresholds.Tier(similarity)),
			Source:      types.MatchByFingerprint,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].CandidateID < matches[j].CandidateID
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// FindAllDuplicateGroups clusters the whole corpus at the given threshold
// with one greedy single-link sweep in store order (most recent first). A
// candidate joins the group under construction when it matches ANY current
// member; emitted groups mark their members so they cannot seed or join
// another group. This is deliberately not transitive closure: whether two
// items that only share a common neighbor end up grouped depends on scan
// order. Cost is O(n²) fingerprint comparisons, which is the scaling limit
// of this engine (fine for tens of thousands of items).
func (e *Engine) FindAllDuplicateGroups(minSimilarity, minGroupSize int) ([]types.DuplicateGroup, error) {
	corpus, err := e.store.ListFingerprinted()
	if err != nil {
		return nil, err
	}
	if minGroupSize < 2 {
		minGroupSize = 2
	}

	assigned := make([]bool, len(corpus))
	var groups []types.DuplicateGroup

	for i := range corpus {
		if assigned[i] {
			continue
		}

		members := []int{i}
		var linkScores []int
		for j := i + 1; j < len(corpus); j++ {
			if assigned[j] {
				continue
			}
			for _, m := range members {
				score := hash.Similarity(corpus[m].Fingerprint, corpus[j].Fingerprint)
				if score >= minSimilarity {
					members = append(members, j)
					linkScores = append(linkScores, score)
					break
				}
			}
		}

		if len(members) < minGroupSize {
			continue
		}

		ids := make([]int64, len(members))
		for k, idx := range members {
			ids[k] = corpus[idx].ID
			assigned[idx] = true
		}
		groups = append(groups, types.DuplicateGroup{
			IDs:               ids,
			AverageSimilarity: average(linkScores),
		})
	}

	e.logger.Debug().
		Int("corpus", len(corpus)).
		Int("groups", len(groups)).
		Int("min_similarity", minSimilarity).
		Msg("duplicate clustering pass complete")
	return groups, nil
}

func average(scores []int) int {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return sum / len(scores)
}

// GetMoreLikeThis returns up to limit recommendations for an item: first
// fingerprint neighbors at the relaxed threshold, then a tag-overlap
// fallback so items with sparse fingerprint coverage still get non-empty
// recommendations. Tag-based scores are synthetic and capped, so they never
// claim exactness.
func (e *Engine) GetMoreLikeThis(targetID int64, limit int) ([]types.Match, error) {
	if limit <= 0 {
		limit = 20
	}

	matches, err := e.FindSimilar(targetID, e.opts.MoreLikeThisMinSimilarity, limit*2, false)
	if err != nil {
		return nil, err
	}
	if len(matches) >= limit {
		return matches[:limit], nil
	}

	seen := map[int64]bool{targetID: true}
	for _, m := range matches {
		seen[m.CandidateID] = true
	}

	tagIDs, err := e.store.TagsOf(targetID)
	if err != nil {
		// The fallback is best-effort; fingerprint results stand on their own.
		e.logger.Warn().Err(err).Int64("id", targetID).Msg("tag fallback unavailable")
		return matches, nil
	}

	shared := make(map[int64]int)
	for _, tagID := range tagIDs {
		ids, err := e.store.ItemsSharingTag(tagID)
		if err != nil {
			e.logger.Warn().Err(err).Int64("tag", tagID).Msg("skipping tag in fallback")
			continue
		}
		for _, id := range ids {
			if !seen[id] {
				shared[id]++
			}
		}
	}

	candidates := make([]int64, 0, len(shared))
	for id := range shared {
		candidates = append(candidates, id)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if shared[candidates[i]] != shared[candidates[j]] {
			return shared[candidates[i]] > shared[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})

	for _, id := range candidates {
		if len(matches) >= limit {
			break
		}
		rec, err := e.store.GetMediaByID(id)
		if err != nil {
			return nil, err
		}
		if rec == nil || rec.Excluded {
			continue
		}
		score := e.opts.TagSimilarityBase + e.opts.TagSimilarityStep*shared[id]
		if score > e.opts.TagSimilarityCap {
			score = e.opts.TagSimilarityCap
		}
		matches = append(matches, types.Match{
			TargetID:    targetID,
			CandidateID: id,
			Distance:    -1,
			Similarity:  score,
			Tier:        string(e.opts.Thresholds.Tier(score)),
			Source:      types.MatchByTags,
		})
	}

	return matches, nil
}

// FindExactDuplicates groups byte-identical items by their strong content
// hash. This is a separate, simpler notion than perceptual similarity and
// stays a distinct operation so callers know which guarantee they get.
func (e *Engine) FindExactDuplicates() ([]types.ExactDuplicateGroup, error) {
	records, err := e.store.ListContentHashed()
	if err != nil {
		return nil, err
	}

	var groups []types.ExactDuplicateGroup
	var current types.ExactDuplicateGroup
	flush := func() {
		if len(current.Items) > 1 {
			groups = append(groups, current)
		}
		current = types.ExactDuplicateGroup{}
	}

	for _, rec := range records {
		if rec.ContentHash != current.ContentHash {
			flush()
			current.ContentHash = rec.ContentHash
		}
		current.Items = append(current.Items, rec)
	}
	flush()

	return groups, nil
}

// GetDuplicateStats reports how much storage exact duplicates could free:
// (group size - 1) x item size, summed over groups.
func (e *Engine) GetDuplicateStats() (types.DuplicateStats, error) {
	groups, err := e.FindExactDuplicates()
	if err != nil {
		return types.DuplicateStats{}, err
	}

	var stats types.DuplicateStats
	for _, g := range groups {
		stats.Groups++
		stats.Items += len(g.Items)
		stats.ReclaimableBytes += int64(len(g.Items)-1) * g.Items[0].Size
	}
	return stats, nil
}
