// Package prefilter narrows the catalog down to a handful of plausible
// identities per slot using hash distance alone, before the more
// expensive overlay detection and SSIM matching stages run.
package prefilter

import (
	"context"
	"math"
	"sort"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
	"github.com/phillipod/sister-sto/internal/hashindex"
)

// Config controls the fixed query radii and rank-walk tuning the
// adaptive cutoff uses.
type Config struct {
	PHashRadius int // 18
	DHashRadius int // 10
	RankWalkGap int // 6: stop extending a rank once the next tier exceeds this far
	RankWalkMax int // 2: at most this many extra ranks beyond best
}

// DefaultConfig returns the tuned query radii and rank-walk bounds.
func DefaultConfig() Config {
	return Config{PHashRadius: 18, DHashRadius: 10, RankWalkGap: 6, RankWalkMax: 2}
}

const (
	hashKindPHash = "phash"
	hashKindDHash = "dhash"
)

// bestHit tracks the smallest distance seen for one catalog file across
// both hash kinds, and which kind/overlay produced it.
type bestHit struct {
	distance    int
	hashKind    string
	overlayName string
	metadata    []catalogmodel.CatalogMetadata
}

// Run queries idx for the given slot's two hashes, restricted to the
// category folders the slot's icon set allows, and returns the adaptive-
// cutoff shortlist of candidates. Queries are independent per hash kind
// and can be cancelled via ctx.
func Run(ctx context.Context, idx *hashindex.HashIndex, slot catalogmodel.Slot, allowedCategories []string, cfg Config) ([]catalogmodel.MatchCandidate, error) {
	hits := make(map[string]*bestHit)

	if err := queryInto(idx, hashKindPHash, slot.PHash, cfg.PHashRadius, allowedCategories, hits); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err := queryInto(idx, hashKindDHash, slot.DHash, cfg.DHashRadius, allowedCategories, hits); err != nil {
		return nil, err
	}

	if len(hits) == 0 {
		return nil, nil
	}

	distances := make([]int, 0, len(hits))
	for _, h := range hits {
		distances = append(distances, h.distance)
	}
	sort.Ints(distances)
	cutoff := adaptiveCutoff(distances, cfg)

	candidates := make([]catalogmodel.MatchCandidate, 0, len(hits))
	for path, h := range hits {
		if h.distance > cutoff {
			continue
		}
		candidates = append(candidates, catalogmodel.MatchCandidate{
			FilePath:       path,
			OverlayName:    h.overlayName,
			HashKind:       h.hashKind,
			Distance:       h.distance,
			MatchThreshold: cutoff,
			MetadataList:   h.metadata,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].FilePath < candidates[j].FilePath
	})
	return candidates, nil
}

// queryInto runs one hash-kind query and folds results into hits,
// keeping only the smallest distance seen per file across hash kinds.
func queryInto(idx *hashindex.HashIndex, hashKind string, target uint64, radius int, allowedCategories []string, hits map[string]*bestHit) error {
	results, err := idx.FindSimilar(hashKind, target, radius, 0, nil)
	if err != nil {
		return err
	}
	for _, r := range results {
		allowed := filterByCategory(r.MetadataList, allowedCategories)
		if len(allowed) == 0 {
			continue
		}
		existing, ok := hits[r.FilePath]
		if ok && existing.distance <= r.Distance {
			continue
		}
		overlay := ""
		if len(allowed) > 0 {
			overlay = allowed[0].OverlayName
		}
		hits[r.FilePath] = &bestHit{
			distance:    r.Distance,
			hashKind:    hashKind,
			overlayName: overlay,
			metadata:    allowed,
		}
	}
	return nil
}

func filterByCategory(metadata []catalogmodel.CatalogMetadata, allowed []string) []catalogmodel.CatalogMetadata {
	if len(allowed) == 0 {
		return metadata
	}
	out := make([]catalogmodel.CatalogMetadata, 0, len(metadata))
	for _, m := range metadata {
		if catalogmodel.CategoryAllowed(m.ImageCategory, allowed) {
			out = append(out, m)
		}
	}
	return out
}

// adaptiveCutoff computes ceil(max(stddev_cut, rank_cut)) over a sorted
// distance list: the top hit plus near-ties survive while distant
// outliers are rejected, without a global threshold that would either
// starve clean slots or flood noisy ones.
func adaptiveCutoff(sortedDistances []int, cfg Config) int {
	best := sortedDistances[0]

	stddevCut := 0.0
	if len(sortedDistances) >= 2 {
		mean := 0.0
		for _, d := range sortedDistances {
			mean += float64(d)
		}
		mean /= float64(len(sortedDistances))
		variance := 0.0
		for _, d := range sortedDistances {
			diff := float64(d) - mean
			variance += diff * diff
		}
		variance /= float64(len(sortedDistances) - 1)
		stddevCut = float64(best) + 2*math.Sqrt(variance)
	}

	rankCut := rankWalk(sortedDistances, cfg)

	cutoff := stddevCut
	if float64(rankCut) > cutoff {
		cutoff = float64(rankCut)
	}
	return int(math.Ceil(cutoff))
}

// rankWalk walks unique distances upward from best, extending one rank
// at a time, stopping when the next tier is more than RankWalkGap beyond
// the previous tier or after RankWalkMax extra ranks.
func rankWalk(sortedDistances []int, cfg Config) int {
	unique := dedupSorted(sortedDistances)
	cut := unique[0]
	ranks := 0
	for i := 1; i < len(unique); i++ {
		if ranks >= cfg.RankWalkMax {
			break
		}
		if unique[i]-cut > cfg.RankWalkGap {
			break
		}
		cut = unique[i]
		ranks++
	}
	return cut
}

func dedupSorted(sorted []int) []int {
	out := make([]int, 0, len(sorted))
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}
