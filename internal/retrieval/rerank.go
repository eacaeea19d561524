package retrieval

import (
	"sort"

	"github.com/lerianstudio/memory-retrieval/internal/config"
	"github.com/lerianstudio/memory-retrieval/internal/types"
)

// Rerank fuses candidates from all channels into proportional quotas,
// interleaving with a novelty boost for candidates introducing unseen query
// terms and a stable final tie-break. The anti-source-collapse cap of two
// consecutive same-source picks only applies in hybrid mode, where multiple
// channels are expected to interleave; memory and code routes are
// single-channel-dominant by design and are left in pure relevance order.
func Rerank(candidates []types.Candidate, ratio config.RouteRatio, route types.Route) []types.Candidate {
	if len(candidates) == 0 {
		return nil
	}
	collapseGuard := route == types.RouteHybrid

	bySource := map[types.Source][]types.Candidate{}
	for _, c := range candidates {
		bySource[c.Source] = append(bySource[c.Source], c)
	}
	for src := range bySource {
		sortByRelevanceDesc(bySource[src])
	}

	quotas := quotasFor(len(candidates), ratio)

	order := []types.Source{types.SourceRAG, types.SourceKAG, types.SourceGraphRAG}
	idx := map[types.Source]int{}

	coveredTerms := map[string]struct{}{}
	lastTwo := []types.Source{}
	var out []types.Candidate

	remaining := func() int {
		total := 0
		for _, s := range order {
			total += quotas[s] - idx[s]
		}
		return total
	}

	for remaining() > 0 && len(out) < len(candidates) {
		best := pickNext(order, bySource, idx, quotas, lastTwo, coveredTerms, collapseGuard)
		if best == nil {
			break
		}
		out = append(out, *best)
		idx[best.Source]++
		for t := range best.QueryTerms {
			coveredTerms[t] = struct{}{}
		}
		lastTwo = append(lastTwo, best.Source)
		if len(lastTwo) > 2 {
			lastTwo = lastTwo[len(lastTwo)-2:]
		}
	}

	// Any leftover candidates (quotas exhausted before the pool did) are
	// appended in relevance order so nothing is silently dropped.
	seen := map[string]struct{}{}
	for _, c := range out {
		seen[c.ID] = struct{}{}
	}
	var leftover []types.Candidate
	for _, c := range candidates {
		if _, ok := seen[c.ID]; !ok {
			leftover = append(leftover, c)
		}
	}
	sortByRelevanceDesc(leftover)
	out = append(out, leftover...)

	return out
}

// quotasFor computes per-source quotas proportional to ratio: floor each
// share, then distribute the remainder to the sources with the largest
// fractional part (step 1).
func quotasFor(total int, ratio config.RouteRatio) map[types.Source]int {
	shares := map[types.Source]float64{
		types.SourceRAG:      ratio.RAG,
		types.SourceKAG:      ratio.KAG,
		types.SourceGraphRAG: ratio.GraphRAG,
	}
	sum := shares[types.SourceRAG] + shares[types.SourceKAG] + shares[types.SourceGraphRAG]
	if sum <= 0 {
		shares[types.SourceRAG] = 1
		sum = 1
	}

	quotas := map[types.Source]int{}
	fracs := map[types.Source]float64{}
	assigned := 0
	for src, share := range shares {
		exact := float64(total) * share / sum
		floor := int(exact)
		quotas[src] = floor
		fracs[src] = exact - float64(floor)
		assigned += floor
	}

	order := []types.Source{types.SourceRAG, types.SourceKAG, types.SourceGraphRAG}
	remainder := total - assigned
	for remainder > 0 {
		bestSrc := order[0]
		bestFrac := -1.0
		for _, src := range order {
			if fracs[src] > bestFrac {
				bestFrac = fracs[src]
				bestSrc = src
			}
		}
		quotas[bestSrc]++
		fracs[bestSrc] = -1 // consumed
		remainder--
	}
	return quotas
}

func pickNext(order []types.Source, bySource map[types.Source][]types.Candidate, idx, quotas map[types.Source]int,
	lastTwo []types.Source, coveredTerms map[string]struct{}, collapseGuard bool) *types.Candidate {

	collapsed := collapseGuard && len(lastTwo) == 2 && lastTwo[0] == lastTwo[1]

	var bestSrc types.Source
	var best *types.Candidate
	bestScore := -1.0

	for _, src := range order {
		if idx[src] >= quotas[src] || idx[src] >= len(bySource[src]) {
			continue
		}
		if collapsed && src == lastTwo[1] {
			continue // source-collapse constraint: no third consecutive same-source pick
		}
		cand := bySource[src][idx[src]]
		score := cand.Relevance + novelty(cand, coveredTerms)
		if score > bestScore {
			bestScore = score
			bestSrc = src
			c := cand
			best = &c
		}
	}

	// Every source is either exhausted or blocked by the collapse guard;
	// relax the guard rather than stall the fusion.
	if best == nil {
		for _, src := range order {
			if idx[src] >= quotas[src] || idx[src] >= len(bySource[src]) {
				continue
			}
			cand := bySource[src][idx[src]]
			score := cand.Relevance + novelty(cand, coveredTerms)
			if score > bestScore {
				bestScore = score
				bestSrc = src
				c := cand
				best = &c
			}
		}
	}
	_ = bestSrc
	return best
}

// novelty rewards a candidate for introducing query terms not covered by
// already-selected candidates (step 3).
func novelty(c types.Candidate, covered map[string]struct{}) float64 {
	if len(c.QueryTerms) == 0 {
		return 0
	}
	newTerms := 0
	for t := range c.QueryTerms {
		if _, ok := covered[t]; !ok {
			newTerms++
		}
	}
	fraction := float64(newTerms) / float64(len(c.QueryTerms))
	return fraction * c.Relevance
}

func sortByRelevanceDesc(cs []types.Candidate) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Relevance > cs[j].Relevance })
}
