package completion

import (
	"sort"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// fuzzyFilter keeps the options whose match text contains pattern as an fzf
// fuzzy match, best score first. Ties keep declaration order.
func fuzzyFilter(pool []option, pattern string) []option {
	if len(pool) == 0 {
		return nil
	}

	type scored struct {
		option
		score int32
	}

	slab := util.MakeSlab(16*1024, 2048)
	runes := []rune(pattern)
	var hits []scored
	for _, o := range pool {
		chars := util.ToChars([]byte(o.match))
		result, _ := algo.FuzzyMatchV2(true, false, true, &chars, runes, false, slab)
		if result.Start < 0 || result.Score <= 0 {
			continue
		}
		hits = append(hits, scored{option: o, score: int32(result.Score)})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})
	out := make([]option, len(hits))
	for i, h := range hits {
		out[i] = h.option
	}
	return out
}
