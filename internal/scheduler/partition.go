package scheduler

import "github.com/idlab-discover/Multi-path-XR/internal/model"

// partition slices pts into len(maxPointPercentages) layers per spec.md
// §4.5 step 3. Percentages are proportions of pts.Len(), applied in order;
// layer 0 is always the broadcast base. The caller's MaxPointPercentages
// must sum to 100; any rounding remainder is folded into the final layer so
// every point is covered exactly once.
func partition(pts model.Points, maxPointPercentages []uint8) model.Partitioning {
	if len(maxPointPercentages) == 0 {
		return model.Partitioning{{Layer: 0, Lo: 0, Hi: pts.Len()}}
	}

	total := pts.Len()
	out := make(model.Partitioning, 0, len(maxPointPercentages))
	lo := 0
	for i, pct := range maxPointPercentages {
		var hi int
		if i == len(maxPointPercentages)-1 {
			hi = total
		} else {
			hi = lo + (total*int(pct))/100
			if hi > total {
				hi = total
			}
		}
		out = append(out, model.LayerRange{Layer: i, Lo: lo, Hi: hi})
		lo = hi
	}
	return out
}
