package catalog

import "mineralcatalog/pkg/domain"

// ComputeStats summarizes ms. An empty input yields a zero summary with nil
// extremes and empty, non-nil frequency tables. Ties on hardness resolve to
// the earliest record in stored order.
func ComputeStats(ms []domain.Mineral) domain.MineralStats {
	stats := domain.MineralStats{
		OriginsCount:  map[string]int{},
		ColorsCount:   map[string]int{},
		RaritiesCount: map[string]int{},
	}
	if len(ms) == 0 {
		return stats
	}

	var total float64
	hardest, softest := 0, 0
	for i, m := range ms {
		total += m.Hardness
		if m.Hardness > ms[hardest].Hardness {
			hardest = i
		}
		if m.Hardness < ms[softest].Hardness {
			softest = i
		}
		stats.OriginsCount[m.Origin]++
		if m.HasColor() {
			stats.ColorsCount[*m.Color]++
		}
		if m.HasRarity() {
			stats.RaritiesCount[*m.Rarity]++
		}
	}

	h := ms[hardest].Clone()
	s := ms[softest].Clone()
	stats.TotalMinerals = len(ms)
	stats.AverageHardness = total / float64(len(ms))
	stats.HardestMineral = &h
	stats.SoftestMineral = &s
	return stats
}
