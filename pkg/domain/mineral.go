// Package domain defines the mineral record, its derived statistics, the
// error taxonomy, and the persistence contracts used by mineralcatalog.
package domain

// Mineral is a single catalog record. Hardness follows the Mohs scale by
// convention; no range is enforced.
type Mineral struct {
	ID                  int     `json:"id"`
	Name                string  `json:"name"`
	ChemicalComposition string  `json:"chemical_composition"`
	Hardness            float64 `json:"hardness"`
	Origin              string  `json:"origin"`
	Color               *string `json:"color"`
	Rarity              *string `json:"rarity"`
}

// Clone returns a deep copy so callers never share optional field storage
// with the store.
func (m Mineral) Clone() Mineral {
	cp := m
	cp.Color = cloneString(m.Color)
	cp.Rarity = cloneString(m.Rarity)
	return cp
}

// HasColor reports whether the optional color is present and non-empty.
func (m Mineral) HasColor() bool { return m.Color != nil && *m.Color != "" }

// HasRarity reports whether the optional rarity is present and non-empty.
func (m Mineral) HasRarity() bool { return m.Rarity != nil && *m.Rarity != "" }

// MineralStats summarizes the collection at the moment it was computed.
// HardestMineral and SoftestMineral are nil for an empty collection.
type MineralStats struct {
	TotalMinerals   int            `json:"total_minerals"`
	AverageHardness float64        `json:"average_hardness"`
	HardestMineral  *Mineral       `json:"hardest_mineral"`
	SoftestMineral  *Mineral       `json:"softest_mineral"`
	OriginsCount    map[string]int `json:"origins_count"`
	ColorsCount     map[string]int `json:"colors_count"`
	RaritiesCount   map[string]int `json:"rarities_count"`
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string { return &s }

// CloneMinerals deep-copies a slice of minerals preserving order.
func CloneMinerals(in []Mineral) []Mineral {
	out := make([]Mineral, len(in))
	for i, m := range in {
		out[i] = m.Clone()
	}
	return out
}

// SeedMinerals returns the records every catalog starts with.
func SeedMinerals() []Mineral {
	return []Mineral{
		{
			ID:                  1,
			Name:                "Quartz",
			ChemicalComposition: "SiO2",
			Hardness:            7,
			Origin:              "Poland",
			Color:               StringPtr("Colorless"),
			Rarity:              StringPtr("Common"),
		},
		{
			ID:                  2,
			Name:                "Pyrite",
			ChemicalComposition: "FeS2",
			Hardness:            6,
			Origin:              "Spain",
			Color:               StringPtr("Gold"),
			Rarity:              StringPtr("Frequent"),
		},
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
