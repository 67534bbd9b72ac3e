package memory

import "github.com/easeaico/project-keeper/internal/types"

// NormalizeVital applies an absolute override to prev and restores
// 0 <= current <= max. A nil delta, or one with neither field, leaves prev as is.
func NormalizeVital(prev *types.VitalPair, d *types.VitalDelta) *types.VitalPair {
	if d == nil || (d.Current == nil && d.Max == nil) {
		return copyPair(prev)
	}

	var cur, max int
	switch {
	case d.Current != nil:
		cur = *d.Current
	case prev != nil:
		cur = prev.Current
	default:
		cur = *d.Max
	}
	switch {
	case d.Max != nil:
		max = *d.Max
	case prev != nil:
		max = prev.Max
	default:
		max = cur
	}

	if cur < 0 {
		cur = 0
	}
	if max < 0 {
		max = 0
	}
	if max < cur {
		max = cur
	}
	return &types.VitalPair{Current: cur, Max: max}
}

// ApplyVitals applies a vitals delta pair by pair.
func ApplyVitals(prev types.Vitals, d *types.VitalsDelta) types.Vitals {
	if d == nil {
		return types.Vitals{HP: copyPair(prev.HP), Sanity: copyPair(prev.Sanity), Magic: copyPair(prev.Magic)}
	}
	return types.Vitals{
		HP:     NormalizeVital(prev.HP, d.HP),
		Sanity: NormalizeVital(prev.Sanity, d.Sanity),
		Magic:  NormalizeVital(prev.Magic, d.Magic),
	}
}

// SeedVitals fills pairs the state does not track yet from the character baseline.
func SeedVitals(v types.Vitals, baseline types.Vitals) types.Vitals {
	if v.HP == nil {
		v.HP = copyPair(baseline.HP)
	}
	if v.Sanity == nil {
		v.Sanity = copyPair(baseline.Sanity)
	}
	if v.Magic == nil {
		v.Magic = copyPair(baseline.Magic)
	}
	return v
}

func copyPair(p *types.VitalPair) *types.VitalPair {
	if p == nil {
		return nil
	}
	c := *p
	if c.Current < 0 {
		c.Current = 0
	}
	if c.Max < c.Current {
		c.Max = c.Current
	}
	return &c
}
