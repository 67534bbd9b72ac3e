package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Attribute keys used by the vitals baseline.
const (
	AttrStrength     = "STR"
	AttrConstitution = "CON"
	AttrSize         = "SIZ"
	AttrDexterity    = "DEX"
	AttrAppearance   = "APP"
	AttrIntelligence = "INT"
	AttrPower        = "POW"
	AttrEducation    = "EDU"
)

// MaxSanity is the ceiling for the sanity pair before any scenario adjustment.
const MaxSanity = 99

// Character is the persisted investigator sheet.
type Character struct {
	ID         int                   `json:"id"`
	SessionID  string                `json:"session_id"`
	Name       string                `json:"name"`
	Attributes map[string]int        `json:"attributes"`
	Skills     map[string]SkillValue `json:"skills"`
	Luck       int                   `json:"luck"`
	Inventory  []string              `json:"inventory"`
	Buffs      []string              `json:"buffs"`
	Debuffs    []string              `json:"debuffs"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// SkillValue holds either an explicit skill score or the legacy trained flag.
// Older sheets stored skills as booleans, newer ones store numbers.
type SkillValue struct {
	Value   *int
	Trained *bool
}

// NumericSkill returns a SkillValue holding an explicit score.
func NumericSkill(v int) SkillValue {
	return SkillValue{Value: &v}
}

// TrainedSkill returns a legacy boolean SkillValue.
func TrainedSkill(trained bool) SkillValue {
	return SkillValue{Trained: &trained}
}

// MarshalJSON writes the number or the boolean, whichever is set.
func (s SkillValue) MarshalJSON() ([]byte, error) {
	switch {
	case s.Value != nil:
		return json.Marshal(*s.Value)
	case s.Trained != nil:
		return json.Marshal(*s.Trained)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts numbers, numeric strings and booleans.
func (s *SkillValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*s = SkillValue{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("failed to decode skill flag: %w", err)
		}
		s.Trained = &b
		return nil
	case '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("failed to decode skill value: %w", err)
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("skill value %q is not numeric", raw)
		}
		v := int(math.Round(f))
		s.Value = &v
		return nil
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("failed to decode skill value: %w", err)
		}
		v := int(math.Round(f))
		s.Value = &v
		return nil
	}
}

// Attribute returns the attribute score and whether it is present.
func (c *Character) Attribute(key string) (int, bool) {
	if c == nil || c.Attributes == nil {
		return 0, false
	}
	v, ok := c.Attributes[key]
	return v, ok
}

// BaselineVitals derives hp/sanity/magic from constitution, size and power.
// Missing attributes leave the corresponding pair unset.
func (c *Character) BaselineVitals() Vitals {
	var v Vitals
	con, hasCon := c.Attribute(AttrConstitution)
	siz, hasSiz := c.Attribute(AttrSize)
	if hasCon && hasSiz {
		hp := (con + siz) / 10
		v.HP = &VitalPair{Current: hp, Max: hp}
	}
	if pow, ok := c.Attribute(AttrPower); ok {
		san := pow
		if san > MaxSanity {
			san = MaxSanity
		}
		v.Sanity = &VitalPair{Current: san, Max: MaxSanity}
		mp := pow / 5
		v.Magic = &VitalPair{Current: mp, Max: mp}
	}
	return v
}
