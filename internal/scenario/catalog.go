// Package scenario 描述剧本的技能、属性与难度规则。
package scenario

import (
	"errors"
	"fmt"
	"strings"

	"github.com/easeaico/project-keeper/internal/check"
	"github.com/easeaico/project-keeper/internal/types"
)

// Skill-value constants used when a scenario does not declare its own.
const (
	DefaultTrainedValue   = 50
	DefaultUntrainedValue = 20
)

// ErrInvalidCatalog wraps every validation failure.
var ErrInvalidCatalog = errors.New("invalid scenario catalog")

// AllocationMode decides how players spend skill points at creation.
type AllocationMode string

const (
	AllocationBudget     AllocationMode = "budget"
	AllocationSelection  AllocationMode = "selection"
	AllocationQuickstart AllocationMode = "quickstart"
)

// Skill is one entry of the skill table.
type Skill struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
	Group string `yaml:"group" json:"group"`
	// Base is the value an untouched sheet has. 0 means unset.
	Base int `yaml:"base" json:"base"`
}

// AttributeRange bounds one attribute roll.
type AttributeRange struct {
	Key   string `yaml:"key" json:"key"`
	Label string `yaml:"label" json:"label"`
	Min   int    `yaml:"min" json:"min"`
	Max   int    `yaml:"max" json:"max"`
}

// Allocation holds the skill allocation settings.
type Allocation struct {
	Mode AllocationMode `yaml:"mode" json:"mode"`
	// CoreValues is the multiset handed out in quickstart mode.
	CoreValues    []int `yaml:"core_values" json:"coreValues"`
	InterestSlots int   `yaml:"interest_slots" json:"interestSlots"`
	InterestBonus int   `yaml:"interest_bonus" json:"interestBonus"`
}

// Catalog is the read-only rules data of one scenario.
type Catalog struct {
	ID                 string           `yaml:"id" json:"id"`
	Name               string           `yaml:"name" json:"name"`
	Skills             []Skill          `yaml:"skills" json:"skills"`
	Attributes         []AttributeRange `yaml:"attributes" json:"attributes"`
	DC                 check.Rules      `yaml:"dc" json:"dc"`
	TrainedValue       int              `yaml:"trained_value" json:"trainedValue"`
	UntrainedValue     int              `yaml:"untrained_value" json:"untrainedValue"`
	SkillPoints        int              `yaml:"skill_points" json:"skillPoints"`
	Allocation         Allocation       `yaml:"allocation" json:"allocation"`
	DefaultAttackSkill string           `yaml:"default_attack_skill" json:"defaultAttackSkill"`
}

// TargetRef is a catalog lookup result. Found is false for literal fallbacks.
type TargetRef struct {
	Kind  types.CheckKind
	ID    string
	Label string
	Base  int
	Found bool
}

// FindSkill matches by id first, then by label.
func (c *Catalog) FindSkill(name string) (Skill, bool) {
	name = strings.TrimSpace(name)
	if c == nil || name == "" {
		return Skill{}, false
	}
	for _, s := range c.Skills {
		if s.ID == name {
			return s, true
		}
	}
	for _, s := range c.Skills {
		if strings.EqualFold(s.ID, name) {
			return s, true
		}
	}
	for _, s := range c.Skills {
		if s.Label == name || strings.EqualFold(s.Label, name) {
			return s, true
		}
	}
	return Skill{}, false
}

// FindAttribute matches by key first, then by label.
func (c *Catalog) FindAttribute(name string) (AttributeRange, bool) {
	name = strings.TrimSpace(name)
	if c == nil || name == "" {
		return AttributeRange{}, false
	}
	for _, a := range c.Attributes {
		if strings.EqualFold(a.Key, name) {
			return a, true
		}
	}
	for _, a := range c.Attributes {
		if a.Label == name || strings.EqualFold(a.Label, name) {
			return a, true
		}
	}
	return AttributeRange{}, false
}

// ResolveTarget resolves name for a check of the given kind. Unknown names
// come back as a literal reference so the turn can continue.
func (c *Catalog) ResolveTarget(kind types.CheckKind, name string) TargetRef {
	name = strings.TrimSpace(name)
	switch kind {
	case types.KindAttribute:
		if a, ok := c.FindAttribute(name); ok {
			return TargetRef{Kind: kind, ID: a.Key, Label: labelOr(a.Label, a.Key), Found: true}
		}
		// 模型有时把技能当属性报出来
		if s, ok := c.FindSkill(name); ok {
			return TargetRef{Kind: types.KindSkill, ID: s.ID, Label: labelOr(s.Label, s.ID), Base: s.Base, Found: true}
		}
	case types.KindSkill, types.KindAttack:
		if s, ok := c.FindSkill(name); ok {
			return TargetRef{Kind: kind, ID: s.ID, Label: labelOr(s.Label, s.ID), Base: s.Base, Found: true}
		}
		if a, ok := c.FindAttribute(name); ok {
			return TargetRef{Kind: types.KindAttribute, ID: a.Key, Label: labelOr(a.Label, a.Key), Found: true}
		}
	}
	return TargetRef{Kind: kind, ID: name, Label: name}
}

// Trained returns the trained skill constant.
func (c *Catalog) Trained() int {
	if c == nil || c.TrainedValue <= 0 {
		return DefaultTrainedValue
	}
	return c.TrainedValue
}

// Untrained returns the untrained skill constant.
func (c *Catalog) Untrained() int {
	if c == nil || c.UntrainedValue <= 0 {
		return DefaultUntrainedValue
	}
	return c.UntrainedValue
}

// AttackSkill returns the skill used when an attack names none.
func (c *Catalog) AttackSkill() string {
	if c == nil {
		return ""
	}
	return c.DefaultAttackSkill
}

// DCRules returns the scenario DC settings.
func (c *Catalog) DCRules() check.Rules {
	if c == nil {
		return check.Rules{}
	}
	return c.DC
}

// Validate checks the catalog for internal consistency.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Skills))
	for i, s := range c.Skills {
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("%w: skill %d has no id", ErrInvalidCatalog, i)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate skill %q", ErrInvalidCatalog, s.ID)
		}
		seen[s.ID] = true
		if s.Base < 0 || s.Base > 100 {
			return fmt.Errorf("%w: skill %q base %d out of range", ErrInvalidCatalog, s.ID, s.Base)
		}
	}
	for _, a := range c.Attributes {
		if strings.TrimSpace(a.Key) == "" {
			return fmt.Errorf("%w: attribute without key", ErrInvalidCatalog)
		}
		if a.Min > a.Max {
			return fmt.Errorf("%w: attribute %q min %d > max %d", ErrInvalidCatalog, a.Key, a.Min, a.Max)
		}
	}
	for target, dc := range c.DC.Overrides {
		if dc < types.MinDC || dc > types.MaxDC {
			return fmt.Errorf("%w: dc override %q=%d out of range", ErrInvalidCatalog, target, dc)
		}
	}
	if c.DC.DefaultDC < 0 || c.DC.DefaultDC > types.MaxDC {
		return fmt.Errorf("%w: default dc %d out of range", ErrInvalidCatalog, c.DC.DefaultDC)
	}
	if c.SkillPoints < 0 {
		return fmt.Errorf("%w: negative skill points", ErrInvalidCatalog)
	}
	if c.DefaultAttackSkill != "" {
		if _, ok := c.FindSkill(c.DefaultAttackSkill); !ok {
			return fmt.Errorf("%w: default attack skill %q not in skill table", ErrInvalidCatalog, c.DefaultAttackSkill)
		}
	}
	return c.Allocation.validate()
}

func (a Allocation) validate() error {
	switch a.Mode {
	case "", AllocationBudget, AllocationSelection:
	case AllocationQuickstart:
		if len(a.CoreValues) == 0 {
			return fmt.Errorf("%w: quickstart needs core values", ErrInvalidCatalog)
		}
		for _, v := range a.CoreValues {
			if v <= 0 || v > 100 {
				return fmt.Errorf("%w: core value %d out of range", ErrInvalidCatalog, v)
			}
		}
		if a.InterestSlots < 0 || a.InterestBonus < 0 {
			return fmt.Errorf("%w: negative interest settings", ErrInvalidCatalog)
		}
	default:
		return fmt.Errorf("%w: unknown allocation mode %q", ErrInvalidCatalog, a.Mode)
	}
	return nil
}

func labelOr(label, fallback string) string {
	if strings.TrimSpace(label) == "" {
		return fallback
	}
	return label
}
