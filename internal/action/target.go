package action

import (
	"strings"

	"github.com/easeaico/project-keeper/internal/scenario"
	"github.com/easeaico/project-keeper/internal/types"
)

// targetValue picks the character's value for ref: explicit skill number,
// then the trained/untrained constants for legacy flags, then the scenario
// base, then the untrained constant.
func (env Env) targetValue(ref scenario.TargetRef, literal string) int {
	if ref.Kind == types.KindAttribute {
		if v, ok := lookupAttribute(env.Character, ref.ID, ref.Label, literal); ok {
			return v
		}
		return env.Catalog.Untrained()
	}

	if sv, ok := lookupSkill(env.Character, ref.ID, ref.Label, literal); ok {
		switch {
		case sv.Value != nil:
			return *sv.Value
		case sv.Trained != nil && *sv.Trained:
			return env.Catalog.Trained()
		case sv.Trained != nil:
			return env.Catalog.Untrained()
		}
	}
	if ref.Base > 0 {
		return ref.Base
	}
	return env.Catalog.Untrained()
}

func (env Env) luckValue() int {
	if env.Character != nil && env.Character.Luck > 0 {
		return env.Character.Luck
	}
	return DefaultLuck
}

func (env Env) sanityValue() int {
	if env.Vitals != nil && env.Vitals.Sanity != nil {
		return env.Vitals.Sanity.Current
	}
	if pow, ok := env.Character.Attribute(types.AttrPower); ok {
		return pow
	}
	return DefaultSanity
}

func lookupSkill(c *types.Character, keys ...string) (types.SkillValue, bool) {
	if c == nil || len(c.Skills) == 0 {
		return types.SkillValue{}, false
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if sv, ok := c.Skills[key]; ok {
			return sv, true
		}
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		for name, sv := range c.Skills {
			if strings.EqualFold(name, key) {
				return sv, true
			}
		}
	}
	return types.SkillValue{}, false
}

func lookupAttribute(c *types.Character, keys ...string) (int, bool) {
	if c == nil || len(c.Attributes) == 0 {
		return 0, false
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		for name, v := range c.Attributes {
			if strings.EqualFold(name, key) {
				return v, true
			}
		}
	}
	return 0, false
}
