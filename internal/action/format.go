package action

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/easeaico/project-keeper/internal/types"
)

var localeMatcher = language.NewMatcher([]language.Tag{language.Chinese, language.English})

// ParseLocale maps a locale string onto a supported tag. Chinese is the default.
func ParseLocale(s string) language.Tag {
	if strings.TrimSpace(s) == "" {
		return language.Chinese
	}
	tag, _, _ := localeMatcher.Match(language.Make(s))
	if base, _ := tag.Base(); base.String() == "en" {
		return language.English
	}
	return language.Chinese
}

type formatter struct {
	english bool
}

func newFormatter(tag language.Tag) formatter {
	base, _ := tag.Base()
	return formatter{english: base.String() == "en"}
}

func (f formatter) kindLabel(kind types.CheckKind) string {
	if f.english {
		switch kind {
		case types.KindAttribute:
			return "Attribute check"
		case types.KindLuck:
			return "Luck check"
		case types.KindSanity:
			return "Sanity check"
		case types.KindAttack:
			return "Attack"
		default:
			return "Skill check"
		}
	}
	switch kind {
	case types.KindAttribute:
		return "属性检定"
	case types.KindLuck:
		return "幸运检定"
	case types.KindSanity:
		return "理智检定"
	case types.KindAttack:
		return "攻击"
	default:
		return "技能检定"
	}
}

func (f formatter) targetLabel(cr CheckResult) string {
	if cr.Label != "" {
		return cr.Label
	}
	switch cr.Request.Kind {
	case types.KindLuck:
		if f.english {
			return "Luck"
		}
		return "幸运"
	case types.KindSanity:
		if f.english {
			return "Sanity"
		}
		return "理智"
	}
	return cr.Request.Target
}

// detail renders the roll part shared by checks and attacks.
func (f formatter) detail(cr CheckResult) string {
	o := cr.Outcome
	if f.english {
		var dc string
		if cr.DC.DC != types.DefaultDC {
			dc = fmt.Sprintf(", DC %d", cr.DC.DC)
		}
		return fmt.Sprintf("rolled %d vs %d (base %d, %s difficulty%s) → %s",
			o.Roll, o.Threshold, cr.Base, o.Difficulty, dc, o.Outcome)
	}
	var dc string
	if cr.DC.DC != types.DefaultDC {
		dc = fmt.Sprintf("，DC %d", cr.DC.DC)
	}
	return fmt.Sprintf("掷骰 %d / 阈值 %d（基础值 %d，%s难度%s）→ %s",
		o.Roll, o.Threshold, cr.Base, o.DifficultyLabel, dc, o.OutcomeLabel)
}

func (f formatter) checkLine(cr CheckResult) string {
	if f.english {
		return fmt.Sprintf("[%s] %s: %s", f.kindLabel(cr.Request.Kind), f.targetLabel(cr), f.detail(cr))
	}
	return fmt.Sprintf("【%s】%s：%s", f.kindLabel(cr.Request.Kind), f.targetLabel(cr), f.detail(cr))
}

func (f formatter) attackLine(cr CheckResult, target string) string {
	target = strings.TrimSpace(target)
	if f.english {
		if target == "" {
			return fmt.Sprintf("[Attack] %s: %s", f.targetLabel(cr), f.detail(cr))
		}
		return fmt.Sprintf("[Attack] %s with %s: %s", target, f.targetLabel(cr), f.detail(cr))
	}
	if target == "" {
		return fmt.Sprintf("【攻击】使用%s：%s", f.targetLabel(cr), f.detail(cr))
	}
	return fmt.Sprintf("【攻击】对%s使用%s：%s", target, f.targetLabel(cr), f.detail(cr))
}

func (f formatter) npcLine(act types.NPCAction) string {
	intent := strings.TrimSpace(act.Intent)
	reason := strings.TrimSpace(act.Reason)
	if f.english {
		line := fmt.Sprintf("[NPC suggestion] %s: %s", act.Target, intent)
		if reason != "" {
			line += fmt.Sprintf(" (%s)", reason)
		}
		return line
	}
	line := fmt.Sprintf("【NPC 行动建议】%s：%s", act.Target, intent)
	if reason != "" {
		line += fmt.Sprintf("（%s）", reason)
	}
	return line
}
