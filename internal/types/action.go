package types

import "encoding/json"

// ActionType tags an Action variant on the wire.
type ActionType string

const (
	ActionCheck  ActionType = "check"
	ActionAttack ActionType = "attack"
	ActionNPC    ActionType = "npc"
)

// Action is one entry of a model-produced action plan.
type Action interface {
	Type() ActionType
}

// CheckAction requests an attribute, skill, luck or sanity check.
type CheckAction struct {
	Kind       CheckKind
	Target     string
	DC         int
	Difficulty Difficulty
	Reason     string
}

func (CheckAction) Type() ActionType { return ActionCheck }

func (a CheckAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type       ActionType `json:"type"`
		CheckType  CheckKind  `json:"checkType"`
		Target     string     `json:"target"`
		DC         int        `json:"dc,omitempty"`
		Difficulty Difficulty `json:"difficulty"`
		Reason     string     `json:"reason,omitempty"`
	}{ActionCheck, a.Kind, a.Target, a.DC, a.Difficulty, a.Reason})
}

// AttackAction requests an attack roll with the given skill.
type AttackAction struct {
	Target     string
	Skill      string
	DC         int
	Difficulty Difficulty
	Reason     string
}

func (AttackAction) Type() ActionType { return ActionAttack }

func (a AttackAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type       ActionType `json:"type"`
		Target     string     `json:"target"`
		Skill      string     `json:"skill,omitempty"`
		DC         int        `json:"dc,omitempty"`
		Difficulty Difficulty `json:"difficulty"`
		Reason     string     `json:"reason,omitempty"`
	}{ActionAttack, a.Target, a.Skill, a.DC, a.Difficulty, a.Reason})
}

// NPCAction suggests what an NPC does. It never rolls.
type NPCAction struct {
	Target string
	Intent string
	Reason string
}

func (NPCAction) Type() ActionType { return ActionNPC }

func (a NPCAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   ActionType `json:"type"`
		Target string     `json:"target"`
		Intent string     `json:"intent,omitempty"`
		Reason string     `json:"reason,omitempty"`
	}{ActionNPC, a.Target, a.Intent, a.Reason})
}

// Intent classifies the player's input.
type Intent string

const (
	IntentAction      Intent = "action"
	IntentDialogue    Intent = "dialogue"
	IntentExplore     Intent = "explore"
	IntentCombat      Intent = "combat"
	IntentInvestigate Intent = "investigate"
	IntentRest        Intent = "rest"
	IntentOther       Intent = "other"
	IntentInvalid     Intent = "invalid"
)

// DiceType is the dominant roll the input calls for.
type DiceType string

const (
	DiceNone      DiceType = "none"
	DiceAttribute DiceType = "attribute"
	DiceSkill     DiceType = "skill"
	DiceLuck      DiceType = "luck"
	DiceSanity    DiceType = "sanity"
	DiceAttack    DiceType = "attack"
)

// InputAnalysis is the validated intent and action plan for one player input.
// NeedsCheck and the Check* fields are the older single-check shape.
type InputAnalysis struct {
	Allowed     bool       `json:"allowed"`
	Reason      string     `json:"reason,omitempty"`
	Intent      Intent     `json:"intent"`
	DiceType    DiceType   `json:"diceType"`
	Difficulty  Difficulty `json:"difficulty"`
	Actions     []Action   `json:"actions"`
	NeedsCheck  bool       `json:"needsCheck"`
	CheckType   CheckKind  `json:"checkType,omitempty"`
	CheckTarget string     `json:"checkTarget,omitempty"`
	DC          int        `json:"dc,omitempty"`
	CheckReason string     `json:"checkReason,omitempty"`
	RawInput    string     `json:"-"`
}
