package types

// Thread statuses.
const (
	ThreadOpen     = "open"
	ThreadResolved = "resolved"
	ThreadBlocked  = "blocked"
)

// WorldState is the durable memory of a session.
type WorldState struct {
	Allies    []string   `json:"allies"`
	NPCs      []NPC      `json:"npcs"`
	Locations []Location `json:"locations"`
	Threads   []Thread   `json:"threads"`
	Flags     []Flag     `json:"flags"`
	Notes     []string   `json:"notes"`
	// DMNotes are never shown to players.
	DMNotes []string `json:"dmNotes"`
	// DMArchive holds DM notes folded out of DMNotes, oldest first.
	DMArchive string   `json:"dmArchive,omitempty"`
	Vitals    Vitals   `json:"vitals"`
	Presence  Presence `json:"presence"`
	MapText   string   `json:"mapText"`
}

// NPC is keyed by Name.
type NPC struct {
	Name     string `json:"name"`
	Status   string `json:"status,omitempty"`
	Relation string `json:"relation,omitempty"`
	Location string `json:"location,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Ally     bool   `json:"ally,omitempty"`
}

// Location is keyed by Name.
type Location struct {
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// Thread is a plot thread keyed by Title.
type Thread struct {
	Title  string `json:"title"`
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// Flag is a keyed story variable; the latest value wins.
type Flag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// VitalPair is a current/max pair with 0 <= Current <= Max.
type VitalPair struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// Vitals groups the tracked resource pairs. Nil means unknown.
type Vitals struct {
	HP     *VitalPair `json:"hp,omitempty"`
	Sanity *VitalPair `json:"sanity,omitempty"`
	Magic  *VitalPair `json:"magic,omitempty"`
}

// Presence describes where the party currently is.
type Presence struct {
	Location string   `json:"location,omitempty"`
	Scene    string   `json:"scene,omitempty"`
	NPCs     []string `json:"npcs,omitempty"`
}

// ListDelta adds and removes unique strings.
type ListDelta struct {
	Add    []string `json:"add,omitempty"`
	Remove []string `json:"remove,omitempty"`
}

// Empty reports whether the delta changes nothing.
func (d ListDelta) Empty() bool {
	return len(d.Add) == 0 && len(d.Remove) == 0
}

// NPCUpdate upserts an NPC. Empty fields keep the stored value.
type NPCUpdate struct {
	Name     string `json:"name"`
	Status   string `json:"status,omitempty"`
	Relation string `json:"relation,omitempty"`
	Location string `json:"location,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Ally     *bool  `json:"ally,omitempty"`
}

// VitalDelta carries absolute overrides, not increments.
type VitalDelta struct {
	Current *int `json:"current,omitempty"`
	Max     *int `json:"max,omitempty"`
}

// VitalsDelta groups optional overrides per pair.
type VitalsDelta struct {
	HP     *VitalDelta `json:"hp,omitempty"`
	Sanity *VitalDelta `json:"sanity,omitempty"`
	Magic  *VitalDelta `json:"magic,omitempty"`
}

// WorldStateDelta is the model-extracted patch for a batch of rounds.
// Missing fields mean no change.
type WorldStateDelta struct {
	Allies      ListDelta    `json:"allies"`
	Inventory   ListDelta    `json:"inventory"`
	Buffs       ListDelta    `json:"buffs"`
	Debuffs     ListDelta    `json:"debuffs"`
	PresentNPCs ListDelta    `json:"presentNpcs"`
	NPCs        []NPCUpdate  `json:"npcs,omitempty"`
	Locations   []Location   `json:"locations,omitempty"`
	Threads     []Thread     `json:"threads,omitempty"`
	Flags       []Flag       `json:"flags,omitempty"`
	Notes       []string     `json:"notes,omitempty"`
	DMNotes     []string     `json:"dmNotes,omitempty"`
	Vitals      *VitalsDelta `json:"vitals,omitempty"`
	Location    string       `json:"location,omitempty"`
	Scene       string       `json:"scene,omitempty"`
}

// CharacterLists are the character-owned lists the memory pipeline may rewrite.
type CharacterLists struct {
	Inventory []string `json:"inventory"`
	Buffs     []string `json:"buffs"`
	Debuffs   []string `json:"debuffs"`
}
