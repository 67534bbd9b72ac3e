package memory

import (
	"slices"
	"strings"

	"github.com/easeaico/project-keeper/internal/types"
	"github.com/easeaico/project-keeper/internal/utils"
)

// MaxNotes is the length of the live note lists. FoldNotes moves older
// notes out of them.
const MaxNotes = 50

// ApplyDelta returns state with delta folded in. state is not modified.
// Keyed collections are upserted, add/remove lists are set operations, so
// applying the same delta twice gives the same result as applying it once.
func ApplyDelta(state types.WorldState, d types.WorldStateDelta) types.WorldState {
	out := cloneState(state)

	out.NPCs = mergeNPCs(out.NPCs, d.NPCs)
	out.Allies = applyList(out.Allies, d.Allies)
	for _, u := range d.NPCs {
		if u.Ally == nil {
			continue
		}
		name := strings.TrimSpace(u.Name)
		if *u.Ally {
			out.Allies = utils.AppendUnique(out.Allies, name)
		} else {
			out.Allies = removeAll(out.Allies, name)
		}
	}
	out.Locations = mergeLocations(out.Locations, d.Locations)
	out.Threads = mergeThreads(out.Threads, d.Threads)
	out.Flags = mergeFlags(out.Flags, d.Flags)
	out.Notes = utils.AppendUnique(out.Notes, d.Notes...)
	out.DMNotes = utils.AppendUnique(out.DMNotes, d.DMNotes...)
	out.Vitals = ApplyVitals(out.Vitals, d.Vitals)

	if loc := strings.TrimSpace(d.Location); loc != "" {
		out.Presence.Location = loc
	}
	if scene := strings.TrimSpace(d.Scene); scene != "" {
		out.Presence.Scene = scene
	}
	out.Presence.NPCs = applyList(out.Presence.NPCs, d.PresentNPCs)
	return out
}

// ApplyCharacterLists applies the inventory/buff/debuff parts of d. changed is
// false when the joined representation of every list is unchanged.
func ApplyCharacterLists(lists types.CharacterLists, d types.WorldStateDelta) (types.CharacterLists, bool) {
	next := types.CharacterLists{
		Inventory: applyList(slices.Clone(lists.Inventory), d.Inventory),
		Buffs:     applyList(slices.Clone(lists.Buffs), d.Buffs),
		Debuffs:   applyList(slices.Clone(lists.Debuffs), d.Debuffs),
	}
	changed := joinKey(lists.Inventory) != joinKey(next.Inventory) ||
		joinKey(lists.Buffs) != joinKey(next.Buffs) ||
		joinKey(lists.Debuffs) != joinKey(next.Debuffs)
	return next, changed
}

func joinKey(list []string) string {
	return strings.Join(list, "\x1f")
}

func applyList(list []string, d types.ListDelta) []string {
	if d.Empty() {
		return list
	}
	list = utils.AppendUnique(list, d.Add...)
	for _, r := range d.Remove {
		list = removeAll(list, strings.TrimSpace(r))
	}
	return list
}

func removeAll(list []string, item string) []string {
	if item == "" {
		return list
	}
	return slices.DeleteFunc(list, func(v string) bool { return v == item })
}

func mergeNPCs(list []types.NPC, updates []types.NPCUpdate) []types.NPC {
	for _, u := range updates {
		name := strings.TrimSpace(u.Name)
		if name == "" {
			continue
		}
		i := slices.IndexFunc(list, func(n types.NPC) bool { return n.Name == name })
		if i < 0 {
			list = append(list, types.NPC{Name: name})
			i = len(list) - 1
		}
		n := &list[i]
		setIf(&n.Status, u.Status)
		setIf(&n.Relation, u.Relation)
		setIf(&n.Location, u.Location)
		setIf(&n.Notes, u.Notes)
		if u.Ally != nil {
			n.Ally = *u.Ally
		}
	}
	return list
}

func mergeLocations(list []types.Location, updates []types.Location) []types.Location {
	for _, u := range updates {
		name := strings.TrimSpace(u.Name)
		if name == "" {
			continue
		}
		i := slices.IndexFunc(list, func(l types.Location) bool { return l.Name == name })
		if i < 0 {
			list = append(list, types.Location{Name: name})
			i = len(list) - 1
		}
		setIf(&list[i].Status, u.Status)
		setIf(&list[i].Notes, u.Notes)
	}
	return list
}

func mergeThreads(list []types.Thread, updates []types.Thread) []types.Thread {
	for _, u := range updates {
		title := strings.TrimSpace(u.Title)
		if title == "" {
			continue
		}
		i := slices.IndexFunc(list, func(t types.Thread) bool { return t.Title == title })
		if i < 0 {
			list = append(list, types.Thread{Title: title, Status: types.ThreadOpen})
			i = len(list) - 1
		}
		if status, ok := threadStatus(u.Status); ok {
			list[i].Status = status
		}
		setIf(&list[i].Notes, u.Notes)
	}
	return list
}

func threadStatus(s string) (string, bool) {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case types.ThreadOpen, types.ThreadResolved, types.ThreadBlocked:
		return s, true
	default:
		return "", false
	}
}

func mergeFlags(list []types.Flag, updates []types.Flag) []types.Flag {
	for _, u := range updates {
		key := strings.TrimSpace(u.Key)
		if key == "" {
			continue
		}
		i := slices.IndexFunc(list, func(f types.Flag) bool { return f.Key == key })
		if i < 0 {
			list = append(list, types.Flag{Key: key, Value: u.Value})
			continue
		}
		list[i].Value = u.Value
	}
	return list
}

func setIf(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// FoldNotes keeps the newest MaxNotes entries of each note list. Older player
// notes are appended to the long summary, older DM notes to State.DMArchive.
// It returns the number of notes moved.
func FoldNotes(rec *types.MemoryRecord) int {
	var old []string
	rec.State.Notes, old = splitTail(rec.State.Notes, MaxNotes)
	if len(old) > 0 {
		rec.LongSummary = joinNonEmpty(rec.LongSummary, "记录："+strings.Join(old, "；"))
	}
	moved := len(old)

	rec.State.DMNotes, old = splitTail(rec.State.DMNotes, MaxNotes)
	if len(old) > 0 {
		rec.State.DMArchive = joinNonEmpty(rec.State.DMArchive, strings.Join(old, "\n"))
	}
	return moved + len(old)
}

func splitTail(list []string, n int) (keep, old []string) {
	if len(list) <= n {
		return list, nil
	}
	cut := len(list) - n
	return slices.Clone(list[cut:]), slices.Clone(list[:cut])
}

func cloneState(s types.WorldState) types.WorldState {
	out := s
	out.Allies = slices.Clone(s.Allies)
	out.NPCs = slices.Clone(s.NPCs)
	out.Locations = slices.Clone(s.Locations)
	out.Threads = slices.Clone(s.Threads)
	out.Flags = slices.Clone(s.Flags)
	out.Notes = slices.Clone(s.Notes)
	out.DMNotes = slices.Clone(s.DMNotes)
	out.Presence.NPCs = slices.Clone(s.Presence.NPCs)
	out.Vitals = ApplyVitals(s.Vitals, nil)
	return out
}
