package memory

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/easeaico/project-keeper/internal/types"
	"github.com/easeaico/project-keeper/internal/utils"
)

// DecodeCompression reads {roundSummaries, stateDelta} from a model reply.
// ok is false only when no JSON object could be found at all; individual
// malformed entries are dropped.
func DecodeCompression(raw string) (summaries []types.RoundSummary, delta types.WorldStateDelta, ok bool) {
	obj, ok := utils.ParseObject(raw)
	if !ok {
		return nil, types.WorldStateDelta{}, false
	}
	for _, item := range obj.Get("roundSummaries").Array() {
		round, ok := utils.LooseInt(item.Get("round"))
		summary := utils.LooseString(item.Get("summary"))
		if !ok || round <= 0 || summary == "" {
			continue
		}
		summaries = append(summaries, types.RoundSummary{Round: round, Summary: summary})
	}
	return summaries, DecodeDelta(obj.Get("stateDelta")), true
}

// DecodeDelta reads a WorldStateDelta from loosely typed JSON.
func DecodeDelta(r gjson.Result) types.WorldStateDelta {
	var d types.WorldStateDelta
	if !r.IsObject() {
		return d
	}
	d.Allies = decodeListDelta(r.Get("allies"))
	d.Inventory = decodeListDelta(r.Get("inventory"))
	d.Buffs = decodeListDelta(r.Get("buffs"))
	d.Debuffs = decodeListDelta(r.Get("debuffs"))
	d.PresentNPCs = decodeListDelta(firstExisting(r, "presentNpcs", "presence.npcs"))

	for _, item := range r.Get("npcs").Array() {
		if !item.IsObject() {
			continue
		}
		u := types.NPCUpdate{
			Name:     utils.LooseString(item.Get("name")),
			Status:   utils.LooseString(item.Get("status")),
			Relation: utils.LooseString(item.Get("relation")),
			Location: utils.LooseString(item.Get("location")),
			Notes:    utils.LooseString(item.Get("notes")),
		}
		if u.Name == "" {
			continue
		}
		if ally, ok := utils.LooseBool(item.Get("ally")); ok {
			u.Ally = &ally
		}
		d.NPCs = append(d.NPCs, u)
	}
	for _, item := range r.Get("locations").Array() {
		loc := types.Location{
			Name:   utils.LooseString(item.Get("name")),
			Status: utils.LooseString(item.Get("status")),
			Notes:  utils.LooseString(item.Get("notes")),
		}
		if item.IsObject() && loc.Name != "" {
			d.Locations = append(d.Locations, loc)
		}
	}
	for _, item := range r.Get("threads").Array() {
		th := types.Thread{
			Title:  utils.LooseString(firstExisting(item, "title", "name")),
			Status: utils.LooseString(item.Get("status")),
			Notes:  utils.LooseString(item.Get("notes")),
		}
		if item.IsObject() && th.Title != "" {
			d.Threads = append(d.Threads, th)
		}
	}
	d.Flags = decodeFlags(r.Get("flags"))
	d.Notes = utils.LooseStrings(r.Get("notes"))
	d.DMNotes = utils.LooseStrings(r.Get("dmNotes"))
	d.Vitals = decodeVitals(r.Get("vitals"))
	d.Location = utils.LooseString(firstExisting(r, "location", "presence.location"))
	d.Scene = utils.LooseString(firstExisting(r, "scene", "presence.scene"))
	return d
}

// decodeListDelta accepts {add, remove} or a bare array meaning add.
func decodeListDelta(r gjson.Result) types.ListDelta {
	if r.IsArray() {
		return types.ListDelta{Add: utils.LooseStrings(r)}
	}
	if !r.IsObject() {
		return types.ListDelta{}
	}
	return types.ListDelta{
		Add:    utils.LooseStrings(r.Get("add")),
		Remove: utils.LooseStrings(r.Get("remove")),
	}
}

// decodeFlags accepts [{key, value}] or a {key: value} object.
func decodeFlags(r gjson.Result) []types.Flag {
	var flags []types.Flag
	switch {
	case r.IsArray():
		for _, item := range r.Array() {
			key := utils.LooseString(item.Get("key"))
			if !item.IsObject() || key == "" {
				continue
			}
			flags = append(flags, types.Flag{Key: key, Value: flagValue(item.Get("value"))})
		}
	case r.IsObject():
		r.ForEach(func(k, v gjson.Result) bool {
			if key := strings.TrimSpace(k.String()); key != "" {
				flags = append(flags, types.Flag{Key: key, Value: flagValue(v)})
			}
			return true
		})
	}
	return flags
}

func flagValue(v gjson.Result) string {
	if v.IsObject() || v.IsArray() {
		return v.Raw
	}
	return utils.LooseString(v)
}

func decodeVitals(r gjson.Result) *types.VitalsDelta {
	if !r.IsObject() {
		return nil
	}
	v := &types.VitalsDelta{
		HP:     decodeVital(firstExisting(r, "hp", "HP")),
		Sanity: decodeVital(firstExisting(r, "sanity", "san")),
		Magic:  decodeVital(firstExisting(r, "magic", "mp")),
	}
	if v.HP == nil && v.Sanity == nil && v.Magic == nil {
		return nil
	}
	return v
}

// decodeVital accepts {current, max} or a bare number meaning current.
func decodeVital(r gjson.Result) *types.VitalDelta {
	if n, ok := utils.LooseInt(r); ok {
		return &types.VitalDelta{Current: &n}
	}
	if !r.IsObject() {
		return nil
	}
	var d types.VitalDelta
	if n, ok := utils.LooseInt(r.Get("current")); ok {
		d.Current = &n
	}
	if n, ok := utils.LooseInt(r.Get("max")); ok {
		d.Max = &n
	}
	if d.Current == nil && d.Max == nil {
		return nil
	}
	return &d
}

func firstExisting(r gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}
