package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/easeaico/project-keeper/internal/types"
)

// MemoryContext contains all inputs for the next-turn context.
type MemoryContext struct {
	Record    *types.MemoryRecord
	Character *types.Character
}

const memoryContextTemplateText = `
{{- if .Summary}}【前情提要】
{{.Summary}}

{{end}}
{{- if .Recent}}【最近几轮】
{{range .Recent}}{{.Line}}
{{end}}
{{end}}
{{- with .Character}}【调查员】{{.Name}}
{{- if .Inventory}}
物品：{{join .Inventory "、"}}{{end}}
{{- if .Buffs}}
增益：{{join .Buffs "、"}}{{end}}
{{- if .Debuffs}}
减益：{{join .Debuffs "、"}}{{end}}

{{end}}【世界状态】
{{.State}}`

var memoryContextTemplate = template.Must(template.New("memory_context").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(memoryContextTemplateText))

// BuildMemoryContext assembles the memory block placed into the narrator's
// instruction: short summary, the newest rounds verbatim, the investigator's
// lists and the world state without DM notes.
func BuildMemoryContext(mc MemoryContext) (string, error) {
	data := struct {
		Summary   string
		Recent    []types.RoundSummary
		Character *types.Character
		State     string
	}{
		Character: mc.Character,
		State:     FormatWorldState(types.WorldState{}, false),
	}
	if mc.Record != nil {
		data.Summary = mc.Record.ShortSummary()
		data.Recent = mc.Record.RecentRounds()
		data.State = FormatWorldState(mc.Record.State, false)
	}

	var buf bytes.Buffer
	if err := memoryContextTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build memory context: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
