// Package prompt 负责把记忆与世界状态渲染成提示词文本。
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/easeaico/project-keeper/internal/types"
)

const worldStateTemplateText = `
{{- if .Presence.Location}}当前位置：{{.Presence.Location}}
{{end}}
{{- if .Presence.Scene}}当前场景：{{.Presence.Scene}}
{{end}}
{{- if .Presence.NPCs}}在场NPC：{{join .Presence.NPCs "、"}}
{{end}}
{{- if .Allies}}同伴：{{join .Allies "、"}}
{{end}}
{{- with .Vitals}}{{if or .HP .Sanity .Magic}}状态：{{vital "HP" .HP}}{{vital "SAN" .Sanity}}{{vital "MP" .Magic}}
{{end}}{{end}}
{{- if .NPCs}}【NPC】
{{range .NPCs}}- {{.Name}}{{field "状态" .Status}}{{field "关系" .Relation}}{{field "位置" .Location}}{{field "备注" .Notes}}{{if .Ally}}（同伴）{{end}}
{{end}}{{end}}
{{- if .Locations}}【地点】
{{range .Locations}}- {{.Name}}{{field "状态" .Status}}{{field "备注" .Notes}}
{{end}}{{end}}
{{- if .Threads}}【线索与任务】
{{range .Threads}}- [{{.Status}}] {{.Title}}{{field "备注" .Notes}}
{{end}}{{end}}
{{- if .Flags}}【剧情标记】
{{range .Flags}}- {{.Key}} = {{.Value}}
{{end}}{{end}}
{{- if .Notes}}【记录】
{{range .Notes}}- {{.}}
{{end}}{{end}}
{{- if and .IncludeDM .DMNotes}}【主持人备注】
{{range .DMNotes}}- {{.}}
{{end}}{{end}}
{{- if and .IncludeDM .DMArchive}}【主持人旧备注】
{{.DMArchive}}
{{end}}
{{- if .MapText}}【地图】
{{.MapText}}
{{end}}`

var worldStateTemplate = template.Must(template.New("world_state").Funcs(template.FuncMap{
	"join": strings.Join,
	"field": func(label, value string) string {
		if strings.TrimSpace(value) == "" {
			return ""
		}
		return fmt.Sprintf("；%s：%s", label, value)
	},
	"vital": func(label string, p *types.VitalPair) string {
		if p == nil {
			return ""
		}
		return fmt.Sprintf("%s %d/%d ", label, p.Current, p.Max)
	},
}).Parse(worldStateTemplateText))

// FormatWorldState renders state as prompt text. DM-only notes are included
// only when includeDM is set.
func FormatWorldState(state types.WorldState, includeDM bool) string {
	data := struct {
		types.WorldState
		IncludeDM bool
	}{state, includeDM}

	var buf bytes.Buffer
	if err := worldStateTemplate.Execute(&buf, data); err != nil {
		return ""
	}
	out := strings.TrimSpace(buf.String())
	if out == "" {
		return "（暂无记录）"
	}
	return out
}
