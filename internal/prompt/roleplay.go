package prompt

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/easeaico/project-keeper/internal/scenario"
)

// StateKeyCheckResults and StateKeyMemoryContext are the session state keys
// the narrator instruction reads through ADK placeholders.
const (
	StateKeyCheckResults  = "CheckResults"
	StateKeyMemoryContext = "MemoryContext"
)

const keeperInstructionTemplateText = `你是一场克苏鲁风格调查跑团的主持人（KP），必须严格遵循以下规则：
1. 只描述世界与NPC的反应，不替调查员做决定。
2. 检定结果已经由规则引擎给出，必须按结果叙述，不得改写成功或失败。
3. 保持剧情与已知事实一致，不要遗忘下方记忆中的人物、地点与线索。
4. 需要展示场景布局时，用 ` + "```map" + ` 代码块画出简单的文字地图。

【剧本】{{.Name}}

【记忆】
{MemoryContext}

【本轮检定】
{CheckResults}

【回复要求】
用第二人称叙述，长度适中，结尾给出调查员可以采取的行动方向。`

var keeperInstructionTemplate = template.Must(template.New("keeper").Parse(keeperInstructionTemplateText))

// BuildKeeperInstruction renders the narrator instruction for a scenario.
// The {MemoryContext} and {CheckResults} placeholders are left for ADK to
// fill from session state on every turn.
func BuildKeeperInstruction(catalog *scenario.Catalog) (string, error) {
	name := "自由调查"
	if catalog != nil && catalog.Name != "" {
		name = catalog.Name
	}
	var buf bytes.Buffer
	if err := keeperInstructionTemplate.Execute(&buf, struct{ Name string }{name}); err != nil {
		return "", fmt.Errorf("failed to build prompt: %w", err)
	}
	return buf.String(), nil
}
