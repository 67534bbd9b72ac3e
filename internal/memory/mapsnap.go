package memory

import (
	"regexp"
	"strings"

	"github.com/easeaico/project-keeper/internal/types"
)

var mapBlockPattern = regexp.MustCompile("(?s)```map[ \\t]*\\r?\\n(.*?)```")

// LatestMap returns the last map block authored by the DM in messages.
func LatestMap(messages []types.Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if types.NormalizeRole(m.Role) != types.RoleDM {
			continue
		}
		matches := mapBlockPattern.FindAllStringSubmatch(m.Content, -1)
		if len(matches) == 0 {
			continue
		}
		content := strings.TrimSpace(matches[len(matches)-1][1])
		if content != "" {
			return content, true
		}
	}
	return "", false
}

func stripMapBlocks(text string) string {
	return mapBlockPattern.ReplaceAllString(text, "")
}
