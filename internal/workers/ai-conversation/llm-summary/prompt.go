package llmsummary

import (
	"fmt"
	"strings"
)

const closingInstruction = "Focus on what makes these recommendations interesting given the selected filters."

// BuildMessages returns the system and user messages for one summary request. The
// output depends only on its arguments.
func BuildMessages(titles, category, guidance string) []Message {
	category = strings.TrimSpace(category)

	opening := fmt.Sprintf("Please summarize the following %s recommendations.", category)
	if g := strings.TrimSpace(guidance); g != "" {
		opening = `"` + g + `"`
	}

	return []Message{
		{
			Role:    RoleSystem,
			Content: fmt.Sprintf("You are an expert summarizer of %s recommendations.", category),
		},
		{
			Role:    RoleUser,
			Content: strings.Join([]string{opening, titles, closingInstruction}, "\n\n"),
		},
	}
}
