package bot

import (
	"deskchat/pkg/llm"
	"deskchat/pkg/models"
)

// BuildPrompt converts the newest window of conversation history into
// completion turns, oldest first. User messages map to the "user" role
// and bot replies to "assistant".
func BuildPrompt(history []models.Message, window int) []llm.Turn {
	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}
	turns := make([]llm.Turn, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Sender == models.SenderBot {
			role = "assistant"
		}
		turns = append(turns, llm.Turn{Role: role, Content: m.Content})
	}
	return turns
}
