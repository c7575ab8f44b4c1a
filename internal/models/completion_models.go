package models

// CompletionModels are the chat models offered to callers; the first is the default.
var CompletionModels = []string{
	"anthropic/claude-3-haiku",
	"anthropic/claude-3-sonnet",
	"anthropic/claude-3-opus",
	"openai/gpt-3.5-turbo",
	"openai/gpt-4",
	"meta-llama/llama-3-8b-instruct",
	"meta-llama/llama-3-70b-instruct",
	"google/gemini-pro",
	"mistralai/mistral-7b-instruct",
	"microsoft/wizardlm-2-8x22b",
}

// LegacyGenres are accepted by the raw genre lookup route.
var LegacyGenres = []string{"romance", "comedy", "horror", "thriller", "fiction", "drama"}

func IsLegacyGenre(genre string) bool {
	for _, g := range LegacyGenres {
		if g == genre {
			return true
		}
	}
	return false
}
