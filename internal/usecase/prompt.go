package usecase

import "strings"

var qualityTerms = []string{
	"high quality",
	"detailed",
	"professional",
	"masterpiece",
	"8K resolution",
	"sharp focus",
}

const maxQualityTerms = 3

// EnhancePrompt appends up to three quality terms the prompt does not already mention.
func EnhancePrompt(prompt string) string {
	lower := strings.ToLower(prompt)
	var missing []string
	for _, term := range qualityTerms {
		if len(missing) == maxQualityTerms {
			break
		}
		if !strings.Contains(lower, strings.ToLower(term)) {
			missing = append(missing, term)
		}
	}
	if len(missing) == 0 {
		return prompt
	}
	return prompt + ", " + strings.Join(missing, ", ")
}
