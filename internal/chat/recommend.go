package chat

import (
	"strings"

	"github.com/dabisonte04/API-UStudy/internal/models"
)

// Phrases that indicate the assessment form was already suggested in an AI
// response. Rows written before the RecommendedForm flag existed carry no
// flag, so the text check stays alongside it for backward read
// compatibility; new turns always get the explicit flag.
var recommendationPhrases = []string{
	"complete the emotional evaluation",
	"emotional evaluation",
	"emotional questionnaire",
	"evaluation form",
	"initial evaluation",
	"initial questionnaire",
	"psychological assessment",
	"psychological assessment form",
	"assess your emotional state",
	"complete the form",
	"take the assessment",
}

// AlreadyRecommended reports whether any turn in the history surfaced the
// assessment-form nudge, either via the explicit flag or via a trigger
// phrase in the AI response text.
func AlreadyRecommended(history []models.ChatTurn) bool {
	for _, turn := range history {
		if turn.RecommendedForm {
			return true
		}

		response := strings.ToLower(turn.AIResponse)
		for _, phrase := range recommendationPhrases {
			if strings.Contains(response, phrase) {
				return true
			}
		}
	}
	return false
}
