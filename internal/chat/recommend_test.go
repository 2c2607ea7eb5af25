package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dabisonte04/API-UStudy/internal/models"
)

func TestAlreadyRecommendedExplicitFlag(t *testing.T) {
	history := []models.ChatTurn{
		{AIResponse: "Nothing suggestive in this text.", RecommendedForm: false},
		{AIResponse: "Plain reply, no trigger phrase either.", RecommendedForm: true},
	}
	assert.True(t, AlreadyRecommended(history))
}

func TestAlreadyRecommendedPhraseMatch(t *testing.T) {
	// Older rows have no flag; the phrase scan covers them.
	history := []models.ChatTurn{
		{AIResponse: "It might help to complete the Psychological Assessment when you feel ready."},
	}
	assert.True(t, AlreadyRecommended(history))
}

func TestAlreadyRecommendedNeither(t *testing.T) {
	history := []models.ChatTurn{
		{AIResponse: "I hear you, that sounds like a heavy week."},
		{AIResponse: "Would you like to talk about what changed?"},
	}
	assert.False(t, AlreadyRecommended(history))
}

func TestAlreadyRecommendedEmptyHistory(t *testing.T) {
	assert.False(t, AlreadyRecommended(nil))
}
