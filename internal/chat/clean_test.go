package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanResponseStripsBlocks(t *testing.T) {
	text := "You are doing well.\n\n```json\n" +
		`[{"titulo": "Walk", "descripcion": "outside", "prioridad": "baja"}]` +
		"\n```\n\nKeep going."

	cleaned := CleanResponse(text)
	assert.NotContains(t, cleaned, "titulo")
	assert.NotContains(t, cleaned, "```")
	assert.Contains(t, cleaned, "You are doing well.")
	assert.Contains(t, cleaned, "Keep going.")
}

func TestCleanResponseStripsLabeledBlock(t *testing.T) {
	text := "Small steps help.\nSuggested task block:\n" +
		`[{"titulo": "Rest", "descripcion": "nap", "prioridad": "media"}]`

	cleaned := CleanResponse(text)
	assert.Equal(t, "Small steps help.", cleaned)
}

func TestCleanResponseCollapsesBlankLines(t *testing.T) {
	cleaned := CleanResponse("first paragraph\n\n\n\n\nsecond paragraph")
	assert.Equal(t, "first paragraph\n\nsecond paragraph", cleaned)
}
