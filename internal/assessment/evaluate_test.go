package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validJSON = `{
  "nivel": "amarillo",
  "calificaciones": {"animo": 2.0, "ansiedad": 1.5, "estres": 2.5, "apoyo": 1.0},
  "descripcion": "Moderate strain with limited support.",
  "recomendaciones": ["Sleep on a schedule", "Short daily walks", "Talk to someone you trust"]
}`

func TestExtractEvaluationPureJSON(t *testing.T) {
	result, err := ExtractEvaluation(validJSON)
	require.NoError(t, err)
	assert.Equal(t, "amarillo", result.Level)
	assert.Equal(t, 2.5, result.Scores["estres"])
	assert.Len(t, result.Recommendations, 3)
}

func TestExtractEvaluationFenced(t *testing.T) {
	result, err := ExtractEvaluation("Here is the result:\n```json\n" + validJSON + "\n```")
	require.NoError(t, err)
	assert.Equal(t, "amarillo", result.Level)
}

func TestExtractEvaluationSurroundingProse(t *testing.T) {
	result, err := ExtractEvaluation("Of course, here you go. " + validJSON + " Hope this helps!")
	require.NoError(t, err)
	assert.Equal(t, "Moderate strain with limited support.", result.Description)
}

func TestExtractEvaluationGarbage(t *testing.T) {
	_, err := ExtractEvaluation("I cannot produce a JSON today.")
	assert.Error(t, err)

	_, err = ExtractEvaluation("{\"not\": \"an evaluation\"}")
	assert.Error(t, err)
}

func TestBuildPromptListsAnswers(t *testing.T) {
	prompt := BuildPrompt([]AnswerItem{
		{Question: "Do you sleep well?", Value: 1},
		{Question: "Do you feel anxious?", Value: 3},
	})
	assert.Contains(t, prompt, "- Do you sleep well? -> 1")
	assert.Contains(t, prompt, "- Do you feel anxious? -> 3")
	assert.Contains(t, prompt, "Reply ONLY with the JSON")
}
