// Package assessment turns questionnaire answers into a psychological-state
// evaluation via the model, and parses the JSON object it replies with.
package assessment

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

type AnswerItem struct {
	Question string `json:"pregunta"`
	Value    int    `json:"valor_respuesta"`
}

// EvaluationResult is the JSON object the model is instructed to reply
// with, and nothing else.
type EvaluationResult struct {
	Level           string             `json:"nivel"`
	Scores          map[string]float64 `json:"calificaciones"`
	Description     string             `json:"descripcion"`
	Recommendations []string           `json:"recomendaciones"`
}

const SystemPersona = "You are a clinical psychologist expert in mental health."

const promptTemplate = `Act as a clinical psychologist specialized in emotional wellbeing.

Below are a user's answers to a structured questionnaire covering 4 dimensions: mood (depression), anxiety, stress, and emotional support. Each question is answered from 0 (never) to 3 (always).

Analyze the answers and do the following:

1. Compute the average per dimension (depression, anxiety, stress, support).
2. Estimate the user's overall psychological state using this level system:
   - verde: stable and emotionally well
   - amarillo_claro: mild signs of emotional strain
   - amarillo: moderate symptoms that need attention
   - naranja: serious signs that need urgent action
   - rojo: critical symptoms, possible emotional risk

3. Write an empathetic, professional description of the user's state.
4. Suggest at least 3 practical recommendations for their emotional wellbeing.

IMPORTANT: Reply ONLY with the JSON in the specified format. No extra text, no explanations, no markdown code fences.

Response format (pure JSON):
{
  "nivel": "amarillo",
  "calificaciones": {
    "animo": 2.5,
    "ansiedad": 3.2,
    "estres": 3.5,
    "apoyo": 1.0
  },
  "descripcion": "Empathetic description of the user's emotional state...",
  "recomendaciones": [
    "First practical recommendation",
    "Second practical recommendation",
    "Third practical recommendation"
  ]
}

User's answers:
%s`

// The model is told not to fence its reply, but it sometimes does anyway.
var (
	fencedObject = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	bareObject   = regexp.MustCompile(`(?s)\{.*\}`)
)

func BuildPrompt(answers []AnswerItem) string {
	lines := make([]string, 0, len(answers))
	for _, a := range answers {
		lines = append(lines, fmt.Sprintf("- %s -> %d", a.Question, a.Value))
	}
	return fmt.Sprintf(promptTemplate, strings.Join(lines, "\n"))
}

// ExtractEvaluation pulls the JSON object out of a model reply that may
// wrap it in a markdown fence or surrounding prose.
func ExtractEvaluation(content string) (*EvaluationResult, error) {
	var candidates []string
	if m := fencedObject.FindStringSubmatch(content); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := bareObject.FindString(content); m != "" {
		candidates = append(candidates, m)
	}

	for _, raw := range candidates {
		var result EvaluationResult
		if err := json.Unmarshal([]byte(raw), &result); err == nil && result.Level != "" {
			return &result, nil
		}
	}
	return nil, fmt.Errorf("no valid evaluation JSON in model reply: %.200s", content)
}
