package chat

import (
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/dabisonte04/API-UStudy/internal/models"
)

// TaskCandidate is one suggested task as embedded in AI output. The JSON
// keys are the wire contract with the model prompt and must stay exactly
// titulo/descripcion/prioridad.
type TaskCandidate struct {
	Title       string `json:"titulo"`
	Description string `json:"descripcion"`
	Priority    string `json:"prioridad"`
}

// blockStrategy is one way a task list may be embedded in free text. The
// strategies are tried in priority order and the first successful parse
// wins.
type blockStrategy struct {
	name    string
	pattern *regexp.Regexp
}

var blockStrategies = []blockStrategy{
	{"json fence", regexp.MustCompile("(?i)```json\\s*(\\[[\\s\\S]+?\\])\\s*```")},
	{"generic fence", regexp.MustCompile("```\\s*(\\[[\\s\\S]+?\\])\\s*```")},
	{"labeled block", regexp.MustCompile(`(?i)Suggested task block:\s*(\[[\s\S]+?\])`)},
	{"bare list", regexp.MustCompile(`(?i)(\[[\s\S]*?"titulo"[\s\S]*?"descripcion"[\s\S]*?"prioridad"[\s\S]*?\])`)},
}

// Line-level heuristics for responses that carry suggestions as prose
// instead of a structured block.
var (
	inlinePriorityLine = regexp.MustCompile(`(?im)^\s*([^:\n]+):\s*([^()\n]+?)\s*\((alta|media|baja)\)\s*$`)
	bulletLine         = regexp.MustCompile(`(?m)^\s*[•\-\*]\s*([^:\-\n]+?)\s*[:\-]\s*(.+)$`)
	numberedLine       = regexp.MustCompile(`(?m)^\s*\d+\.\s*([^:\n]+?):\s*(.+)$`)
)

// Extractor recovers structured task suggestions from raw AI text. It is
// pure over its input: no persistence, and a parse failure is never an
// error, only a skipped candidate.
type Extractor struct {
	logger *zap.Logger
}

func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// ExtractTasks tries each block strategy in order and returns the items of
// the first span that parses as a task list, in source order. Malformed
// spans are logged and skipped. When no strategy matches, the result is
// empty.
func (e *Extractor) ExtractTasks(text string) []TaskCandidate {
	for _, strategy := range blockStrategies {
		match := strategy.pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}

		raw := strings.TrimSpace(match[1])
		var tasks []TaskCandidate
		if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
			e.logger.Warn("task block did not parse, trying next pattern",
				zap.String("strategy", strategy.name),
				zap.Error(err))
			continue
		}

		e.logger.Info("extracted task block",
			zap.String("strategy", strategy.name),
			zap.Int("tasks", len(tasks)))
		return normalizeCandidates(tasks)
	}

	return nil
}

// ScanPlainText is the best-effort fallback for responses with no
// structured block: it matches "Title: description (priority)", bulleted
// "• Title - description", and numbered "1. Title: description" lines.
// The length thresholds (title > 3, description > 10) keep false positives
// down; false negatives are acceptable.
func (e *Extractor) ScanPlainText(text string) []TaskCandidate {
	var found []TaskCandidate
	seen := make(map[string]bool)

	add := func(title, description, priority string) {
		title = strings.TrimSpace(title)
		description = strings.TrimSpace(description)
		if len(title) <= 3 || len(description) <= 10 || seen[title] {
			return
		}
		if priority == "" {
			priority = models.PriorityMedium
		}
		seen[title] = true
		found = append(found, TaskCandidate{
			Title:       title,
			Description: description,
			Priority:    strings.ToLower(priority),
		})
	}

	for _, m := range inlinePriorityLine.FindAllStringSubmatch(text, -1) {
		add(m[1], m[2], m[3])
	}
	for _, m := range bulletLine.FindAllStringSubmatch(text, -1) {
		add(m[1], m[2], "")
	}
	for _, m := range numberedLine.FindAllStringSubmatch(text, -1) {
		add(m[1], m[2], "")
	}

	if len(found) > 0 {
		e.logger.Info("found tasks in plain text", zap.Int("tasks", len(found)))
	}
	return found
}

func normalizeCandidates(tasks []TaskCandidate) []TaskCandidate {
	for i := range tasks {
		tasks[i].Title = strings.TrimSpace(tasks[i].Title)
		tasks[i].Description = strings.TrimSpace(tasks[i].Description)
		if tasks[i].Priority == "" {
			tasks[i].Priority = models.PriorityMedium
		}
	}
	return tasks
}
