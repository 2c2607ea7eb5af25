package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestExtractor() *Extractor {
	return NewExtractor(zap.NewNop())
}

func TestExtractTasksJSONFence(t *testing.T) {
	text := "Here are some ideas for you.\n\n```json\n[\n" +
		`  {"titulo": "Walk", "descripcion": "10 minutes outside", "prioridad": "baja"},` + "\n" +
		`  {"titulo": "Journal", "descripcion": "write three good things"}` + "\n" +
		"]\n```\n\nTake care."

	tasks := newTestExtractor().ExtractTasks(text)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Walk", tasks[0].Title)
	assert.Equal(t, "10 minutes outside", tasks[0].Description)
	assert.Equal(t, "baja", tasks[0].Priority)
	// Priority defaults to media when the item omits it.
	assert.Equal(t, "Journal", tasks[1].Title)
	assert.Equal(t, "media", tasks[1].Priority)
}

func TestExtractTasksGenericFence(t *testing.T) {
	text := "Some suggestions:\n```\n" +
		`[{"titulo": "Stretch", "descripcion": "five minutes", "prioridad": "media"}]` +
		"\n```"

	tasks := newTestExtractor().ExtractTasks(text)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Stretch", tasks[0].Title)
}

func TestExtractTasksLabeledBlock(t *testing.T) {
	text := "You could try this.\n\nSuggested task block:\n" +
		`[{"titulo": "Breathe", "descripcion": "box breathing", "prioridad": "alta"}]`

	tasks := newTestExtractor().ExtractTasks(text)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Breathe", tasks[0].Title)
	assert.Equal(t, "alta", tasks[0].Priority)
}

func TestExtractTasksBareList(t *testing.T) {
	text := "I noted these down: " +
		`[{"titulo": "Call a friend", "descripcion": "catch up tonight", "prioridad": "media"}]`

	tasks := newTestExtractor().ExtractTasks(text)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Call a friend", tasks[0].Title)
}

func TestExtractTasksMalformedSpanSkipped(t *testing.T) {
	// The fenced span is broken JSON; the labeled block further down must
	// still be found.
	text := "```json\n[{\"titulo\": \"Broken\",]\n```\n" +
		"Suggested task block:\n" +
		`[{"titulo": "Valid", "descripcion": "this one parses", "prioridad": "baja"}]`

	tasks := newTestExtractor().ExtractTasks(text)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Valid", tasks[0].Title)
}

func TestExtractTasksNoPattern(t *testing.T) {
	tasks := newTestExtractor().ExtractTasks("Just a normal empathetic reply with no structure at all.")
	assert.Empty(t, tasks)
}

func TestExtractTasksPreservesSourceOrder(t *testing.T) {
	text := "```json\n[" +
		`{"titulo": "First", "descripcion": "first description", "prioridad": "alta"},` +
		`{"titulo": "Second", "descripcion": "second description", "prioridad": "baja"},` +
		`{"titulo": "Third", "descripcion": "third description", "prioridad": "media"}` +
		"]\n```"

	tasks := newTestExtractor().ExtractTasks(text)
	require.Len(t, tasks, 3)
	assert.Equal(t, []string{"First", "Second", "Third"},
		[]string{tasks[0].Title, tasks[1].Title, tasks[2].Title})
}

func TestScanPlainTextPriorityLine(t *testing.T) {
	text := "Morning walk: take ten minutes outside every day (baja)"

	tasks := newTestExtractor().ScanPlainText(text)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Morning walk", tasks[0].Title)
	assert.Equal(t, "take ten minutes outside every day", tasks[0].Description)
	assert.Equal(t, "baja", tasks[0].Priority)
}

func TestScanPlainTextBulletAndNumbered(t *testing.T) {
	text := "A few small ideas:\n" +
		"• Breathing break - pause and breathe deeply for five minutes\n" +
		"1. Journal tonight: write down three things that went well today\n"

	tasks := newTestExtractor().ScanPlainText(text)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Breathing break", tasks[0].Title)
	assert.Equal(t, "media", tasks[0].Priority)
	assert.Equal(t, "Journal tonight", tasks[1].Title)
}

func TestScanPlainTextLengthThresholds(t *testing.T) {
	extractor := newTestExtractor()

	// Title must be longer than 3 characters.
	assert.Empty(t, extractor.ScanPlainText("• Run - a perfectly long description here"))
	// Description must be longer than 10 characters.
	assert.Empty(t, extractor.ScanPlainText("• Take a rest - too short"))
}

func TestScanPlainTextDedupsTitles(t *testing.T) {
	text := "• Evening wind-down - put the phone away an hour before bed\n" +
		"• Evening wind-down - put the phone away an hour before bed\n"

	tasks := newTestExtractor().ScanPlainText(text)
	assert.Len(t, tasks, 1)
}
