package models

import (
	"time"
)

// Psychological state levels, from stable to critical.
const (
	LevelGreen       = "verde"
	LevelLightYellow = "amarillo_claro"
	LevelYellow      = "amarillo"
	LevelOrange      = "naranja"
	LevelRed         = "rojo"
)

// Task priorities. These values also appear verbatim in the AI task-block
// wire format, so they are not translated.
const (
	PriorityHigh   = "alta"
	PriorityMedium = "media"
	PriorityLow    = "baja"
)

// Task origins.
const (
	OriginUser = "usuario"
	OriginAI   = "ia"
)

// MaxTitleLength is the task title column limit, in characters.
const MaxTitleLength = 100

// TruncateTitle caps a title at MaxTitleLength characters. Counting runes
// rather than bytes keeps multi-byte text intact.
func TruncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= MaxTitleLength {
		return title
	}
	return string(runes[:MaxTitleLength])
}

type User struct {
	ID           string `json:"id"`
	Name         string `json:"nombre"`
	Email        string `json:"correo"`
	PasswordHash string `json:"-"` // Password hash is never exposed in JSON
	DeviceID     string `json:"u_id,omitempty"`
}

// PsychologicalState is an immutable snapshot of a user's assessed emotional
// level. The current state is the most recent snapshot by CreatedAt.
type PsychologicalState struct {
	ID          string    `json:"id"`
	UserID      string    `json:"usuario_id"`
	Level       string    `json:"nivel"`
	Description string    `json:"descripcion"`
	CreatedAt   time.Time `json:"fecha"`
}

// ChatTurn is one exchange with the AI assistant. AIResponse holds the
// cleaned text, with embedded task blocks and sentinel markers removed.
// RecommendedForm records whether the assessment nudge was surfaced in this
// turn; older rows may predate the flag, so readers also phrase-match the
// response text.
type ChatTurn struct {
	ID              string    `json:"id"`
	UserID          string    `json:"usuario_id"`
	UserMessage     string    `json:"mensaje_usuario"`
	AIResponse      string    `json:"respuesta_ia"`
	CreatedAt       time.Time `json:"fecha"`
	RecommendedForm bool      `json:"recomendacion_formulario"`
}

type Task struct {
	ID           string     `json:"id"`
	UserID       string     `json:"usuario_id"`
	Title        string     `json:"titulo"`
	Description  string     `json:"descripcion"`
	Completed    bool       `json:"completada"`
	Synchronized bool       `json:"sincronizada"`
	Priority     string     `json:"prioridad"`
	RemindAt     *time.Time `json:"fecha_recordatorio,omitempty"`
	Origin       string     `json:"origen"`
	CreatedAt    time.Time  `json:"fecha_creacion"`
	UpdatedAt    time.Time  `json:"fecha_actualizacion"`
}

// AssessmentAnswer is one questionnaire answer (0 = never .. 3 = always),
// persisted alongside the state snapshot produced from it.
type AssessmentAnswer struct {
	ID        string    `json:"id"`
	UserID    string    `json:"usuario_id"`
	Question  string    `json:"pregunta"`
	Value     int       `json:"valor_respuesta"`
	CreatedAt time.Time `json:"fecha"`
}

func ValidPriority(p string) bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

func ValidOrigin(o string) bool {
	return o == OriginUser || o == OriginAI
}

func ValidLevel(l string) bool {
	switch l {
	case LevelGreen, LevelLightYellow, LevelYellow, LevelOrange, LevelRed:
		return true
	}
	return false
}
