package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dabisonte04/API-UStudy/internal/assessment"
	"github.com/dabisonte04/API-UStudy/internal/db"
	"github.com/dabisonte04/API-UStudy/internal/llm"
	"github.com/dabisonte04/API-UStudy/internal/logging"
	"github.com/dabisonte04/API-UStudy/internal/models"
	"github.com/dabisonte04/API-UStudy/internal/store"
)

var (
	logger *zap.Logger
	states *store.Store
	ai     *llm.Client
)

type EvaluateRequest struct {
	UserID  string                  `json:"usuario_id"`
	Answers []assessment.AnswerItem `json:"respuestas"`
}

type ActivateRequest struct {
	UserID string `json:"usuario_id"`
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch request.HTTPMethod + " " + request.Resource {
	case "POST /estado-psicologico/evaluar-estado-emocional":
		return evaluate(ctx, request)
	case "POST /estado-psicologico/activar-evaluacion-inicial":
		return activate(ctx, request)
	}
	return errorResponse(http.StatusNotFound, "Route not found"), nil
}

func evaluate(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req EvaluateRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return errorResponse(http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err)), nil
	}
	if req.UserID == "" || len(req.Answers) == 0 {
		return errorResponse(http.StatusBadRequest, "usuario_id and respuestas are required"), nil
	}

	logger.Info("evaluating emotional state",
		zap.String("user_id", req.UserID),
		zap.Int("answers", len(req.Answers)))

	prompt := assessment.BuildPrompt(req.Answers)

	costControl, err := llm.NewCostControlService()
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Failed to initialize cost control service"), nil
	}
	estimated := llm.EstimateCost(len(prompt), 800, ai.Model())
	check, err := costControl.CheckUserSpendLimit(ctx, req.UserID, estimated)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Failed to check cost limits"), nil
	}
	if !check.Allowed {
		logger.Warn("evaluation refused by cost control", zap.String("user_id", req.UserID), zap.String("reason", check.Reason))
		return errorResponse(http.StatusTooManyRequests, check.Reason), nil
	}

	content, err := ai.Chat(ctx, llm.ChatRequest{
		System:      assessment.SystemPersona,
		Prompt:      prompt,
		Temperature: 0.3,
		MaxTokens:   800,
	})
	if err != nil {
		logger.Error("evaluation AI call failed", zap.Error(err))
		return errorResponse(http.StatusInternalServerError, fmt.Sprintf("AI service error: %v", err)), nil
	}

	if err := costControl.RecordLLMRequest(ctx, req.UserID, estimated); err != nil {
		logger.Warn("failed to record LLM cost", zap.Error(err))
	}

	result, err := assessment.ExtractEvaluation(content)
	if err != nil {
		logger.Error("evaluation reply unusable", zap.Error(err))
		return errorResponse(http.StatusInternalServerError, "Could not process the AI evaluation"), nil
	}
	if !models.ValidLevel(result.Level) {
		result.Level = models.LevelYellow
	}

	now := time.Now().UTC()
	state := &models.PsychologicalState{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Level:       result.Level,
		Description: result.Description,
		CreatedAt:   now,
	}
	answers := make([]models.AssessmentAnswer, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, models.AssessmentAnswer{
			ID:        uuid.NewString(),
			UserID:    req.UserID,
			Question:  a.Question,
			Value:     a.Value,
			CreatedAt: now,
		})
	}

	if err := states.CreatePsychState(ctx, state, answers); err != nil {
		logger.Error("failed to persist state", zap.Error(err))
		return errorResponse(http.StatusInternalServerError, "Error saving psychological state"), nil
	}

	logger.Info("psychological state saved",
		zap.String("user_id", req.UserID),
		zap.String("state_id", state.ID),
		zap.String("level", state.Level))

	return jsonResponse(http.StatusOK, map[string]interface{}{
		"mensaje": "Evaluation completed successfully.",
		"estado": map[string]string{
			"nivel":       state.Level,
			"descripcion": state.Description,
		},
		"recomendaciones": result.Recommendations,
	}), nil
}

func activate(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req ActivateRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return errorResponse(http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err)), nil
	}
	if req.UserID == "" {
		return errorResponse(http.StatusBadRequest, "usuario_id is required"), nil
	}

	has, err := states.HasPsychState(ctx, req.UserID)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error checking psychological state"), nil
	}

	if has {
		return jsonResponse(http.StatusOK, map[string]string{
			"estado":  "ya_registrado",
			"mensaje": "The psychological profile was already evaluated.",
		}), nil
	}
	return jsonResponse(http.StatusOK, map[string]string{
		"estado":  "pendiente",
		"mensaje": "Psychological profile not evaluated yet. The form can be shown.",
	}), nil
}

func jsonResponse(statusCode int, body interface{}) events.APIGatewayProxyResponse {
	payload, err := json.Marshal(body)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error creating response")
	}
	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(payload),
	}
}

func errorResponse(statusCode int, message string) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(map[string]string{"error": message})
	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func init() {
	logger = logging.New("assessment")
	if err := db.InitDB(); err != nil {
		fmt.Printf("Error initializing database: %v\n", err)
		os.Exit(1)
	}
	states = store.New(db.DB)
	ai = llm.NewClient(logger)
}

func main() {
	lambda.Start(handler)
}
