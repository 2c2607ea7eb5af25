package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/dabisonte04/API-UStudy/internal/chat"
	"github.com/dabisonte04/API-UStudy/internal/db"
	"github.com/dabisonte04/API-UStudy/internal/idempotency"
	"github.com/dabisonte04/API-UStudy/internal/llm"
	"github.com/dabisonte04/API-UStudy/internal/logging"
	"github.com/dabisonte04/API-UStudy/internal/models"
	"github.com/dabisonte04/API-UStudy/internal/store"
)

// Rough size of the persona, base instructions, and history transcript
// that wrap the user's message in the prompt. Only used for the spend
// estimate, which errs on the expensive side.
const promptOverheadChars = 4000

// Matches the conversation window the orchestrator feeds the model.
const defaultHistoryPageSize = 10

var (
	logger  *zap.Logger
	repo    *store.Store
	ai      *llm.Client
	service *chat.Service
	idem    *idempotency.Service
)

type ChatRequest struct {
	UserID  string `json:"usuario_id"`
	Message string `json:"mensaje"`
}

type MessageOut struct {
	Text             string `json:"text"`
	IsUser           bool   `json:"isUser"`
	IsRecommendation bool   `json:"esRecomendacion"`
}

type HistoryMessage struct {
	UserMessage string    `json:"mensaje_usuario"`
	AIResponse  string    `json:"respuesta_ia"`
	Date        time.Time `json:"fecha"`
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch request.HTTPMethod + " " + request.Resource {
	case "POST /chat/ia":
		return converse(ctx, request)
	case "GET /chat/ia/historial/{usuario_id}":
		return history(ctx, request)
	case "POST /chat/ia/procesar-tareas-historial/{usuario_id}":
		return processHistory(ctx, request)
	}
	return errorResponse(http.StatusNotFound, "Route not found"), nil
}

func converse(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req ChatRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return errorResponse(http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err)), nil
	}
	if req.UserID == "" || req.Message == "" {
		return errorResponse(http.StatusBadRequest, chat.ErrInvalidInput.Error()), nil
	}

	costControl, err := llm.NewCostControlService()
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Failed to initialize cost control service"), nil
	}
	estimated := llm.EstimateCost(promptOverheadChars+len(req.Message), 700, ai.Model())
	check, err := costControl.CheckUserSpendLimit(ctx, req.UserID, estimated)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Failed to check cost limits"), nil
	}
	if !check.Allowed {
		logger.Warn("chat turn refused by cost control", zap.String("user_id", req.UserID), zap.String("reason", check.Reason))
		return errorResponse(http.StatusTooManyRequests, check.Reason), nil
	}

	response, err := idem.Process(ctx, req.UserID, "/chat/ia", request.Body, func() (interface{}, error) {
		result, err := service.HandleTurn(ctx, req.UserID, req.Message)
		if err != nil {
			return nil, err
		}

		if err := costControl.RecordLLMRequest(ctx, req.UserID, estimated); err != nil {
			logger.Warn("failed to record LLM cost", zap.Error(err))
		}

		tasks := result.GeneratedTasks
		if tasks == nil {
			tasks = []models.Task{}
		}
		return map[string]interface{}{
			"mensaje": MessageOut{
				Text:             result.Text,
				IsUser:           false,
				IsRecommendation: result.IsRecommendation,
			},
			"tareas_generadas": tasks,
		}, nil
	})
	if err != nil {
		if errors.Is(err, chat.ErrInvalidInput) {
			return errorResponse(http.StatusBadRequest, err.Error()), nil
		}
		logger.Error("chat turn failed", zap.String("user_id", req.UserID), zap.Error(err))
		return errorResponse(http.StatusInternalServerError, fmt.Sprintf("Error processing message: %v", err)), nil
	}

	return jsonResponse(http.StatusOK, response), nil
}

// history pages through the conversation. The first page (offset 0) is the
// newest `limit` turns; older pages are addressed by how many messages the
// client has already loaded.
func history(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID := request.PathParameters["usuario_id"]
	if userID == "" {
		return errorResponse(http.StatusBadRequest, "usuario_id is required"), nil
	}
	offset := queryInt(request, "offset", 0)
	limit := queryInt(request, "limit", defaultHistoryPageSize)

	total, err := repo.CountChatTurns(ctx, userID)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error fetching chat history"), nil
	}

	var turns []models.ChatTurn
	if offset == 0 {
		turns, err = repo.RecentChatTurns(ctx, userID, limit)
		if err != nil {
			return errorResponse(http.StatusInternalServerError, "Error fetching chat history"), nil
		}
		// Opening the conversation is the natural moment to mine any stored
		// replies whose suggested tasks were never persisted.
		if _, rerr := service.Reconciler().Reconcile(ctx, userID, turns); rerr != nil {
			logger.Warn("history task backfill failed", zap.String("user_id", userID), zap.Error(rerr))
		}
	} else {
		skip := total - offset
		if skip < 0 {
			skip = 0
		}
		turns, err = repo.ChatTurnsAscending(ctx, userID, skip, limit)
		if err != nil {
			return errorResponse(http.StatusInternalServerError, "Error fetching chat history"), nil
		}
	}

	messages := make([]HistoryMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, HistoryMessage{
			UserMessage: t.UserMessage,
			AIResponse:  t.AIResponse,
			Date:        t.CreatedAt,
		})
	}

	return jsonResponse(http.StatusOK, map[string]interface{}{
		"total":    total,
		"cantidad": len(messages),
		"mensajes": messages,
	}), nil
}

// processHistory runs the task backfill over the user's entire stored
// conversation, not just the recent window.
func processHistory(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID := request.PathParameters["usuario_id"]
	if userID == "" {
		return errorResponse(http.StatusBadRequest, "usuario_id is required"), nil
	}

	turns, err := repo.AllChatTurns(ctx, userID)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error fetching chat history"), nil
	}

	created, err := service.Reconciler().Reconcile(ctx, userID, turns)
	if err != nil {
		logger.Error("history task mining failed", zap.String("user_id", userID), zap.Error(err))
		return errorResponse(http.StatusInternalServerError, "Error processing chat history"), nil
	}

	all, err := repo.TasksByUser(ctx, userID)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error fetching tasks"), nil
	}
	aiTasks, err := repo.AITasks(ctx, userID)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error fetching tasks"), nil
	}

	logger.Info("chat history processed",
		zap.String("user_id", userID),
		zap.Int("turns", len(turns)),
		zap.Int("created", created))

	return jsonResponse(http.StatusOK, map[string]interface{}{
		"mensaje":             fmt.Sprintf("History processed. %d new tasks created.", created),
		"total_tareas":        len(all),
		"tareas_ia":           len(aiTasks),
		"mensajes_procesados": len(turns),
	}), nil
}

func queryInt(request events.APIGatewayProxyRequest, name string, fallback int) int {
	raw := request.QueryStringParameters[name]
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
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
	logger = logging.New("chat")
	if err := db.InitDB(); err != nil {
		fmt.Printf("Error initializing database: %v\n", err)
		os.Exit(1)
	}
	repo = store.New(db.DB)
	ai = llm.NewClient(logger)
	service = chat.NewService(repo, ai, logger)

	var err error
	idem, err = idempotency.NewService(logger)
	if err != nil {
		fmt.Printf("Error initializing idempotency service: %v\n", err)
		os.Exit(1)
	}
}

func main() {
	lambda.Start(handler)
}
