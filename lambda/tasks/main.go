package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dabisonte04/API-UStudy/internal/db"
	"github.com/dabisonte04/API-UStudy/internal/logging"
	"github.com/dabisonte04/API-UStudy/internal/models"
	"github.com/dabisonte04/API-UStudy/internal/store"
)

var (
	logger *zap.Logger
	tasks  *store.Store
)

type CreateTaskRequest struct {
	UserID      string     `json:"usuario_id"`
	Title       string     `json:"titulo"`
	Description string     `json:"descripcion"`
	Priority    string     `json:"prioridad"`
	RemindAt    *time.Time `json:"fecha_recordatorio"`
	Origin      string     `json:"origen"`
}

// UpdateTaskRequest uses pointers so an absent field leaves the stored
// value untouched.
type UpdateTaskRequest struct {
	Title       *string    `json:"titulo"`
	Description *string    `json:"descripcion"`
	Completed   *bool      `json:"completada"`
	Priority    *string    `json:"prioridad"`
	RemindAt    *time.Time `json:"fecha_recordatorio"`
}

type SyncRequest struct {
	UserID string        `json:"usuario_id"`
	Tasks  []models.Task `json:"tareas"`
}

type MarkSyncedRequest struct {
	TaskIDs []string `json:"tarea_ids"`
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch request.HTTPMethod + " " + request.Resource {
	case "POST /tareas":
		return createTask(ctx, request)
	case "GET /tareas/{tarea_id}":
		return getTask(ctx, request)
	case "PATCH /tareas/{tarea_id}":
		return updateTask(ctx, request)
	case "DELETE /tareas/{tarea_id}":
		return deleteTask(ctx, request)
	case "POST /tareas/{tarea_id}/completar":
		return completeTask(ctx, request)
	case "GET /tareas/usuario/{usuario_id}":
		return listTasks(ctx, request)
	case "GET /tareas/usuario/{usuario_id}/completadas":
		return listByCompleted(ctx, request)
	case "GET /tareas/usuario/{usuario_id}/filtrar":
		return filterTasks(ctx, request)
	case "POST /tareas/sync":
		return syncTasks(ctx, request)
	case "GET /tareas/usuario/{usuario_id}/sync":
		return pullTasks(ctx, request)
	case "POST /tareas/usuario/{usuario_id}/marcar-sincronizadas":
		return markSynchronized(ctx, request)
	}
	return errorResponse(http.StatusNotFound, "Route not found"), nil
}

func createTask(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req CreateTaskRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return errorResponse(http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err)), nil
	}
	if req.UserID == "" || req.Title == "" {
		return errorResponse(http.StatusBadRequest, "usuario_id and titulo are required"), nil
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(req.Priority) {
		return errorResponse(http.StatusBadRequest, "prioridad must be alta, media or baja"), nil
	}
	if req.Origin == "" {
		req.Origin = models.OriginUser
	}
	if !models.ValidOrigin(req.Origin) {
		return errorResponse(http.StatusBadRequest, "origen must be usuario or ia"), nil
	}
	req.Title = models.TruncateTitle(req.Title)

	now := time.Now().UTC()
	task := &models.Task{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		RemindAt:    req.RemindAt,
		Origin:      req.Origin,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tasks.CreateTask(ctx, task); err != nil {
		logger.Error("create task failed", zap.Error(err))
		return errorResponse(http.StatusInternalServerError, "Error creating task"), nil
	}
	return jsonResponse(http.StatusOK, task), nil
}

func getTask(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	task, err := tasks.TaskByID(ctx, request.PathParameters["tarea_id"])
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error fetching task"), nil
	}
	if task == nil {
		return errorResponse(http.StatusNotFound, "Task not found"), nil
	}
	return jsonResponse(http.StatusOK, task), nil
}

func updateTask(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req UpdateTaskRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return errorResponse(http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err)), nil
	}

	task, err := tasks.TaskByID(ctx, request.PathParameters["tarea_id"])
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error fetching task"), nil
	}
	if task == nil {
		return errorResponse(http.StatusNotFound, "Task not found"), nil
	}

	if req.Title != nil {
		title := *req.Title
		if title == "" {
			return errorResponse(http.StatusBadRequest, "titulo cannot be empty"), nil
		}
		task.Title = models.TruncateTitle(title)
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}
	if req.Priority != nil {
		if !models.ValidPriority(*req.Priority) {
			return errorResponse(http.StatusBadRequest, "prioridad must be alta, media or baja"), nil
		}
		task.Priority = *req.Priority
	}
	if req.RemindAt != nil {
		task.RemindAt = req.RemindAt
	}
	task.UpdatedAt = time.Now().UTC()

	if err := tasks.UpdateTask(ctx, task); err != nil {
		return errorResponse(http.StatusInternalServerError, "Error updating task"), nil
	}
	return jsonResponse(http.StatusOK, task), nil
}

func deleteTask(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	deleted, err := tasks.DeleteTask(ctx, request.PathParameters["tarea_id"])
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error deleting task"), nil
	}
	if !deleted {
		return errorResponse(http.StatusNotFound, "Task not found"), nil
	}
	return jsonResponse(http.StatusOK, map[string]string{"mensaje": "Task deleted successfully."}), nil
}

func completeTask(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	completed := true
	if raw := request.QueryStringParameters["completada"]; raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return errorResponse(http.StatusBadRequest, "completada must be true or false"), nil
		}
		completed = v
	}

	task, err := tasks.TaskByID(ctx, request.PathParameters["tarea_id"])
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error fetching task"), nil
	}
	if task == nil {
		return errorResponse(http.StatusNotFound, "Task not found"), nil
	}

	task.Completed = completed
	task.UpdatedAt = time.Now().UTC()
	if err := tasks.UpdateTask(ctx, task); err != nil {
		return errorResponse(http.StatusInternalServerError, "Error updating task"), nil
	}
	return jsonResponse(http.StatusOK, task), nil
}

func listTasks(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	list, err := tasks.TasksByUser(ctx, request.PathParameters["usuario_id"])
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error fetching tasks"), nil
	}
	return jsonResponse(http.StatusOK, taskList(list)), nil
}

func listByCompleted(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	completed := true
	if raw := request.QueryStringParameters["completadas"]; raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return errorResponse(http.StatusBadRequest, "completadas must be true or false"), nil
		}
		completed = v
	}

	list, err := tasks.TasksByCompleted(ctx, request.PathParameters["usuario_id"], completed)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error fetching tasks"), nil
	}
	return jsonResponse(http.StatusOK, taskList(list)), nil
}

func filterTasks(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	priority := request.QueryStringParameters["prioridad"]
	origin := request.QueryStringParameters["origen"]
	if priority != "" && !models.ValidPriority(priority) {
		return errorResponse(http.StatusBadRequest, "prioridad must be alta, media or baja"), nil
	}
	if origin != "" && !models.ValidOrigin(origin) {
		return errorResponse(http.StatusBadRequest, "origen must be usuario or ia"), nil
	}

	list, err := tasks.FilterTasks(ctx, request.PathParameters["usuario_id"], priority, origin)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error fetching tasks"), nil
	}
	return jsonResponse(http.StatusOK, taskList(list)), nil
}

// syncTasks upserts a batch the client accumulated offline. Tasks with a
// known id are updated in place; everything else is created.
func syncTasks(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req SyncRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return errorResponse(http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err)), nil
	}
	if req.UserID == "" {
		return errorResponse(http.StatusBadRequest, "usuario_id is required"), nil
	}

	created, updated := 0, 0
	now := time.Now().UTC()
	for i := range req.Tasks {
		t := req.Tasks[i]
		t.UserID = req.UserID
		if t.Title == "" {
			continue
		}
		t.Title = models.TruncateTitle(t.Title)
		if !models.ValidPriority(t.Priority) {
			t.Priority = models.PriorityMedium
		}
		if !models.ValidOrigin(t.Origin) {
			t.Origin = models.OriginUser
		}
		t.Synchronized = true
		t.UpdatedAt = now

		var existing *models.Task
		if t.ID != "" {
			var err error
			existing, err = tasks.TaskByID(ctx, t.ID)
			if err != nil {
				return errorResponse(http.StatusInternalServerError, "Error synchronizing tasks"), nil
			}
		}

		if existing != nil && existing.UserID == req.UserID {
			t.CreatedAt = existing.CreatedAt
			if err := tasks.UpdateTask(ctx, &t); err != nil {
				return errorResponse(http.StatusInternalServerError, "Error synchronizing tasks"), nil
			}
			updated++
			continue
		}

		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if err := tasks.CreateTask(ctx, &t); err != nil {
			return errorResponse(http.StatusInternalServerError, "Error synchronizing tasks"), nil
		}
		created++
	}

	logger.Info("tasks synchronized",
		zap.String("user_id", req.UserID),
		zap.Int("created", created),
		zap.Int("updated", updated))

	return jsonResponse(http.StatusOK, map[string]interface{}{
		"mensaje":      "Synchronization completed.",
		"creadas":      created,
		"actualizadas": updated,
	}), nil
}

// pullTasks returns tasks created since the client's last sync; without the
// ultima_sincronizacion parameter it returns everything.
func pullTasks(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var since *time.Time
	if raw := request.QueryStringParameters["ultima_sincronizacion"]; raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return errorResponse(http.StatusBadRequest, "ultima_sincronizacion must be an RFC3339 timestamp"), nil
		}
		since = &t
	}

	list, err := tasks.TasksCreatedAfter(ctx, request.PathParameters["usuario_id"], since)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error fetching tasks"), nil
	}
	return jsonResponse(http.StatusOK, map[string]interface{}{
		"total":  len(list),
		"tareas": taskList(list),
	}), nil
}

func markSynchronized(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req MarkSyncedRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return errorResponse(http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err)), nil
	}
	if len(req.TaskIDs) == 0 {
		return errorResponse(http.StatusBadRequest, "tarea_ids is required"), nil
	}

	updated, err := tasks.MarkTasksSynchronized(ctx, request.PathParameters["usuario_id"], req.TaskIDs)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error marking tasks as synchronized"), nil
	}
	return jsonResponse(http.StatusOK, map[string]interface{}{
		"mensaje":      "Tasks marked as synchronized.",
		"actualizadas": updated,
	}), nil
}

func taskList(list []models.Task) []models.Task {
	if list == nil {
		return []models.Task{}
	}
	return list
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
	logger = logging.New("tasks")
	if err := db.InitDB(); err != nil {
		fmt.Printf("Error initializing database: %v\n", err)
		os.Exit(1)
	}
	tasks = store.New(db.DB)
}

func main() {
	lambda.Start(handler)
}
