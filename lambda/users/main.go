package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dabisonte04/API-UStudy/internal/db"
	"github.com/dabisonte04/API-UStudy/internal/logging"
	"github.com/dabisonte04/API-UStudy/internal/models"
	"github.com/dabisonte04/API-UStudy/internal/password"
	"github.com/dabisonte04/API-UStudy/internal/store"
)

var (
	logger *zap.Logger
	users  *store.Store
)

type RegisterRequest struct {
	Name     string `json:"nombre"`
	Email    string `json:"correo"`
	Password string `json:"contrasena"`
}

type LoginRequest struct {
	Email    string `json:"correo"`
	Password string `json:"contrasena"`
}

type UpdateRequest struct {
	Name  string `json:"nombre"`
	Email string `json:"correo"`
}

type PasswordRequest struct {
	Current string `json:"contrasena_actual"`
	New     string `json:"contrasena_nueva"`
}

type DeviceRequest struct {
	DeviceID string `json:"u_id"`
}

type UserOut struct {
	ID       string `json:"id"`
	Name     string `json:"nombre"`
	Email    string `json:"correo"`
	DeviceID string `json:"u_id,omitempty"`
}

func userOut(u *models.User) UserOut {
	return UserOut{ID: u.ID, Name: u.Name, Email: u.Email, DeviceID: u.DeviceID}
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch request.HTTPMethod + " " + request.Resource {
	case "POST /usuarios/register":
		return register(ctx, request)
	case "POST /usuarios/login":
		return login(ctx, request)
	case "GET /usuarios":
		return listUsers(ctx)
	case "GET /usuarios/{user_id}":
		return getUser(ctx, request)
	case "PUT /usuarios/{user_id}":
		return updateUser(ctx, request)
	case "PATCH /usuarios/{user_id}/password":
		return updatePassword(ctx, request)
	case "POST /usuarios/{user_id}/u_id":
		return updateDevice(ctx, request)
	}
	return errorResponse(http.StatusNotFound, "Route not found"), nil
}

func register(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req RegisterRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return errorResponse(http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err)), nil
	}
	if req.Name == "" || req.Password == "" {
		return errorResponse(http.StatusBadRequest, "nombre and contrasena are required"), nil
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return errorResponse(http.StatusBadRequest, "correo is not a valid email address"), nil
	}

	existing, err := users.UserByEmail(ctx, req.Email)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error checking email"), nil
	}
	if existing != nil {
		return errorResponse(http.StatusBadRequest, "Email already registered"), nil
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error processing password"), nil
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := users.CreateUser(ctx, user); err != nil {
		logger.Error("register failed", zap.Error(err))
		return errorResponse(http.StatusInternalServerError, "Error creating user"), nil
	}

	logger.Info("user registered", zap.String("user_id", user.ID))
	return jsonResponse(http.StatusOK, userOut(user)), nil
}

func login(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req LoginRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return errorResponse(http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err)), nil
	}

	user, err := users.UserByEmail(ctx, req.Email)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error fetching user"), nil
	}
	if user == nil || !password.Verify(req.Password, user.PasswordHash) {
		return errorResponse(http.StatusUnauthorized, "Invalid credentials"), nil
	}

	return jsonResponse(http.StatusOK, map[string]interface{}{"usuario": userOut(user)}), nil
}

func getUser(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	user, err := users.UserByID(ctx, request.PathParameters["user_id"])
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error fetching user"), nil
	}
	if user == nil {
		return errorResponse(http.StatusNotFound, "User not found"), nil
	}
	return jsonResponse(http.StatusOK, userOut(user)), nil
}

func listUsers(ctx context.Context) (events.APIGatewayProxyResponse, error) {
	all, err := users.ListUsers(ctx)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error listing users"), nil
	}
	out := make([]UserOut, 0, len(all))
	for i := range all {
		out = append(out, userOut(&all[i]))
	}
	return jsonResponse(http.StatusOK, out), nil
}

func updateUser(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req UpdateRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return errorResponse(http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err)), nil
	}

	user, err := users.UserByID(ctx, request.PathParameters["user_id"])
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error fetching user"), nil
	}
	if user == nil {
		return errorResponse(http.StatusNotFound, "User not found"), nil
	}

	if req.Email != "" && req.Email != user.Email {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return errorResponse(http.StatusBadRequest, "correo is not a valid email address"), nil
		}
		taken, err := users.UserByEmail(ctx, req.Email)
		if err != nil {
			return errorResponse(http.StatusInternalServerError, "Error checking email"), nil
		}
		if taken != nil {
			return errorResponse(http.StatusBadRequest, "That email is already in use"), nil
		}
		user.Email = req.Email
	}
	if req.Name != "" {
		user.Name = req.Name
	}

	if err := users.UpdateUserProfile(ctx, user.ID, user.Name, user.Email); err != nil {
		return errorResponse(http.StatusInternalServerError, "Error updating user"), nil
	}
	return jsonResponse(http.StatusOK, userOut(user)), nil
}

func updatePassword(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req PasswordRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return errorResponse(http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err)), nil
	}

	user, err := users.UserByID(ctx, request.PathParameters["user_id"])
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error fetching user"), nil
	}
	if user == nil {
		return errorResponse(http.StatusNotFound, "User not found"), nil
	}
	if !password.Verify(req.Current, user.PasswordHash) {
		return errorResponse(http.StatusBadRequest, "Current password is incorrect"), nil
	}

	hash, err := password.Hash(req.New)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error processing password"), nil
	}
	if err := users.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		return errorResponse(http.StatusInternalServerError, "Error updating password"), nil
	}
	return jsonResponse(http.StatusOK, map[string]string{"mensaje": "Password updated successfully."}), nil
}

func updateDevice(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req DeviceRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return errorResponse(http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err)), nil
	}
	if req.DeviceID == "" {
		return errorResponse(http.StatusBadRequest, "u_id is required"), nil
	}

	user, err := users.UserByID(ctx, request.PathParameters["user_id"])
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Error fetching user"), nil
	}
	if user == nil {
		return errorResponse(http.StatusNotFound, "User not found"), nil
	}

	if err := users.UpdateUserDevice(ctx, user.ID, req.DeviceID); err != nil {
		return errorResponse(http.StatusInternalServerError, "Error updating device id"), nil
	}
	user.DeviceID = req.DeviceID
	return jsonResponse(http.StatusOK, map[string]interface{}{"usuario": userOut(user)}), nil
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
	logger = logging.New("users")
	if err := db.InitDB(); err != nil {
		fmt.Printf("Error initializing database: %v\n", err)
		os.Exit(1)
	}
	users = store.New(db.DB)
}

func main() {
	lambda.Start(handler)
}
