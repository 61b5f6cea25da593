package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/matheusmosca/ecommerce-microservices/internal/apperr"
	"github.com/matheusmosca/ecommerce-microservices/internal/server"
)

type MockUserUseCase struct {
	mock.Mock
}

func (m *MockUserUseCase) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	args := m.Called(ctx, req)
	user, _ := args.Get(0).(*User)
	return user, args.Error(1)
}

func (m *MockUserUseCase) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*LoginResponse)
	return resp, args.Error(1)
}

func (m *MockUserUseCase) GetUser(ctx context.Context, id string) (*User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*User)
	return user, args.Error(1)
}

func (m *MockUserUseCase) UpdateProfile(ctx context.Context, userID string, patch UserPatch) (*User, error) {
	args := m.Called(ctx, userID, patch)
	user, _ := args.Get(0).(*User)
	return user, args.Error(1)
}

func (m *MockUserUseCase) ChangePassword(ctx context.Context, userID string, req PasswordChangeRequest) error {
	return m.Called(ctx, userID, req).Error(0)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(uc UserUseCaseInterface, tokens *TokenManager) *gin.Engine {
	r := server.NewRouter(serviceName, zap.NewNop())
	NewUserHandler(uc, tokens, noop.NewTracerProvider().Tracer("")).Register(r)
	return r
}

func doRequest(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterHandler(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		// Arrange
		uc := new(MockUserUseCase)
		user := NewUser("Jane Doe", "jane@example.com", "hash", fixedNow)
		req := RegisterRequest{Name: "Jane Doe", Email: "jane@example.com", Password: "s3cretpass"}
		uc.On("Register", mock.Anything, req).Return(user, nil)

		// Act
		w := doRequest(newTestRouter(uc, NewTokenManager("secret", time.Hour)), http.MethodPost, "/api/v1/users/register", "", req)

		// Assert
		assert.Equal(t, http.StatusCreated, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "User registered successfully", body["message"])
		data := body["data"].(map[string]any)
		assert.Equal(t, user.ID, data["id"])
		assert.NotContains(t, data, "password_hash")
	})

	t.Run("invalid payload", func(t *testing.T) {
		uc := new(MockUserUseCase)
		req := RegisterRequest{Name: "J", Email: "not-an-email", Password: "short"}

		w := doRequest(newTestRouter(uc, NewTokenManager("secret", time.Hour)), http.MethodPost, "/api/v1/users/register", "", req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		uc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	})

	t.Run("duplicate email", func(t *testing.T) {
		uc := new(MockUserUseCase)
		req := RegisterRequest{Name: "Jane Doe", Email: "jane@example.com", Password: "s3cretpass"}
		uc.On("Register", mock.Anything, req).Return(nil, apperr.Conflict("User with this email already exists"))

		w := doRequest(newTestRouter(uc, NewTokenManager("secret", time.Hour)), http.MethodPost, "/api/v1/users/register", "", req)

		assert.Equal(t, http.StatusConflict, w.Code)
		var body server.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "User with this email already exists", body.Message)
	})
}

func TestLoginHandler_Unauthorized(t *testing.T) {
	uc := new(MockUserUseCase)
	req := LoginRequest{Email: "jane@example.com", Password: "wrong"}
	uc.On("Login", mock.Anything, req).Return(nil, apperr.Unauthorized("Incorrect email or password"))

	w := doRequest(newTestRouter(uc, NewTokenManager("secret", time.Hour)), http.MethodPost, "/api/v1/users/login", "", req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}

func TestProfileHandler(t *testing.T) {
	tokens := NewTokenManager("secret", time.Hour)
	user := NewUser("Jane Doe", "jane@example.com", "hash", fixedNow)
	token, err := tokens.Issue(user)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"valid token", token, http.StatusOK},
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "not.a.jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := new(MockUserUseCase)
			uc.On("GetUser", mock.Anything, user.ID).Return(user, nil).Maybe()

			w := doRequest(newTestRouter(uc, tokens), http.MethodGet, "/api/v1/users/profile", tt.token, nil)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				var body map[string]any
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, "jane@example.com", body["email"])
			}
		})
	}
}

func TestChangePasswordHandler_UsesTokenSubject(t *testing.T) {
	// Arrange
	tokens := NewTokenManager("secret", time.Hour)
	user := NewUser("Jane Doe", "jane@example.com", "hash", fixedNow)
	token, err := tokens.Issue(user)
	require.NoError(t, err)
	req := PasswordChangeRequest{CurrentPassword: "old-password", NewPassword: "new-password"}
	uc := new(MockUserUseCase)
	uc.On("ChangePassword", mock.Anything, user.ID, req).Return(nil)

	// Act
	w := doRequest(newTestRouter(uc, tokens), http.MethodPatch, "/api/v1/users/profile/password", token, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	var body server.StandardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Password updated successfully", body.Message)
	uc.AssertExpectations(t)
}
