package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matheusmosca/ecommerce-microservices/internal/apperr"
	"github.com/matheusmosca/ecommerce-microservices/internal/events"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockRepository) CreateUser(ctx context.Context, user *User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockRepository) GetUserByID(ctx context.Context, id string) (*User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*User)
	return user, args.Error(1)
}

func (m *MockRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*User)
	return user, args.Error(1)
}

func (m *MockRepository) UpdateUser(ctx context.Context, user *User) error {
	return m.Called(ctx, user).Error(0)
}

type recordingEmitter struct {
	types    []string
	payloads []UserEvent
}

func (r *recordingEmitter) Emit(_ context.Context, topic, eventType, key string, payload any) events.Result {
	r.types = append(r.types, eventType)
	r.payloads = append(r.payloads, payload.(UserEvent))
	return events.Result{Topic: topic, EventType: eventType, Key: key, Status: events.StatusSkipped}
}

var fixedNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newUseCase(repo *MockRepository) (*UserUseCase, *recordingEmitter) {
	emitter := &recordingEmitter{}
	tokens := NewTokenManager("test-secret", 30*time.Minute)
	uc := NewUserUseCase(repo, tokens, emitter, zap.NewNop())
	uc.now = func() time.Time { return fixedNow }
	return uc, emitter
}

func storedUser(t *testing.T, password string) *User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	return NewUser("Jane Doe", "jane@example.com", hash, fixedNow.Add(-time.Hour))
}

func TestRegister_Success(t *testing.T) {
	// Arrange
	repo := new(MockRepository)
	uc, emitter := newUseCase(repo)
	repo.On("GetUserByEmail", mock.Anything, "jane@example.com").Return(nil, nil)
	repo.On("CreateUser", mock.Anything, mock.AnythingOfType("*main.User")).Return(nil)

	// Act
	user, err := uc.Register(context.Background(), RegisterRequest{
		Name: "Jane Doe", Email: "jane@example.com", Password: "s3cretpass",
	})

	// Assert
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "s3cretpass", user.PasswordHash)
	assert.True(t, CheckPassword(user.PasswordHash, "s3cretpass"))
	assert.Equal(t, []string{EventUserRegistered}, emitter.types)
	assert.Equal(t, "Jane Doe", emitter.payloads[0].Name)
	repo.AssertExpectations(t)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	tests := []struct {
		name  string
		setup func(repo *MockRepository, existing *User)
	}{
		{"found before insert", func(repo *MockRepository, existing *User) {
			repo.On("GetUserByEmail", mock.Anything, "jane@example.com").Return(existing, nil)
		}},
		{"rejected by unique index", func(repo *MockRepository, _ *User) {
			repo.On("GetUserByEmail", mock.Anything, "jane@example.com").Return(nil, nil)
			repo.On("CreateUser", mock.Anything, mock.Anything).Return(ErrDuplicateEmail)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			uc, emitter := newUseCase(repo)
			tt.setup(repo, storedUser(t, "whatever1"))

			_, err := uc.Register(context.Background(), RegisterRequest{
				Name: "Jane", Email: "jane@example.com", Password: "s3cretpass",
			})

			assert.True(t, apperr.Is(err, apperr.KindConflict))
			assert.Equal(t, "User with this email already exists", apperr.PublicMessage(err))
			assert.Empty(t, emitter.types)
		})
	}
}

func TestLogin(t *testing.T) {
	active := storedUser(t, "correct-horse")
	inactive := storedUser(t, "correct-horse")
	inactive.IsActive = false

	tests := []struct {
		name     string
		user     *User
		password string
		wantErr  bool
	}{
		{"valid credentials", active, "correct-horse", false},
		{"wrong password", active, "battery-staple", true},
		{"unknown email", nil, "correct-horse", true},
		{"inactive user", inactive, "correct-horse", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			uc, emitter := newUseCase(repo)
			repo.On("GetUserByEmail", mock.Anything, "jane@example.com").Return(tt.user, nil)

			resp, err := uc.Login(context.Background(), LoginRequest{Email: "jane@example.com", Password: tt.password})

			if tt.wantErr {
				assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
				assert.Equal(t, "Incorrect email or password", apperr.PublicMessage(err))
				assert.Empty(t, emitter.types)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "bearer", resp.TokenType)
			assert.Equal(t, tt.user.ID, resp.User.ID)
			assert.Equal(t, []string{EventUserLogin}, emitter.types)

			claims, err := uc.tokens.Parse(resp.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, tt.user.ID, claims.Subject)
			assert.Equal(t, "jane@example.com", claims.Email)
		})
	}
}

func TestGetUser_InactiveIsNotFound(t *testing.T) {
	repo := new(MockRepository)
	uc, _ := newUseCase(repo)
	user := storedUser(t, "whatever1")
	user.IsActive = false
	repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)

	_, err := uc.GetUser(context.Background(), user.ID)

	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, "User not found", apperr.PublicMessage(err))
}

func TestUpdateProfile(t *testing.T) {
	t.Run("changes name and email", func(t *testing.T) {
		// Arrange
		repo := new(MockRepository)
		uc, emitter := newUseCase(repo)
		user := storedUser(t, "whatever1")
		newName, newEmail := "Jane Smith", "jane.smith@example.com"
		repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
		repo.On("GetUserByEmail", mock.Anything, newEmail).Return(nil, nil)
		repo.On("UpdateUser", mock.Anything, user).Return(nil)

		// Act
		updated, err := uc.UpdateProfile(context.Background(), user.ID, UserPatch{Name: &newName, Email: &newEmail})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, newName, updated.Name)
		assert.Equal(t, newEmail, updated.Email)
		assert.True(t, fixedNow.Equal(updated.UpdatedAt))
		assert.Equal(t, []string{EventUserUpdated}, emitter.types)
	})

	t.Run("email taken by another user", func(t *testing.T) {
		repo := new(MockRepository)
		uc, _ := newUseCase(repo)
		user := storedUser(t, "whatever1")
		other := NewUser("John", "john@example.com", "hash", fixedNow)
		email := "john@example.com"
		repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
		repo.On("GetUserByEmail", mock.Anything, email).Return(other, nil)

		_, err := uc.UpdateProfile(context.Background(), user.ID, UserPatch{Email: &email})

		assert.True(t, apperr.Is(err, apperr.KindConflict))
		assert.Equal(t, "Email already exists", apperr.PublicMessage(err))
		repo.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything)
	})

	t.Run("empty patch is a no-op", func(t *testing.T) {
		repo := new(MockRepository)
		uc, emitter := newUseCase(repo)
		user := storedUser(t, "whatever1")
		repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)

		updated, err := uc.UpdateProfile(context.Background(), user.ID, UserPatch{})

		require.NoError(t, err)
		assert.Equal(t, user, updated)
		assert.Empty(t, emitter.types)
		repo.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything)
	})
}

func TestChangePassword(t *testing.T) {
	t.Run("wrong current password", func(t *testing.T) {
		repo := new(MockRepository)
		uc, _ := newUseCase(repo)
		user := storedUser(t, "old-password")
		repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)

		err := uc.ChangePassword(context.Background(), user.ID, PasswordChangeRequest{
			CurrentPassword: "not-it", NewPassword: "new-password",
		})

		assert.True(t, apperr.Is(err, apperr.KindBadRequest))
		assert.Equal(t, "Current password is incorrect", apperr.PublicMessage(err))
	})

	t.Run("stores the new hash", func(t *testing.T) {
		repo := new(MockRepository)
		uc, _ := newUseCase(repo)
		user := storedUser(t, "old-password")
		repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
		repo.On("UpdateUser", mock.Anything, user).Return(nil)

		err := uc.ChangePassword(context.Background(), user.ID, PasswordChangeRequest{
			CurrentPassword: "old-password", NewPassword: "new-password",
		})

		require.NoError(t, err)
		assert.True(t, CheckPassword(user.PasswordHash, "new-password"))
		assert.False(t, CheckPassword(user.PasswordHash, "old-password"))
	})

	t.Run("store failure is internal", func(t *testing.T) {
		repo := new(MockRepository)
		uc, _ := newUseCase(repo)
		user := storedUser(t, "old-password")
		repo.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)
		repo.On("UpdateUser", mock.Anything, user).Return(errors.New("connection reset"))

		err := uc.ChangePassword(context.Background(), user.ID, PasswordChangeRequest{
			CurrentPassword: "old-password", NewPassword: "new-password",
		})

		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	})
}
