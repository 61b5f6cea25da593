package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/matheusmosca/ecommerce-microservices/internal/apperr"
	"github.com/matheusmosca/ecommerce-microservices/internal/events"
)

// UserUseCase contém a lógica de negócio dos usuários
type UserUseCase struct {
	repository Repository
	tokens     *TokenManager
	emitter    events.Emitter
	logger     *zap.Logger
	now        func() time.Time
}

func NewUserUseCase(repository Repository, tokens *TokenManager, emitter events.Emitter, logger *zap.Logger) *UserUseCase {
	return &UserUseCase{
		repository: repository,
		tokens:     tokens,
		emitter:    emitter,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (uc *UserUseCase) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	existing, err := uc.repository.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("User with this email already exists")
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := NewUser(req.Name, req.Email, hash, uc.now())
	if err := uc.repository.CreateUser(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, apperr.Conflict("User with this email already exists")
		}
		return nil, err
	}

	uc.logger.Info("✅ User registered", zap.String("user_id", user.ID))
	uc.publish(ctx, EventUserRegistered, user, user.CreatedAt)

	return user, nil
}

func (uc *UserUseCase) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := uc.repository.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive || !CheckPassword(user.PasswordHash, req.Password) {
		return nil, apperr.Unauthorized("Incorrect email or password")
	}

	token, err := uc.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	uc.publish(ctx, EventUserLogin, user, uc.now())

	return &LoginResponse{
		AccessToken: token,
		TokenType:   tokenType,
		User:        user,
	}, nil
}

// GetUser returns an active user or NotFound.
func (uc *UserUseCase) GetUser(ctx context.Context, id string) (*User, error) {
	user, err := uc.repository.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, apperr.NotFound("User not found")
	}
	return user, nil
}

func (uc *UserUseCase) UpdateProfile(ctx context.Context, userID string, patch UserPatch) (*User, error) {
	user, err := uc.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if patch.Email != nil && *patch.Email != user.Email {
		other, err := uc.repository.GetUserByEmail(ctx, *patch.Email)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != user.ID {
			return nil, apperr.Conflict("Email already exists")
		}
	}

	if !patch.Apply(user) {
		return user, nil
	}
	user.UpdatedAt = uc.now()

	if err := uc.repository.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, apperr.Conflict("Email already exists")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	uc.publish(ctx, EventUserUpdated, user, user.UpdatedAt)
	return user, nil
}

func (uc *UserUseCase) ChangePassword(ctx context.Context, userID string, req PasswordChangeRequest) error {
	user, err := uc.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if !CheckPassword(user.PasswordHash, req.CurrentPassword) {
		return apperr.BadRequest("Current password is incorrect")
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = uc.now()

	if err := uc.repository.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	uc.logger.Info("Password updated", zap.String("user_id", user.ID))
	return nil
}

func (uc *UserUseCase) publish(ctx context.Context, eventType string, user *User, at time.Time) {
	event := UserEvent{
		EventType: eventType,
		UserID:    user.ID,
		Email:     user.Email,
		Timestamp: at,
	}
	if eventType != EventUserLogin {
		event.Name = user.Name
	}

	uc.emitter.Emit(ctx, events.TopicUserEvents, eventType, user.ID, event).Log(uc.logger)
}
