package main

import (
	"time"

	"github.com/google/uuid"
)

// User is an account. Inactive users behave as absent.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewUser(name, email, passwordHash string, now time.Time) *User {
	return &User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserPatch carries the profile fields to change. Nil means untouched.
type UserPatch struct {
	Name  *string `json:"name" binding:"omitempty,min=2,max=100"`
	Email *string `json:"email" binding:"omitempty,email"`
}

// Apply copies the set fields onto u and reports whether anything changed.
func (p UserPatch) Apply(u *User) bool {
	changed := false
	if p.Name != nil && *p.Name != u.Name {
		u.Name = *p.Name
		changed = true
	}
	if p.Email != nil && *p.Email != u.Email {
		u.Email = *p.Email
		changed = true
	}
	return changed
}

type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=128"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        *User  `json:"user"`
}

const (
	EventUserRegistered = "user.registered"
	EventUserLogin      = "user.login"
	EventUserUpdated    = "user.updated"
)

// UserEvent is the payload of every user-events message.
type UserEvent struct {
	EventType string    `json:"event_type"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
