package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/matheusmosca/ecommerce-microservices/internal/server"
)

type UserUseCaseInterface interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	GetUser(ctx context.Context, id string) (*User, error)
	UpdateProfile(ctx context.Context, userID string, patch UserPatch) (*User, error)
	ChangePassword(ctx context.Context, userID string, req PasswordChangeRequest) error
}

type UserHandler struct {
	useCase UserUseCaseInterface
	tokens  *TokenManager
	tracer  trace.Tracer
}

func NewUserHandler(useCase UserUseCaseInterface, tokens *TokenManager, tracer trace.Tracer) *UserHandler {
	return &UserHandler{
		useCase: useCase,
		tokens:  tokens,
		tracer:  tracer,
	}
}

func (h *UserHandler) Register(r gin.IRouter) {
	users := r.Group("/api/v1/users")
	users.POST("/register", h.RegisterUser)
	users.POST("/login", h.Login)

	authed := users.Group("", AuthRequired(h.tokens))
	authed.GET("/profile", h.Profile)
	authed.PUT("/profile", h.UpdateProfile)
	authed.PATCH("/profile/password", h.ChangePassword)
	authed.GET("/profile/:id", h.GetUser)
}

func (h *UserHandler) RegisterUser(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.register_user")
	defer span.End()

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.BindError(c, err)
		return
	}

	user, err := h.useCase.Register(ctx, req)
	if err != nil {
		span.RecordError(err)
		server.Fail(c, err)
		return
	}

	span.SetAttributes(attribute.String("user_id", user.ID))
	c.JSON(http.StatusCreated, server.StandardResponse{
		Success: true,
		Message: "User registered successfully",
		Data:    user,
	})
}

func (h *UserHandler) Login(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.login")
	defer span.End()

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.BindError(c, err)
		return
	}

	resp, err := h.useCase.Login(ctx, req)
	if err != nil {
		span.RecordError(err)
		c.Header("WWW-Authenticate", "Bearer")
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) Profile(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.get_profile")
	defer span.End()

	user, err := h.useCase.GetUser(ctx, c.GetString(ctxUserID))
	if err != nil {
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.get_user")
	defer span.End()

	user, err := h.useCase.GetUser(ctx, c.Param("id"))
	if err != nil {
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.update_profile")
	defer span.End()

	var patch UserPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		server.BindError(c, err)
		return
	}

	user, err := h.useCase.UpdateProfile(ctx, c.GetString(ctxUserID), patch)
	if err != nil {
		span.RecordError(err)
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, server.StandardResponse{
		Success: true,
		Message: "Profile updated successfully",
		Data:    user,
	})
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.change_password")
	defer span.End()

	var req PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.BindError(c, err)
		return
	}

	if err := h.useCase.ChangePassword(ctx, c.GetString(ctxUserID), req); err != nil {
		span.RecordError(err)
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, server.StandardResponse{
		Success: true,
		Message: "Password updated successfully",
	})
}
