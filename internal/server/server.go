package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/matheusmosca/ecommerce-microservices/internal/apperr"
)

// StandardResponse wraps mutating responses.
type StandardResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is the envelope of every error answer.
type ErrorResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

// NewRouter returns a gin engine with recovery, tracing, request logging,
// error rendering and a /health route.
func NewRouter(serviceName string, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.CustomRecovery(recoverPanic(logger)),
		otelgin.Middleware(serviceName),
		requestLogger(logger),
		ErrorHandler(logger),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": serviceName,
		})
	})

	return r
}

// Fail records err on the context and stops the chain; ErrorHandler renders it.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// BindError converts a gin binding failure into a BadRequest.
func BindError(c *gin.Context, err error) {
	Fail(c, apperr.BadRequest(err.Error()))
}

// ErrorHandler renders the last recorded error as the standard envelope.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		renderError(c, logger, c.Errors.Last().Err)
	}
}

// recoverPanic answers a panicking handler with the internal error envelope.
func recoverPanic(logger *zap.Logger) gin.RecoveryFunc {
	return func(c *gin.Context, recovered any) {
		renderError(c, logger, apperr.Internal("panic recovered", fmt.Errorf("%v", recovered)))
		c.Abort()
	}
}

func renderError(c *gin.Context, logger *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	status := kind.StatusCode()

	if kind == apperr.KindInternal {
		logger.Error("Unhandled error",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
		)
	}

	c.JSON(status, ErrorResponse{
		Success:    false,
		Message:    apperr.PublicMessage(err),
		StatusCode: status,
	})
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// BearerToken extracts the credential from "Authorization: Bearer <token>".
func BearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", apperr.Unauthorized("Not authenticated")
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", apperr.Unauthorized("Invalid authorization header format")
	}

	return strings.TrimSpace(token), nil
}

// Run serves handler on addr until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🚀 HTTP server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}
