package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/alarmdesk/console/internal/auth"
	"github.com/alarmdesk/console/internal/metrics"
	"github.com/alarmdesk/console/pkg/model"
)

// LoginService defines the auth operations needed by the handler.
type LoginService interface {
	Login(ctx context.Context, username, password string) (*auth.Token, error)
	Introspect(tokenString string) (*auth.Claims, error)
}

// AuditSink publishes login audit events.
// nil is allowed — auditing is then skipped.
type AuditSink interface {
	PublishLoginEvent(ctx context.Context, ev model.LoginEvent) error
}

// AuthHandler handles HTTP requests for console authentication.
type AuthHandler struct {
	logger  *zap.Logger
	service LoginService
	audit   AuditSink
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(logger *zap.Logger, service LoginService, audit AuditSink) *AuthHandler {
	return &AuthHandler{
		logger:  logger,
		service: service,
		audit:   audit,
	}
}

// LoginHandler handles POST /auth/login.
// The 401 body is identical for wrong passwords, unknown users, and locked
// accounts; only metrics and audit events tell them apart.
func (h *AuthHandler) LoginHandler(c *fiber.Ctx) error {
	start := time.Now()

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	token, err := h.service.Login(c.Context(), req.Username, req.Password)
	if err != nil {
		outcome := "error"
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			outcome = "invalid_credentials"
		case errors.Is(err, auth.ErrLocked):
			outcome = "locked"
		}
		metrics.IncLoginAttempt(outcome)
		metrics.ObserveDuration(metrics.LoginDuration, start, outcome)

		if outcome == "error" {
			h.logger.Error("auth.login.failed",
				zap.String("user", req.Username),
				zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "login failed"})
		}

		if outcome == "locked" {
			h.emitAudit(c, req.Username, "locked", "")
		} else {
			h.emitAudit(c, req.Username, "failed", outcome)
		}
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "invalid credentials"})
	}

	metrics.IncLoginAttempt("succeeded")
	metrics.ObserveDuration(metrics.LoginDuration, start, "succeeded")
	h.emitAudit(c, req.Username, "succeeded", "")

	return c.Status(fiber.StatusOK).JSON(TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
	})
}

// MeHandler handles GET /auth/me — bearer token introspection.
func (h *AuthHandler) MeHandler(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		metrics.IncIntrospection("invalid")
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "missing bearer token"})
	}

	claims, err := h.service.Introspect(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		metrics.IncIntrospection("invalid")
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "invalid token"})
	}

	metrics.IncIntrospection("ok")
	return c.Status(fiber.StatusOK).JSON(IntrospectResponse{
		Username:  claims.Username,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Unix(),
	})
}

func (h *AuthHandler) emitAudit(c *fiber.Ctx, username, outcome, reason string) {
	if h.audit == nil {
		return
	}
	ev := model.LoginEvent{
		Username:  username,
		Outcome:   outcome,
		Reason:    reason,
		RemoteIP:  c.IP(),
		Timestamp: time.Now().UTC(),
	}
	if err := h.audit.PublishLoginEvent(c.Context(), ev); err != nil {
		h.logger.Warn("auth.audit_publish_failed",
			zap.String("user", username),
			zap.Error(err))
	}
}
