package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tazhibayda/quiz-auth-service/internal/domain"
	"github.com/tazhibayda/quiz-auth-service/internal/helper"
	"github.com/tazhibayda/quiz-auth-service/internal/log"
	"github.com/tazhibayda/quiz-auth-service/internal/metrics"
	"github.com/tazhibayda/quiz-auth-service/internal/security"
)

const (
	requestIDKey   = "X-Request-ID"
	currentUserKey = "currentUser"
)

type TokenVerifier interface {
	Verify(token string) (*security.Claims, bool)
}

type UserFinder interface {
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
}

// RequestID propagates the caller's X-Request-ID or mints one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDKey)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDKey, id)
		c.Request = c.Request.WithContext(helper.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.InFlight.Inc()
		start := time.Now()
		c.Next()
		metrics.InFlight.Dec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.ReqDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

func AccessLog(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithDD(c.Request.Context(), l).Info("http",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", c.GetString(requestIDKey)),
		)
	}
}

// AuthJWT resolves the bearer token to a stored user on every request and
// attaches it to the gin and request contexts.
func (h *Handler) AuthJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		hdr := c.GetHeader("Authorization")
		if !strings.HasPrefix(hdr, "Bearer ") {
			fail(c, http.StatusUnauthorized, "No token provided")
			return
		}
		raw := strings.TrimSpace(strings.TrimPrefix(hdr, "Bearer "))
		if raw == "" {
			fail(c, http.StatusUnauthorized, "No token provided")
			return
		}
		claims, ok := h.Tokens.Verify(raw)
		if !ok {
			fail(c, http.StatusUnauthorized, "Invalid token")
			return
		}
		u, err := h.Users.FindUserByID(c.Request.Context(), claims.Subject)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if u == nil {
			fail(c, http.StatusNotFound, "User not found")
			return
		}
		c.Set(currentUserKey, u)
		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), u))
		c.Next()
	}
}

type userCtxKey struct{}

func WithUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFrom returns the user attached by AuthJWT, if any.
func UserFrom(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(*domain.User)
	return u, ok && u != nil
}

func CurrentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(currentUserKey); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	u, _ := UserFrom(c.Request.Context())
	return u
}
