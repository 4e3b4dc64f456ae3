package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tazhibayda/quiz-auth-service/internal/account"
	"github.com/tazhibayda/quiz-auth-service/internal/domain"
	"github.com/tazhibayda/quiz-auth-service/internal/log"
	"github.com/tazhibayda/quiz-auth-service/internal/oauth"
	"github.com/tazhibayda/quiz-auth-service/internal/security"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type ResetLookup interface {
	Lookup(ctx context.Context, token string) (*domain.User, error)
}

type FederatedProvider interface {
	Begin(ctx context.Context) (string, error)
	Complete(ctx context.Context, state, code string) (*oauth.Identity, error)
}

type Handler struct {
	Accounts    *account.Service
	Resets      ResetLookup
	Tokens      TokenVerifier
	Users       UserFinder
	Health      []Pinger
	Google      FederatedProvider
	Keys        *security.SigningKey
	FrontendURL string
	Log         *zap.Logger
}

// bindJSON decodes the body into dst. An empty body leaves dst zero so the
// field checks below report what is missing.
func (h *Handler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

type signupReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResp struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *domain.User `json:"user"`
}

type userResp struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	User    *domain.User `json:"user"`
}

// Signup godoc
// @Summary Register with email and password
// @Tags user
// @Accept json
// @Produce json
// @Param payload body signupReq true "signup"
// @Success 200 {object} authResp
// @Failure 400 {object} envelope
// @Router /user/signup [post]
func (h *Handler) Signup(c *gin.Context) {
	var in signupReq
	if !h.bindJSON(c, &in) {
		return
	}
	sess, err := h.Accounts.Signup(c.Request.Context(), in.Email, in.Password, in.Username)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResp{Success: true, Message: "User created", Token: sess.Token, User: sess.User})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login godoc
// @Summary Login with email and password
// @Tags user
// @Accept json
// @Produce json
// @Param payload body loginReq true "login"
// @Success 200 {object} authResp
// @Failure 400 {object} envelope
// @Failure 401 {object} envelope
// @Failure 404 {object} envelope
// @Router /user/login [post]
func (h *Handler) Login(c *gin.Context) {
	var in loginReq
	if !h.bindJSON(c, &in) {
		return
	}
	sess, err := h.Accounts.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResp{Success: true, Message: "Login successful", Token: sess.Token, User: sess.User})
}

type forgotReq struct {
	Email string `json:"email"`
}

// ForgotPassword godoc
// @Summary Send a password reset link
// @Tags user
// @Accept json
// @Produce json
// @Param payload body forgotReq true "email"
// @Success 200 {object} envelope
// @Failure 404 {object} envelope
// @Router /user/forgot-password [post]
func (h *Handler) ForgotPassword(c *gin.Context) {
	var in forgotReq
	if !h.bindJSON(c, &in) {
		return
	}
	if err := h.Accounts.ForgotPassword(c.Request.Context(), in.Email); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Message: "Password reset link sent"})
}

// CheckResetToken godoc
// @Summary Check that a reset token is still usable
// @Tags user
// @Produce json
// @Param token path string true "reset token"
// @Success 200 {object} envelope
// @Failure 400 {object} envelope
// @Router /user/reset-password/{token} [get]
func (h *Handler) CheckResetToken(c *gin.Context) {
	if _, err := h.Resets.Lookup(c.Request.Context(), c.Param("token")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Message: "Token valid"})
}

type resetReq struct {
	Password string `json:"password"`
}

// ResetPassword godoc
// @Summary Set a new password with a reset token
// @Tags user
// @Accept json
// @Produce json
// @Param token path string true "reset token"
// @Param payload body resetReq true "new password"
// @Success 200 {object} envelope
// @Failure 400 {object} envelope
// @Router /user/reset-password/{token} [post]
func (h *Handler) ResetPassword(c *gin.Context) {
	var in resetReq
	if !h.bindJSON(c, &in) {
		return
	}
	if err := h.Accounts.ResetPassword(c.Request.Context(), c.Param("token"), in.Password); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Message: "Password reset successful"})
}

// Me godoc
// @Summary Current user
// @Tags user
// @Security BearerAuth
// @Produce json
// @Success 200 {object} userResp
// @Failure 401 {object} envelope
// @Router /user/me [get]
func (h *Handler) Me(c *gin.Context) {
	u, err := h.Accounts.Profile(c.Request.Context(), CurrentUser(c).ID.Hex())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResp{Success: true, User: u})
}

type scoreReq struct {
	Difficulty string `json:"difficulty"`
	Score      *int   `json:"score"`
	Label      string `json:"label"`
}

// UpdateScore godoc
// @Summary Submit a quiz score
// @Tags user
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body scoreReq true "score"
// @Success 200 {object} userResp
// @Failure 400 {object} envelope
// @Failure 401 {object} envelope
// @Router /user/score [post]
func (h *Handler) UpdateScore(c *gin.Context) {
	var in scoreReq
	if !h.bindJSON(c, &in) {
		return
	}
	if _, ok := domain.ParseDifficulty(in.Difficulty); !ok {
		h.respondError(c, domain.ErrInvalidDifficulty)
		return
	}
	if in.Score == nil {
		h.respondError(c, domain.Invalid("Score required"))
		return
	}
	u, err := h.Accounts.UpdateScore(c.Request.Context(), CurrentUser(c), in.Difficulty, *in.Score, in.Label)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResp{Success: true, Message: "Score updated", User: u})
}

func (h *Handler) oauthFailed(c *gin.Context, err error) {
	log.WithDD(c.Request.Context(), h.Log).Warn("google oauth failed",
		zap.String("request_id", c.GetString(requestIDKey)), zap.Error(err))
	c.Redirect(http.StatusFound, h.FrontendURL+"/registration?error=OAuthFailed")
}

// GoogleStart godoc
// @Summary Start Google login
// @Tags auth
// @Success 302
// @Router /auth/google [get]
func (h *Handler) GoogleStart(c *gin.Context) {
	if h.Google == nil {
		h.oauthFailed(c, errors.New("google login not configured"))
		return
	}
	loc, err := h.Google.Begin(c.Request.Context())
	if err != nil {
		h.oauthFailed(c, err)
		return
	}
	c.Redirect(http.StatusFound, loc)
}

// GoogleCallback godoc
// @Summary Google OAuth callback
// @Description Redirects to the frontend with the bearer token, or to the registration page on failure.
// @Tags auth
// @Param state query string true "state"
// @Param code query string true "authorization code"
// @Success 302
// @Router /auth/google/callback [get]
func (h *Handler) GoogleCallback(c *gin.Context) {
	if h.Google == nil {
		h.oauthFailed(c, errors.New("google login not configured"))
		return
	}
	if e := c.Query("error"); e != "" {
		h.oauthFailed(c, errors.New("provider: "+e))
		return
	}
	var sess *account.Session
	err := withSpan(c.Request.Context(), "oauth.google.callback", func(ctx context.Context) error {
		id, err := h.Google.Complete(ctx, c.Query("state"), c.Query("code"))
		if err != nil {
			return err
		}
		sess, _, err = h.Accounts.FederatedLogin(ctx, *id)
		return err
	})
	if err != nil {
		h.oauthFailed(c, err)
		return
	}
	c.Redirect(http.StatusFound, h.FrontendURL+"/home?token="+url.QueryEscape(sess.Token))
}

// JWKS godoc
// @Summary Public keys for RS256 tokens
// @Tags auth
// @Produce json
// @Success 200 {object} security.JWKS
// @Router /.well-known/jwks.json [get]
func (h *Handler) JWKS(c *gin.Context) {
	if h.Keys == nil {
		fail(c, http.StatusNotFound, "Not found")
		return
	}
	c.JSON(http.StatusOK, h.Keys.JWKS())
}

func (h *Handler) Healthz(c *gin.Context) {
	for _, p := range h.Health {
		if err := p.Ping(c.Request.Context()); err != nil {
			log.WithDD(c.Request.Context(), h.Log).Error("health check failed",
				zap.String("request_id", c.GetString(requestIDKey)), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
