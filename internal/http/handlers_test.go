package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/quiz-auth-service/internal/domain"
	"github.com/tazhibayda/quiz-auth-service/internal/notify"
)

func Test_Signup_Login_Me(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/user/signup", `{"email":"A@x.com","password":"pw123456"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	r := decode(t, w)
	assert.True(t, r.Success)
	assert.Equal(t, "User created", r.Message)
	require.NotEmpty(t, r.Token)
	assert.Equal(t, "a@x.com", r.User["email"])
	assert.NotContains(t, r.User, "passwordHash")
	assert.NotContains(t, w.Body.String(), "password_hash")
	assert.NotContains(t, r.User, "_id")
	id, _ := r.User["id"].(string)
	assert.True(t, primitive.IsValidObjectID(id), "id should be a hex string, got %v", r.User["id"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = env.do("POST", "/user/login", `{"email":"a@x.com","password":"pw123456"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	r = decode(t, w)
	assert.Equal(t, "Login successful", r.Message)
	claims, ok := env.Tokens.Verify(r.Token)
	require.True(t, ok)
	assert.Equal(t, id, claims.Subject)

	w = env.do("GET", "/user/me", "", r.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "a@x.com", decode(t, w).User["email"])
}

func Test_ErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.do("POST", "/user/signup", `{"email":"a@x.com","password":"pw123456"}`, "").Code)
	require.Equal(t, http.StatusFound, env.do("GET", "/auth/google/callback?state=s1&code=c", "", "").Code)

	cases := []struct {
		name, path, body string
		code             int
		msg              string
	}{
		{"missing fields", "/user/signup", `{"email":"b@x.com"}`, http.StatusBadRequest, "Email and password required"},
		{"empty body", "/user/login", ``, http.StatusBadRequest, "Email and password required"},
		{"bad json", "/user/login", `{"email":`, http.StatusBadRequest, "Invalid JSON body"},
		{"duplicate", "/user/signup", `{"email":" A@X.com","password":"x"}`, http.StatusBadRequest, "Email already registered"},
		{"unknown user", "/user/login", `{"email":"nobody@x.com","password":"x"}`, http.StatusNotFound, "User not found"},
		{"google only", "/user/login", `{"email":"g@x.com","password":"x"}`, http.StatusBadRequest, "Google login only"},
		{"wrong password", "/user/login", `{"email":"a@x.com","password":"nope"}`, http.StatusUnauthorized, "Invalid credentials"},
		{"forgot unknown", "/user/forgot-password", `{"email":"nobody@x.com"}`, http.StatusNotFound, "User not found"},
		{"reset bad token", "/user/reset-password/deadbeef", `{"password":"x"}`, http.StatusBadRequest, "Invalid or expired token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do("POST", tc.path, tc.body, "")
			assert.Equal(t, tc.code, w.Code, w.Body.String())
			r := decode(t, w)
			assert.False(t, r.Success)
			assert.Equal(t, tc.msg, r.Message)
		})
	}
}

func Test_AuthGate(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/user/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "No token provided", decode(t, w).Message)

	w = env.do("GET", "/user/me", "", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid token", decode(t, w).Message)

	orphan, err := env.Tokens.Issue(primitive.NewObjectID().Hex(), "ghost@x.com")
	require.NoError(t, err)
	w = env.do("GET", "/user/me", "", orphan)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", decode(t, w).Message)
}

type brokenFinder struct{}

func (brokenFinder) FindUserByID(context.Context, string) (*domain.User, error) {
	return nil, errors.New("connection reset by peer")
}

func Test_AuthGate_StoreFailureIsOpaque(t *testing.T) {
	env := newTestEnv(t)
	env.Handler.Users = brokenFinder{}
	tok, err := env.Tokens.Issue(primitive.NewObjectID().Hex(), "a@x.com")
	require.NoError(t, err)

	w := env.do("GET", "/user/me", "", tok)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server error", decode(t, w).Message)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func Test_Score(t *testing.T) {
	env := newTestEnv(t)
	tok := decode(t, env.do("POST", "/user/signup", `{"email":"a@x.com","password":"pw123456"}`, "")).Token

	w := env.do("POST", "/user/score", `{"difficulty":"easy","score":50}`, tok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Score updated", decode(t, w).Message)

	w = env.do("POST", "/user/score", `{"difficulty":"easy","score":30,"label":"second"}`, tok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	u := decode(t, w).User
	assert.EqualValues(t, 50, u["scores"].(map[string]any)["easy"])
	hist := u["history"].([]any)
	require.Len(t, hist, 2)
	assert.EqualValues(t, 50, hist[0].(map[string]any)["value"])
	assert.Equal(t, "easy", hist[0].(map[string]any)["label"])
	assert.EqualValues(t, 30, hist[1].(map[string]any)["value"])

	w = env.do("POST", "/user/score", `{"difficulty":"extreme","score":1}`, tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid difficulty", decode(t, w).Message)

	w = env.do("POST", "/user/score", `{"difficulty":"hard"}`, tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusUnauthorized, env.do("POST", "/user/score", `{"difficulty":"easy","score":1}`, "").Code)
}

func Test_ForgotAndResetPassword(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.do("POST", "/user/signup", `{"email":"a@x.com","password":"pw123456"}`, "").Code)

	w := env.do("POST", "/user/forgot-password", `{"email":"a@x.com"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Password reset link sent", decode(t, w).Message)
	assert.NotContains(t, w.Body.String(), "reset/")

	stored, err := env.Store.FindUserByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	tok := stored.ResetToken
	require.Len(t, tok, 64)

	env.Mail.mu.Lock()
	last := env.Mail.msgs[len(env.Mail.msgs)-1]
	env.Mail.mu.Unlock()
	assert.Equal(t, notify.KindPasswordReset, last.Kind)
	assert.Contains(t, last.HTML, "https://quiz.example/reset/"+tok)
	assert.NotEmpty(t, last.RequestID)

	assert.Equal(t, http.StatusOK, env.do("GET", "/user/reset-password/"+tok, "", "").Code)

	w = env.do("POST", "/user/reset-password/"+tok, `{"password":"newpw"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, http.StatusBadRequest, env.do("GET", "/user/reset-password/"+tok, "", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do("POST", "/user/reset-password/"+tok, `{"password":"again"}`, "").Code)
	assert.Equal(t, http.StatusUnauthorized, env.do("POST", "/user/login", `{"email":"a@x.com","password":"pw123456"}`, "").Code)
	assert.Equal(t, http.StatusOK, env.do("POST", "/user/login", `{"email":"a@x.com","password":"newpw"}`, "").Code)
}

func Test_LongPassword(t *testing.T) {
	env := newTestEnv(t)
	long := strings.Repeat("a", 80)

	w := env.do("POST", "/user/signup", `{"email":"long@x.com","password":"`+long+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = env.do("POST", "/user/login", `{"email":"long@x.com","password":"`+long+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Equal(t, http.StatusOK, env.do("POST", "/user/forgot-password", `{"email":"long@x.com"}`, "").Code)
	stored, err := env.Store.FindUserByEmail(context.Background(), "long@x.com")
	require.NoError(t, err)
	longer := strings.Repeat("b", 100)
	w = env.do("POST", "/user/reset-password/"+stored.ResetToken, `{"password":"`+longer+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusOK, env.do("POST", "/user/login", `{"email":"long@x.com","password":"`+longer+`"}`, "").Code)
}

func Test_GoogleFlow(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/auth/google", "", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "https://accounts.example/consent"))

	w = env.do("GET", "/auth/google/callback?state=s1&code=abc", "", "")
	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/home", loc.Path)
	tok := loc.Query().Get("token")
	claims, ok := env.Tokens.Verify(tok)
	require.True(t, ok)
	assert.Equal(t, "g@x.com", claims.Email)

	for _, q := range []string{"?state=forged&code=abc", "?error=access_denied"} {
		w = env.do("GET", "/auth/google/callback"+q, "", "")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://quiz.example/registration?error=OAuthFailed", w.Header().Get("Location"))
	}

	env.Google.err = errors.New("exchange: 500")
	w = env.do("GET", "/auth/google/callback?state=s1&code=abc", "", "")
	assert.Equal(t, "https://quiz.example/registration?error=OAuthFailed", w.Header().Get("Location"))
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error {
	return errors.New("server selection error: mongo-0.internal:27017")
}

func Test_Healthz_Degraded(t *testing.T) {
	env := newTestEnv(t)
	env.Handler.Health = append(env.Handler.Health, downPinger{})

	w := env.do("GET", "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"degraded"}`, w.Body.String())
}

func Test_Healthz_And_JWKS(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusOK, env.do("GET", "/healthz", "", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do("GET", "/.well-known/jwks.json", "", "").Code)
	assert.Equal(t, http.StatusOK, env.do("GET", "/metrics", "", "").Code)
}
