package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tazhibayda/quiz-auth-service/internal/account"
	api "github.com/tazhibayda/quiz-auth-service/internal/http"
	"github.com/tazhibayda/quiz-auth-service/internal/notify"
	"github.com/tazhibayda/quiz-auth-service/internal/oauth"
	"github.com/tazhibayda/quiz-auth-service/internal/repo"
	"github.com/tazhibayda/quiz-auth-service/internal/reset"
	"github.com/tazhibayda/quiz-auth-service/internal/security"
)

type outbox struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (o *outbox) Dispatch(m notify.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, m)
}

func (o *outbox) Close() {}

type fakeGoogle struct {
	id  *oauth.Identity
	err error
}

func (f *fakeGoogle) Begin(context.Context) (string, error) {
	return "https://accounts.example/consent?state=s1", nil
}

func (f *fakeGoogle) Complete(_ context.Context, state, code string) (*oauth.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	if state != "s1" || code == "" {
		return nil, oauth.ErrBadState
	}
	return f.id, nil
}

type testEnv struct {
	T       *testing.T
	Store   *repo.MemoryStore
	Tokens  *security.TokenService
	Handler *api.Handler
	Router  *gin.Engine
	Mail    *outbox
	Google  *fakeGoogle
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repo.NewMemoryStore()
	tokens := security.NewHS256("test-secret", time.Hour)
	resets := reset.NewManager(store, reset.DefaultTTL)
	mail := &outbox{}
	google := &fakeGoogle{id: &oauth.Identity{ProviderID: "g-1", Email: "g@x.com", DisplayName: "Gee"}}

	h := &api.Handler{
		Accounts: account.NewService(account.Deps{
			Store:       store,
			Tokens:      tokens,
			Resets:      resets,
			Hasher:      security.NewHasher(bcrypt.MinCost),
			Mail:        mail,
			FrontendURL: "https://quiz.example",
		}),
		Resets:      resets,
		Tokens:      tokens,
		Users:       store,
		Health:      []api.Pinger{store},
		Google:      google,
		FrontendURL: "https://quiz.example",
	}
	r := api.NewRouter(h, api.RouterOptions{CORSOrigins: []string{"https://quiz.example"}})
	return &testEnv{T: t, Store: store, Tokens: tokens, Handler: h, Router: r, Mail: mail, Google: google}
}

func (e *testEnv) do(method, path, body, token string) *httptest.ResponseRecorder {
	e.T.Helper()
	var req = httptest.NewRequest(method, path, nil)
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

type apiResp struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Token   string         `json:"token"`
	User    map[string]any `json:"user"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) apiResp {
	t.Helper()
	var r apiResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r), "body=%s", w.Body.String())
	return r
}
