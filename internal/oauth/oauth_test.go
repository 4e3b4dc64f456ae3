package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func idToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("google-side-key"))
	require.NoError(t, err)
	return s
}

func googleClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            "client-id",
		"sub":            "1098765",
		"email":          "a@x.com",
		"email_verified": true,
		"name":           "Ada",
	}
}

func TestHMACState(t *testing.T) {
	ctx := context.Background()
	h := NewHMACState("secret")

	st, err := h.Issue(ctx)
	require.NoError(t, err)
	assert.NoError(t, h.Consume(ctx, st))

	assert.ErrorIs(t, NewHMACState("other").Consume(ctx, st), ErrBadState)
	assert.ErrorIs(t, h.Consume(ctx, st+"x"), ErrBadState)
	assert.ErrorIs(t, h.Consume(ctx, "nodots"), ErrBadState)

	h.now = func() time.Time { return time.Now().Add(stateTTL + time.Second) }
	assert.ErrorIs(t, h.Consume(ctx, st), ErrBadState)
}

func TestRedisState_SingleUse(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	s := NewRedisState("secret", rdb)
	st, err := s.Issue(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists("oauth:state:"+st))

	require.NoError(t, s.Consume(ctx, st))
	assert.ErrorIs(t, s.Consume(ctx, st), ErrBadState)

	forged, err := NewHMACState("secret").Issue(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Consume(ctx, forged), ErrBadState, "signed but never issued through redis")
}

func TestParseIDToken(t *testing.T) {
	id, err := parseIDToken(idToken(t, googleClaims()), "client-id")
	require.NoError(t, err)
	assert.Equal(t, &Identity{ProviderID: "1098765", Email: "a@x.com", DisplayName: "Ada"}, id)

	for name, mutate := range map[string]func(jwt.MapClaims){
		"iss":        func(c jwt.MapClaims) { c["iss"] = "https://evil.example" },
		"aud":        func(c jwt.MapClaims) { c["aud"] = "someone-else" },
		"no email":   func(c jwt.MapClaims) { delete(c, "email") },
		"unverified": func(c jwt.MapClaims) { c["email_verified"] = false },
	} {
		c := googleClaims()
		mutate(c)
		_, err := parseIDToken(idToken(t, c), "client-id")
		assert.Error(t, err, name)
	}

	_, err = parseIDToken("not-a-jwt", "client-id")
	assert.Error(t, err)
}

func TestGoogle_BeginAndComplete(t *testing.T) {
	raw := idToken(t, googleClaims())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at", "token_type": "Bearer", "expires_in": 3600, "id_token": raw,
		})
	}))
	defer srv.Close()

	g := NewGoogle("client-id", "secret", "http://localhost/cb", NewHMACState("s")).
		WithEndpoint(oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		})
	ctx := context.Background()

	loc, err := g.Begin(ctx)
	require.NoError(t, err)
	u, err := url.Parse(loc)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	assert.True(t, strings.Contains(u.Query().Get("scope"), "email"))

	id, err := g.Complete(ctx, state, "good-code")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", id.Email)

	_, err = g.Complete(ctx, "forged", "good-code")
	assert.ErrorIs(t, err, ErrBadState)

	_, err = g.Complete(ctx, state, "bad-code")
	assert.Error(t, err)
}
