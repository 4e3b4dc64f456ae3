package oauth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrBadState = errors.New("invalid oauth state")

const stateTTL = 10 * time.Minute

// StateStore issues and checks the CSRF state parameter of the OAuth redirect.
type StateStore interface {
	Issue(ctx context.Context) (string, error)
	Consume(ctx context.Context, state string) error
}

// HMACState signs "nonce.expiry" with a secret. It is stateless, so a state
// can be replayed until it expires; RedisState closes that gap.
type HMACState struct {
	key []byte
	now func() time.Time
}

func NewHMACState(secret string) *HMACState {
	return &HMACState{key: []byte(secret), now: time.Now}
}

func (h *HMACState) sign(raw string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (h *HMACState) Issue(context.Context) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	raw := base64.RawURLEncoding.EncodeToString(b) + "." + strconv.FormatInt(h.now().Add(stateTTL).Unix(), 10)
	return raw + "." + h.sign(raw), nil
}

func (h *HMACState) Consume(_ context.Context, got string) error {
	i := strings.LastIndexByte(got, '.')
	if i < 0 {
		return ErrBadState
	}
	raw, sig := got[:i], got[i+1:]
	if !hmac.Equal([]byte(h.sign(raw)), []byte(sig)) {
		return ErrBadState
	}
	j := strings.LastIndexByte(raw, '.')
	if j < 0 {
		return ErrBadState
	}
	exp, err := strconv.ParseInt(raw[j+1:], 10, 64)
	if err != nil || h.now().Unix() >= exp {
		return ErrBadState
	}
	return nil
}

// RedisState adds single-use semantics on top of HMACState by recording
// each issued state in Redis and deleting it on first use.
type RedisState struct {
	*HMACState
	rdb    *redis.Client
	prefix string
}

func NewRedisState(secret string, rdb *redis.Client) *RedisState {
	return &RedisState{HMACState: NewHMACState(secret), rdb: rdb, prefix: "oauth:state:"}
}

func (r *RedisState) Issue(ctx context.Context) (string, error) {
	state, err := r.HMACState.Issue(ctx)
	if err != nil {
		return "", err
	}
	if err := r.rdb.Set(ctx, r.prefix+state, 1, stateTTL).Err(); err != nil {
		return "", err
	}
	return state, nil
}

func (r *RedisState) Consume(ctx context.Context, state string) error {
	if err := r.HMACState.Consume(ctx, state); err != nil {
		return err
	}
	n, err := r.rdb.Del(ctx, r.prefix+state).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBadState
	}
	return nil
}
