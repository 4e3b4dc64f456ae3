package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	ggoogle "golang.org/x/oauth2/google"
)

// Identity is what a provider hands to the account layer after its own handshake.
type Identity struct {
	ProviderID  string
	Email       string
	DisplayName string
}

type GoogleOAuth struct {
	cfg    *oauth2.Config
	states StateStore
}

func NewGoogle(clientID, clientSecret, redirectURI string, states StateStore) *GoogleOAuth {
	return &GoogleOAuth{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     ggoogle.Endpoint,
		},
		states: states,
	}
}

// WithEndpoint points the flow at another token/auth endpoint; used by tests.
func (g *GoogleOAuth) WithEndpoint(ep oauth2.Endpoint) *GoogleOAuth {
	cfg := *g.cfg
	cfg.Endpoint = ep
	return &GoogleOAuth{cfg: &cfg, states: g.states}
}

// Begin returns the consent URL carrying a fresh state.
func (g *GoogleOAuth) Begin(ctx context.Context) (string, error) {
	state, err := g.states.Issue(ctx)
	if err != nil {
		return "", fmt.Errorf("issue state: %w", err)
	}
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Complete validates state, exchanges the code and returns the verified identity.
func (g *GoogleOAuth) Complete(ctx context.Context, state, code string) (*Identity, error) {
	if err := g.states.Consume(ctx, state); err != nil {
		return nil, err
	}
	if code == "" {
		return nil, errors.New("missing code")
	}
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange: %w", err)
	}
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("no id_token")
	}
	return parseIDToken(rawIDToken, g.cfg.ClientID)
}

// parseIDToken checks the claims of an id_token received directly from
// Google's token endpoint over TLS; per OIDC core 3.1.3.7 the TLS channel
// stands in for signature validation in that case.
func parseIDToken(raw, expectedAud string) (*Identity, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("parse id_token: %w", err)
	}
	iss, _ := claims["iss"].(string)
	aud, _ := claims["aud"].(string)
	email, _ := claims["email"].(string)
	emailVerified, _ := claims["email_verified"].(bool)
	sub, _ := claims["sub"].(string)
	name, _ := claims["name"].(string)

	if iss != "https://accounts.google.com" && iss != "accounts.google.com" {
		return nil, errors.New("bad iss")
	}
	if aud != expectedAud {
		return nil, errors.New("bad aud")
	}
	if email == "" || sub == "" {
		return nil, errors.New("missing email/sub")
	}
	if !emailVerified {
		return nil, errors.New("email not verified")
	}
	return &Identity{ProviderID: sub, Email: email, DisplayName: name}, nil
}
