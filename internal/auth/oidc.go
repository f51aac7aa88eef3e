package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/ExtMailer/ExtMailer/internal/db/models"
)

// ErrOIDCDisabled is returned when OIDC is disabled via configuration.
var ErrOIDCDisabled = errors.New("oidc authentication is disabled")

// OIDCConfig configures OpenID Connect authentication.
type OIDCConfig struct {
	Enabled      bool
	ProviderURL  string // issuer, discovery document is read from it
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string // default: openid profile email
	GroupsClaim  string   // default: groups
	DefaultRole  string   // given to accounts on first login, default: reader
}

// OIDCProvider handles OIDC authentication.
type OIDCProvider struct {
	config   OIDCConfig
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	oauth2   oauth2.Config
	db       *gorm.DB
}

// Identity is what a successful callback yields.
type Identity struct {
	User    *models.User
	Groups  []string
	IDToken string
}

// NewOIDCProvider runs discovery against the configured issuer.
func NewOIDCProvider(ctx context.Context, config OIDCConfig, db *gorm.DB) (*OIDCProvider, error) {
	if !config.Enabled {
		return nil, ErrOIDCDisabled
	}

	provider, err := oidc.NewProvider(ctx, config.ProviderURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	scopes := config.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	if config.GroupsClaim == "" {
		config.GroupsClaim = "groups"
	}

	return &OIDCProvider{
		config:   config,
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: config.ClientID}),
		oauth2: oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       scopes,
		},
		db: db,
	}, nil
}

// GenerateStateToken returns a random state value for the authorization request.
func GenerateStateToken() (string, error) {
	b := make([]byte, 32) //nolint:mnd
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// AuthURL returns the provider's authorization URL.
func (p *OIDCProvider) AuthURL(state string) string {
	return p.oauth2.AuthCodeURL(state)
}

// HandleCallback exchanges the code, verifies the ID token and provisions the user.
func (p *OIDCProvider) HandleCallback(ctx context.Context, code string) (*Identity, error) {
	token, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, ErrNoIDToken
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims struct {
		Sub               string `json:"sub"`
		Email             string `json:"email"`
		PreferredUsername string `json:"preferred_username"`
		GivenName         string `json:"given_name"`
		FamilyName        string `json:"family_name"`
	}

	if err = idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	var all map[string]any
	if err = idToken.Claims(&all); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	username := claims.PreferredUsername
	if username == "" {
		username = claims.Email
	}

	user, err := provisionUser(p.db, models.User{
		Username:   username,
		Email:      claims.Email,
		FirstName:  claims.GivenName,
		LastName:   claims.FamilyName,
		AuthSource: models.AuthSourceOIDC,
		ExternalID: claims.Sub,
	}, p.config.DefaultRole)
	if err != nil {
		return nil, err
	}

	return &Identity{
		User:    user,
		Groups:  GroupsFromClaims(all, p.config.GroupsClaim),
		IDToken: rawIDToken,
	}, nil
}

// GroupsFromClaims reads a string or string list claim.
func GroupsFromClaims(claims map[string]any, claim string) []string {
	switch v := claims[claim].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		groups := make([]string, 0, len(v))

		for _, g := range v {
			if s, ok := g.(string); ok {
				groups = append(groups, s)
			}
		}

		return groups
	default:
		return nil
	}
}

// LogoutURL returns the provider's end session URL or "" when it has none.
func (p *OIDCProvider) LogoutURL(idToken, postLogoutRedirectURI string) string {
	var meta struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}

	if err := p.provider.Claims(&meta); err != nil || meta.EndSessionEndpoint == "" {
		return ""
	}

	q := url.Values{}
	q.Set("id_token_hint", idToken)
	q.Set("post_logout_redirect_uri", postLogoutRedirectURI)

	return meta.EndSessionEndpoint + "?" + q.Encode()
}
