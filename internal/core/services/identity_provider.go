package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"e2e-transit/internal/config"
	"e2e-transit/internal/core/domain"
)

// IdentityProvider exchanges an OAuth authorization code for a session
type IdentityProvider interface {
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*ProviderSession, error)
}

// ProviderUser is the identity returned by the hosted auth provider
type ProviderUser struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Provider   string `json:"provider"`
	ProviderID string `json:"provider_id"`
}

// ProviderSession is the token set issued by the hosted auth provider
type ProviderSession struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	User         ProviderUser `json:"user"`
}

// hostedAuthProvider talks to a Supabase-compatible /auth/v1 API
type hostedAuthProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewIdentityProvider creates the hosted auth provider client
func NewIdentityProvider(cfg config.AuthProviderConfig) IdentityProvider {
	return &hostedAuthProvider{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID          string `json:"id"`
		Email       string `json:"email"`
		AppMetadata struct {
			Provider string `json:"provider"`
		} `json:"app_metadata"`
		Identities []struct {
			ID       string `json:"id"`
			Provider string `json:"provider"`
		} `json:"identities"`
	} `json:"user"`
}

// ExchangeCode performs the PKCE code exchange
func (p *hostedAuthProvider) ExchangeCode(ctx context.Context, code, codeVerifier string) (*ProviderSession, error) {
	if p.baseURL == "" {
		return nil, fmt.Errorf("%w: AUTH_PROVIDER_URL not configured", domain.ErrProvider)
	}

	payload, err := json.Marshal(map[string]string{
		"auth_code":     code,
		"code_verifier": codeVerifier,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/auth/v1/token?grant_type=pkce", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrProvider, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrProvider, resp.StatusCode, bytes.TrimSpace(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrProvider, err)
	}
	if tr.User.ID == "" || tr.User.Email == "" {
		return nil, fmt.Errorf("%w: session has no user identity", domain.ErrProvider)
	}

	session := &ProviderSession{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		ExpiresIn:    tr.ExpiresIn,
		User: ProviderUser{
			ID:       tr.User.ID,
			Email:    tr.User.Email,
			Provider: tr.User.AppMetadata.Provider,
		},
	}
	for _, identity := range tr.User.Identities {
		if identity.Provider == session.User.Provider {
			session.User.ProviderID = identity.ID
			break
		}
	}
	return session, nil
}
