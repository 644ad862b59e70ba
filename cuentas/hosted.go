package cuentas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"

	"github.com/pomodoroso/pizzanova/despensa"
)

var tracer = otel.Tracer("cuentas")

// HostedProvider implements Provider against a GoTrue-style hosted identity
// HTTP API.
type HostedProvider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

var _ Provider = (*HostedProvider)(nil)

func NewHostedProvider(cfg despensa.IdentitySettings) *HostedProvider {
	return &HostedProvider{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutInSec) * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

type hostedUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Metadata struct {
		Name string `json:"name"`
		Role string `json:"role"`
	} `json:"user_metadata"`
}

func (u hostedUser) toUser() User {
	role := Role(u.Metadata.Role)
	if role != RoleAdmin && role != RoleStaff {
		role = RoleStaff
	}
	name := u.Metadata.Name
	if name == "" {
		name = u.Email
	}
	return User{ID: u.ID, Email: u.Email, Name: name, Role: role}
}

type tokenResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresIn    int        `json:"expires_in"`
	User         hostedUser `json:"user"`
}

// SignUp implements Provider.
func (p *HostedProvider) SignUp(ctx context.Context, creds Credentials, name string) (User, error) {
	ctx, span := tracer.Start(ctx, "HostedProvider.SignUp")
	defer span.End()

	body := map[string]any{
		"email":    creds.Email,
		"password": creds.Password,
		"data":     map[string]string{"name": name},
	}

	var resp hostedUser
	status, err := p.post(ctx, "/signup", "", body, &resp)
	if err != nil {
		return User{}, err
	}
	switch {
	case status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		return User{}, ErrUserExists
	case status >= 400:
		return User{}, fmt.Errorf("identity provider returned %d", status)
	}
	return resp.toUser(), nil
}

// Login implements Provider.
func (p *HostedProvider) Login(ctx context.Context, creds Credentials) (Session, error) {
	ctx, span := tracer.Start(ctx, "HostedProvider.Login")
	defer span.End()

	body := map[string]string{
		"email":    creds.Email,
		"password": creds.Password,
	}

	var resp tokenResponse
	status, err := p.post(ctx, "/token?grant_type=password", "", body, &resp)
	if err != nil {
		return Session{}, err
	}
	if status == http.StatusBadRequest || status == http.StatusUnauthorized {
		return Session{}, ErrInvalidCredentials
	}
	if status >= 400 {
		return Session{}, fmt.Errorf("identity provider returned %d", status)
	}

	return Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		User:         resp.User.toUser(),
	}, nil
}

// Logout implements Provider.
func (p *HostedProvider) Logout(ctx context.Context, accessToken string) error {
	ctx, span := tracer.Start(ctx, "HostedProvider.Logout")
	defer span.End()

	status, err := p.post(ctx, "/logout", accessToken, nil, nil)
	if err != nil {
		return err
	}
	if status >= 400 {
		return fmt.Errorf("identity provider returned %d", status)
	}
	return nil
}

// Session implements Provider. Expiry is checked locally from the token's
// claims before spending a network round trip.
func (p *HostedProvider) Session(ctx context.Context, accessToken string) (User, error) {
	ctx, span := tracer.Start(ctx, "HostedProvider.Session")
	defer span.End()

	if expired(accessToken) {
		return User{}, ErrSessionExpired
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/user", nil)
	if err != nil {
		return User{}, err
	}
	p.setHeaders(req, accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return User{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return User{}, ErrInvalidCredentials
	}
	if resp.StatusCode >= 400 {
		return User{}, fmt.Errorf("identity provider returned %d", resp.StatusCode)
	}

	var u hostedUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return User{}, err
	}
	return u.toUser(), nil
}

// expired reads the exp claim without verifying the signature; the provider
// remains the authority, this only short-circuits obviously dead tokens.
func expired(accessToken string) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}

func (p *HostedProvider) setHeaders(req *http.Request, accessToken string) {
	if p.apiKey != "" {
		req.Header.Set("apikey", p.apiKey)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
}

func (p *HostedProvider) post(ctx context.Context, path, accessToken string, body, out any) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	p.setHeaders(req, accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 400 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
