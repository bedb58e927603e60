// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package auth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/keepwatching/internal/logging"
)

// refreshLeeway triggers a token refresh when the current ID token is within
// this window of its expiry.
const refreshLeeway = time.Minute

// Ensure Client implements Provider.
var _ Provider = (*Client)(nil)

// Client talks to the identity provider's REST API and holds the current
// session's tokens. All methods are safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	mu      sync.Mutex
	session *session
}

// session is the provider-issued token set for a signed-in identity.
type session struct {
	identity     Identity
	idToken      string
	refreshToken string
	expiresAt    time.Time
}

// NewClient creates an identity provider client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// tokenResponse is the provider's shape for sign-in, sign-up and idp
// exchange responses.
type tokenResponse struct {
	IDToken       string `json:"idToken"`
	RefreshToken  string `json:"refreshToken"`
	ExpiresIn     string `json:"expiresIn"`
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	EmailVerified bool   `json:"emailVerified"`
}

// SignUp implements Provider.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	body := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}

	var resp tokenResponse
	if err := c.post(ctx, "accounts:signUp", body, &resp); err != nil {
		return nil, err
	}
	return c.openSession(&resp), nil
}

// SignIn implements Provider.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	body := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}

	var resp tokenResponse
	if err := c.post(ctx, "accounts:signInWithPassword", body, &resp); err != nil {
		return nil, err
	}
	return c.openSession(&resp), nil
}

// SignInWithGoogle implements Provider.
func (c *Client) SignInWithGoogle(ctx context.Context, googleIDToken string) (*Identity, error) {
	body := map[string]any{
		"postBody":            "id_token=" + googleIDToken + "&providerId=google.com",
		"requestUri":          "http://localhost",
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}

	var resp tokenResponse
	if err := c.post(ctx, "accounts:signInWithIdp", body, &resp); err != nil {
		return nil, err
	}
	return c.openSession(&resp), nil
}

// SignOut implements Provider.
func (c *Client) SignOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
}

// SignedIn implements Provider.
func (c *Client) SignedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// CurrentIdentity implements Provider.
func (c *Client) CurrentIdentity() (*Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, ErrNotSignedIn
	}
	identity := c.session.identity
	return &identity, nil
}

// BearerToken implements Provider. The token is refreshed through the
// provider's token endpoint when within refreshLeeway of expiry.
func (c *Client) BearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return "", nil
	}
	if time.Until(c.session.expiresAt) > refreshLeeway {
		return c.session.idToken, nil
	}
	if err := c.refreshLocked(ctx); err != nil {
		return "", err
	}
	return c.session.idToken, nil
}

// refreshLocked exchanges the refresh token for a new ID token.
// Caller must hold c.mu.
func (c *Client) refreshLocked(ctx context.Context) error {
	body := map[string]any{
		"grant_type":    "refresh_token",
		"refresh_token": c.session.refreshToken,
	}

	var resp struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
	}
	if err := c.post(ctx, "token", body, &resp); err != nil {
		return err
	}

	c.session.idToken = resp.IDToken
	if resp.RefreshToken != "" {
		c.session.refreshToken = resp.RefreshToken
	}
	c.session.expiresAt = tokenExpiry(resp.IDToken, resp.ExpiresIn)

	logging.Debug().Time("expires_at", c.session.expiresAt).Msg("auth token refreshed")
	return nil
}

// SendEmailVerification implements Provider.
func (c *Client) SendEmailVerification(ctx context.Context) error {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return ErrNotSignedIn
	}
	idToken := c.session.idToken
	c.mu.Unlock()

	body := map[string]any{
		"requestType": "VERIFY_EMAIL",
		"idToken":     idToken,
	}
	return c.post(ctx, "accounts:sendOobCode", body, nil)
}

// SendPasswordReset implements Provider.
func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	body := map[string]any{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}
	return c.post(ctx, "accounts:sendOobCode", body, nil)
}

// DeleteUser implements Provider.
func (c *Client) DeleteUser(ctx context.Context) error {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return ErrNotSignedIn
	}
	idToken := c.session.idToken
	c.mu.Unlock()

	if err := c.post(ctx, "accounts:delete", map[string]any{"idToken": idToken}, nil); err != nil {
		return err
	}

	c.SignOut()
	return nil
}

// openSession records the provider tokens and returns the identity.
func (c *Client) openSession(resp *tokenResponse) *Identity {
	identity := Identity{
		UID:           resp.LocalID,
		Email:         resp.Email,
		DisplayName:   resp.DisplayName,
		EmailVerified: resp.EmailVerified,
	}

	c.mu.Lock()
	c.session = &session{
		identity:     identity,
		idToken:      resp.IDToken,
		refreshToken: resp.RefreshToken,
		expiresAt:    tokenExpiry(resp.IDToken, resp.ExpiresIn),
	}
	c.mu.Unlock()

	return &identity
}

// tokenExpiry determines when an ID token expires. The JWT exp claim is
// authoritative; the provider's expiresIn seconds field is the fallback for
// opaque tokens.
func tokenExpiry(idToken, expiresIn string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}

	seconds, err := strconv.Atoi(expiresIn)
	if err != nil || seconds <= 0 {
		seconds = 3600
	}
	return time.Now().Add(time.Duration(seconds) * time.Second)
}

// post issues a provider API call and translates failures into ProviderError.
func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode auth request: %w", err)
	}

	url := c.baseURL + "/" + endpoint
	if c.apiKey != "" {
		url += "?key=" + c.apiKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ProviderError{Code: "NETWORK_ERROR", Message: fallbackMessage}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ProviderError{Code: "NETWORK_ERROR", Message: fallbackMessage}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeProviderError(respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}
	return nil
}

// decodeProviderError extracts the provider's error code from a failure body
// and translates it into a user-readable ProviderError.
func decodeProviderError(body []byte) *ProviderError {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Error.Message == "" {
		return &ProviderError{Code: "UNKNOWN", Message: fallbackMessage}
	}
	return translateCode(parsed.Error.Message)
}
