package soundcloud

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
)

// Credential holds an access/refresh token pair for one user.
//
// The pair is owned by the caller. The client reads it on every request and
// replaces it in-memory after a successful refresh; it is never persisted by
// the client itself.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`

	// OnRefresh, when set, is called with the replaced pair after a
	// successful token refresh so the caller can persist it.
	OnRefresh func(c *Credential) `json:"-"`
}

// FromToken builds a Credential from an [oauth2.Token].
func FromToken(tok *oauth2.Token) *Credential {
	return &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
}

// Token converts the credential to an [oauth2.Token].
func (c *Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		Expiry:       c.ExpiresAt,
	}
}

// apply replaces the in-memory pair with a freshly issued token and fires the
// OnRefresh hook. A provider that rotates refresh tokens returns a new one;
// otherwise the existing refresh token is kept.
func (c *Credential) apply(tok *oauth2.Token) {
	c.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		c.RefreshToken = tok.RefreshToken
	}
	c.ExpiresAt = tok.Expiry
	if c.OnRefresh != nil {
		c.OnRefresh(c)
	}
}

// LoadCredential reads a credential pair from a JSON file.
func LoadCredential(path string) (*Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}

	return &cred, nil
}

// SaveCredential writes a credential pair to a JSON file with owner-only
// permissions.
func SaveCredential(path string, cred *Credential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}
