// Package drive authorizes against Google and uploads journal files to
// Google Drive.
package drive

import (
	docs "google.golang.org/api/docs/v1"
	drivev3 "google.golang.org/api/drive/v3"

	"golang.org/x/oauth2"
)

// Scopes requested during authorization. The documents scope is requested
// for the journal documents feature and is not used by any upload yet.
var Scopes = []string{
	drivev3.DriveFileScope,
	docs.DocumentsScope,
}

// Credential is a process-wide Google authorization.
type Credential struct {
	token *oauth2.Token
}

// NewCredential wraps tok. A nil token yields an invalid credential.
func NewCredential(tok *oauth2.Token) *Credential {
	return &Credential{token: tok}
}

// Token returns the underlying OAuth token.
func (c *Credential) Token() *oauth2.Token {
	if c == nil {
		return nil
	}
	return c.token
}

// Valid reports whether the access token can be used as is.
func (c *Credential) Valid() bool {
	return c != nil && c.token.Valid()
}

// Expired reports whether the token carries an expiry that has passed.
// A token without an expiry never expires.
func (c *Credential) Expired() bool {
	if c == nil || c.token == nil || c.token.Expiry.IsZero() {
		return false
	}
	return !c.token.Valid()
}

// Refreshable reports whether the token carries a refresh token.
func (c *Credential) Refreshable() bool {
	return c != nil && c.token != nil && c.token.RefreshToken != ""
}
