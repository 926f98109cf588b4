package drive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"golang.org/x/oauth2"

	"github.com/roelfdiedericks/lilybear/internal/errs"
	. "github.com/roelfdiedericks/lilybear/internal/logging"
	"github.com/roelfdiedericks/lilybear/internal/paths"
)

// DefaultTokenPath is where the authorization token is kept by default.
const DefaultTokenPath = "token.pickle"

// TokenStore persists one OAuth token as JSON. Reads and writes are
// serialized; writes are atomic and owner-only.
type TokenStore struct {
	path string
	mu   sync.Mutex
}

// NewTokenStore returns a store backed by path (DefaultTokenPath if empty).
func NewTokenStore(path string) *TokenStore {
	if path == "" {
		path = DefaultTokenPath
	}
	return &TokenStore{path: path}
}

// Path returns the token file path.
func (s *TokenStore) Path() string {
	return s.path
}

// Load reads the stored token. A missing file matches errs.ErrNotFound.
func (s *TokenStore) Load() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.NotFound("token "+s.path, err)
		}
		return nil, fmt.Errorf("read token: %w", err)
	}

	tok := &oauth2.Token{}
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", s.path, err)
	}
	return tok, nil
}

// Save replaces the stored token.
func (s *TokenStore) Save(tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("save token: nil token")
	}

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := paths.AtomicWrite(s.path, data, 0600); err != nil {
		return fmt.Errorf("save token: %w", err)
	}

	L_debug("drive: token saved", "path", s.path)
	return nil
}
