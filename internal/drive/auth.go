package drive

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/roelfdiedericks/lilybear/internal/errs"
	. "github.com/roelfdiedericks/lilybear/internal/logging"
)

// DefaultCredentialsPath is the OAuth client secrets file used by default.
const DefaultCredentialsPath = "credentials.json"

// Authorizer obtains a brand new token from the user.
type Authorizer interface {
	Authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error)
}

// Authenticator yields a usable Google credential, refreshing or
// re-authorizing as needed. One per process.
type Authenticator struct {
	config *oauth2.Config
	store  *TokenStore
	flow   Authorizer

	mu sync.Mutex
}

// NewAuthenticator reads the client secrets at credentialsPath. A missing
// or unparsable file is a configuration error. flow may be nil, in which
// case the loopback browser flow is used.
func NewAuthenticator(credentialsPath string, store *TokenStore, flow Authorizer) (*Authenticator, error) {
	if credentialsPath == "" {
		credentialsPath = DefaultCredentialsPath
	}

	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, errs.NotConfigured("read %s: %v", credentialsPath, err)
	}

	config, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, errs.NotConfigured("parse %s: %v", credentialsPath, err)
	}

	L_debug("drive: client secrets loaded", "path", credentialsPath, "scopes", len(Scopes))
	return NewAuthenticatorFromConfig(config, store, flow), nil
}

// NewAuthenticatorFromConfig builds an Authenticator around an existing
// OAuth config.
func NewAuthenticatorFromConfig(config *oauth2.Config, store *TokenStore, flow Authorizer) *Authenticator {
	if store == nil {
		store = NewTokenStore("")
	}
	if flow == nil {
		flow = &LocalServerFlow{}
	}
	return &Authenticator{config: config, store: store, flow: flow}
}

// AcquireCredential returns a valid credential. A stored valid token is
// returned untouched. An expired token with a refresh token is refreshed.
// Anything else runs the interactive flow. A new token is persisted before
// it is returned; a failed refresh or flow persists nothing.
func (a *Authenticator) AcquireCredential(ctx context.Context) (*Credential, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tok, err := a.store.Load()
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			L_warn("drive: stored token unusable, re-authorizing", "path", a.store.Path(), "error", err)
		}
		tok = nil
	}

	cred := NewCredential(tok)
	if cred.Valid() {
		L_trace("drive: stored token valid")
		return cred, nil
	}

	var fresh *oauth2.Token
	if cred.Expired() && cred.Refreshable() {
		L_debug("drive: refreshing expired token", "expiry", tok.Expiry)
		fresh, err = a.config.TokenSource(ctx, tok).Token()
		if err != nil {
			return nil, errs.Provider("google-oauth", "refresh", err)
		}
	} else {
		L_info("drive: authorization required")
		fresh, err = a.flow.Authorize(ctx, a.config)
		if err != nil {
			return nil, fmt.Errorf("authorization flow: %w", err)
		}
		if fresh == nil {
			return nil, errors.New("authorization flow: no token returned")
		}
	}

	if err := a.store.Save(fresh); err != nil {
		return nil, err
	}
	return NewCredential(fresh), nil
}

// LocalServerFlow runs the installed-app flow on a loopback listener.
type LocalServerFlow struct {
	// Addr is the listen address; default 127.0.0.1:0.
	Addr string

	// OpenURL is called with the consent URL. When nil the URL is only
	// logged.
	OpenURL func(url string) error
}

type callbackResult struct {
	code string
	err  error
}

// Authorize serves one callback with the authorization code and exchanges
// it for a token. State and PKCE verifier are generated per call.
func (f *LocalServerFlow) Authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	addr := f.Addr
	if addr == "" {
		addr = "127.0.0.1:0"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for oauth callback: %w", err)
	}

	c := *cfg
	c.RedirectURL = "http://" + ln.Addr().String() + "/"

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := c.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

	results := make(chan callbackResult, 1)
	deliver := func(r callbackResult) {
		select {
		case results <- r:
		default:
		}
	}

	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// browsers also ask for /favicon.ico
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			q := r.URL.Query()
			if q.Get("state") != state {
				http.Error(w, "state mismatch", http.StatusBadRequest)
				deliver(callbackResult{err: errors.New("oauth callback: state mismatch")})
				return
			}
			if e := q.Get("error"); e != "" {
				http.Error(w, "authorization denied: "+e, http.StatusBadRequest)
				deliver(callbackResult{err: fmt.Errorf("oauth callback: %s", e)})
				return
			}
			code := q.Get("code")
			if code == "" {
				http.Error(w, "missing code", http.StatusBadRequest)
				deliver(callbackResult{err: errors.New("oauth callback: missing code")})
				return
			}
			fmt.Fprintln(w, "Authorization complete. You may close this window.")
			deliver(callbackResult{code: code})
		}),
	}

	go srv.Serve(ln)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	L_info("drive: open this URL in a browser to authorize", "url", authURL)
	if f.OpenURL != nil {
		if err := f.OpenURL(authURL); err != nil {
			L_warn("drive: could not open browser", "error", err)
		}
	}

	var res callbackResult
	select {
	case res = <-results:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := c.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, errs.Provider("google-oauth", "exchange", err)
	}

	L_info("drive: authorization complete")
	return tok, nil
}
