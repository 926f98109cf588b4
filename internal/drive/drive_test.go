package drive

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/roelfdiedericks/lilybear/internal/errs"
)

type fakeFlow struct {
	tok   *oauth2.Token
	err   error
	calls int
}

func (f *fakeFlow) Authorize(context.Context, *oauth2.Config) (*oauth2.Token, error) {
	f.calls++
	return f.tok, f.err
}

// tokenServer answers the OAuth token endpoint with a fixed token.
func tokenServer(t *testing.T, hits *int32, check func(url.Values)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if check != nil {
			check(r.Form)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-access","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.example.test/auth",
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func TestTokenStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.pickle")
	s := NewTokenStore(path)

	if _, err := s.Load(); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	tok := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour).Round(time.Second)}
	if err := s.Save(tok); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("token file mode = %o, want 0600", perm)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessToken != "a" || got.RefreshToken != "r" || !got.Expiry.Equal(tok.Expiry) {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestCredentialStates(t *testing.T) {
	tests := []struct {
		name        string
		tok         *oauth2.Token
		valid       bool
		expired     bool
		refreshable bool
	}{
		{"nil", nil, false, false, false},
		{"no expiry", &oauth2.Token{AccessToken: "a"}, true, false, false},
		{"fresh", &oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(time.Hour)}, true, false, false},
		{"expired with refresh", &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Now().Add(-time.Hour)}, false, true, true},
		{"refresh only", &oauth2.Token{RefreshToken: "r"}, false, false, true},
	}
	for _, tt := range tests {
		c := NewCredential(tt.tok)
		if c.Valid() != tt.valid || c.Expired() != tt.expired || c.Refreshable() != tt.refreshable {
			t.Errorf("%s: valid=%v expired=%v refreshable=%v", tt.name, c.Valid(), c.Expired(), c.Refreshable())
		}
	}
}

func TestAcquireValidTokenSkipsFlow(t *testing.T) {
	store := NewTokenStore(filepath.Join(t.TempDir(), "token.pickle"))
	if err := store.Save(&oauth2.Token{AccessToken: "stored", Expiry: time.Now().Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(store.Path())

	flow := &fakeFlow{}
	a := NewAuthenticatorFromConfig(testConfig("http://127.0.0.1:1/token"), store, flow)

	cred, err := a.AcquireCredential(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if cred.Token().AccessToken != "stored" {
		t.Errorf("access token = %q", cred.Token().AccessToken)
	}
	if flow.calls != 0 {
		t.Errorf("flow invoked %d times", flow.calls)
	}
	after, _ := os.ReadFile(store.Path())
	if string(before) != string(after) {
		t.Error("valid token should not be rewritten")
	}
}

func TestAcquireRunsFlowOnceAndPersists(t *testing.T) {
	store := NewTokenStore(filepath.Join(t.TempDir(), "token.pickle"))
	flow := &fakeFlow{tok: &oauth2.Token{AccessToken: "from-flow", RefreshToken: "r", Expiry: time.Now().Add(time.Hour)}}
	a := NewAuthenticatorFromConfig(testConfig("http://127.0.0.1:1/token"), store, flow)

	for i := 0; i < 2; i++ {
		cred, err := a.AcquireCredential(context.Background())
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		if cred.Token().AccessToken != "from-flow" {
			t.Errorf("acquire %d: access token = %q", i, cred.Token().AccessToken)
		}
	}
	if flow.calls != 1 {
		t.Errorf("flow invoked %d times, want 1", flow.calls)
	}

	stored, err := store.Load()
	if err != nil || stored.AccessToken != "from-flow" {
		t.Errorf("stored token = %+v, %v", stored, err)
	}
}

func TestAcquireRefreshesExpiredToken(t *testing.T) {
	var hits int32
	srv := tokenServer(t, &hits, func(form url.Values) {
		if form.Get("grant_type") != "refresh_token" || form.Get("refresh_token") != "keep-me" {
			t.Errorf("unexpected refresh form: %v", form)
		}
	})

	store := NewTokenStore(filepath.Join(t.TempDir(), "token.pickle"))
	store.Save(&oauth2.Token{AccessToken: "old", RefreshToken: "keep-me", Expiry: time.Now().Add(-time.Hour)})

	flow := &fakeFlow{}
	a := NewAuthenticatorFromConfig(testConfig(srv.URL), store, flow)

	cred, err := a.AcquireCredential(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if flow.calls != 0 {
		t.Error("refreshable token should not run the flow")
	}
	if cred.Token().AccessToken != "new-access" || !cred.Valid() {
		t.Errorf("refreshed token = %+v", cred.Token())
	}

	stored, _ := store.Load()
	if stored.AccessToken != "new-access" {
		t.Errorf("stored access token = %q", stored.AccessToken)
	}
	if stored.RefreshToken != "keep-me" {
		t.Errorf("refresh token lost: %q", stored.RefreshToken)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("token endpoint hits = %d", hits)
	}
}

func TestAcquireFailureDoesNotPersist(t *testing.T) {
	dir := t.TempDir()
	store := NewTokenStore(filepath.Join(dir, "token.pickle"))
	flow := &fakeFlow{err: errors.New("user closed the browser")}
	a := NewAuthenticatorFromConfig(testConfig("http://127.0.0.1:1/token"), store, flow)

	if _, err := a.AcquireCredential(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Errorf("token file should not exist, stat err = %v", err)
	}

	// failed refresh leaves the stored token as it was
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer failing.Close()

	store.Save(&oauth2.Token{AccessToken: "old", RefreshToken: "revoked", Expiry: time.Now().Add(-time.Hour)})
	before, _ := os.ReadFile(store.Path())

	a = NewAuthenticatorFromConfig(testConfig(failing.URL), store, flow)
	_, err := a.AcquireCredential(context.Background())
	if !errs.IsProvider(err) {
		t.Errorf("expected provider error from refresh, got %v", err)
	}
	after, _ := os.ReadFile(store.Path())
	if string(before) != string(after) {
		t.Error("failed refresh must not rewrite the token file")
	}
}

func TestNewAuthenticatorCredentialsFile(t *testing.T) {
	dir := t.TempDir()

	if _, err := NewAuthenticator(filepath.Join(dir, "missing.json"), nil, nil); !errors.Is(err, errs.ErrNotConfigured) {
		t.Errorf("missing file: expected ErrNotConfigured, got %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{nope"), 0600)
	if _, err := NewAuthenticator(bad, nil, nil); !errors.Is(err, errs.ErrNotConfigured) {
		t.Errorf("bad file: expected ErrNotConfigured, got %v", err)
	}

	good := filepath.Join(dir, "credentials.json")
	os.WriteFile(good, []byte(`{"installed":{
		"client_id":"id.apps.googleusercontent.com","client_secret":"s",
		"auth_uri":"https://accounts.google.com/o/oauth2/auth",
		"token_uri":"https://oauth2.googleapis.com/token",
		"redirect_uris":["http://localhost"]}}`), 0600)
	a, err := NewAuthenticator(good, NewTokenStore(filepath.Join(dir, "token.pickle")), &fakeFlow{})
	if err != nil {
		t.Fatal(err)
	}
	if len(a.config.Scopes) != 2 {
		t.Errorf("scopes = %v", a.config.Scopes)
	}
}

func TestLocalServerFlow(t *testing.T) {
	var hits int32
	tokSrv := tokenServer(t, &hits, func(form url.Values) {
		if form.Get("code") != "auth-code" {
			t.Errorf("code = %q", form.Get("code"))
		}
		if form.Get("code_verifier") == "" {
			t.Error("missing PKCE verifier")
		}
		if !strings.HasPrefix(form.Get("redirect_uri"), "http://127.0.0.1:") {
			t.Errorf("redirect_uri = %q", form.Get("redirect_uri"))
		}
	})

	flow := &LocalServerFlow{
		OpenURL: func(consent string) error {
			u, err := url.Parse(consent)
			if err != nil {
				return err
			}
			q := u.Query()
			if q.Get("code_challenge_method") != "S256" || q.Get("access_type") != "offline" {
				t.Errorf("consent URL missing PKCE/offline: %s", consent)
			}
			go func() {
				// stray favicon request must not end the flow
				if resp, err := http.Get(q.Get("redirect_uri") + "favicon.ico"); err == nil {
					resp.Body.Close()
				}
				resp, err := http.Get(q.Get("redirect_uri") + "?code=auth-code&state=" + url.QueryEscape(q.Get("state")))
				if err != nil {
					t.Errorf("callback: %v", err)
					return
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}()
			return nil
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tok, err := flow.Authorize(ctx, testConfig(tokSrv.URL))
	if err != nil {
		t.Fatal(err)
	}
	if tok.AccessToken != "new-access" {
		t.Errorf("access token = %q", tok.AccessToken)
	}
}

func TestLocalServerFlowStateMismatch(t *testing.T) {
	flow := &LocalServerFlow{
		OpenURL: func(consent string) error {
			u, _ := url.Parse(consent)
			go func() {
				resp, err := http.Get(u.Query().Get("redirect_uri") + "?code=x&state=forged")
				if err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := flow.Authorize(ctx, testConfig("http://127.0.0.1:1/token")); err == nil || !strings.Contains(err.Error(), "state mismatch") {
		t.Errorf("expected state mismatch, got %v", err)
	}
}

func TestLocalServerFlowContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	flow := &LocalServerFlow{OpenURL: func(string) error { cancel(); return nil }}

	if _, err := flow.Authorize(ctx, testConfig("http://127.0.0.1:1/token")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func driveStub(t *testing.T, status int, body string, hits *int32, gotBody *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/files") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("fields") != "id" {
			t.Errorf("fields = %q", r.URL.Query().Get("fields"))
		}
		if gotBody != nil {
			b, _ := io.ReadAll(r.Body)
			*gotBody = string(b)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func validCred() *Credential {
	return NewCredential(&oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(time.Hour)})
}

func TestUpload(t *testing.T) {
	var hits int32
	var body string
	srv := driveStub(t, http.StatusOK, `{"id":"drive-file-123"}`, &hits, &body)

	path := filepath.Join(t.TempDir(), "2024-03-09.md")
	os.WriteFile(path, []byte("# 2024-03-09\n"), 0644)

	u := NewUploader(UploadConfig{FolderID: "folder-9"}, option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	id, err := u.Upload(context.Background(), path, validCred())
	if err != nil {
		t.Fatal(err)
	}
	if id != "drive-file-123" {
		t.Errorf("id = %q", id)
	}
	// multipart body carries metadata then content
	for _, want := range []string{`"name":"2024-03-09.md"`, `"parents":["folder-9"]`, "# 2024-03-09"} {
		if !strings.Contains(body, want) {
			t.Errorf("upload body missing %s:\n%s", want, body)
		}
	}
}

func TestUploadMissingFile(t *testing.T) {
	var hits int32
	srv := driveStub(t, http.StatusOK, `{"id":"x"}`, &hits, nil)
	u := NewUploader(UploadConfig{}, option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))

	_, err := u.Upload(context.Background(), filepath.Join(t.TempDir(), "gone.md"), validCred())
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Error("no request expected for a missing file")
	}
}

func TestUploadServiceError(t *testing.T) {
	var hits int32
	srv := driveStub(t, http.StatusForbidden, `{"error":{"code":403,"message":"insufficient scope"}}`, &hits, nil)
	u := NewUploader(UploadConfig{}, option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))

	path := filepath.Join(t.TempDir(), "e.md")
	os.WriteFile(path, []byte("x"), 0644)

	_, err := u.Upload(context.Background(), path, validCred())
	if !errs.IsProvider(err) {
		t.Errorf("expected provider error, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("expected one attempt, got %d", hits)
	}
}
