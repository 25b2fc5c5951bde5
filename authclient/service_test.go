package authclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

const sessionCookie = "session"

type recordedRequest struct {
	Path      string
	Body      map[string]string
	RequestID string
	UserAgent string
	Cookie    string
}

// fakeService is a minimal stand-in for the authentication service.
type fakeService struct {
	mu         sync.Mutex
	requests   []recordedRequest
	accounts   map[string]string
	similarity string
	loginBody  string
}

func newFakeService(t *testing.T) (*fakeService, *httptest.Server) {
	t.Helper()
	f := &fakeService{accounts: map[string]string{}, similarity: "0.87"}
	r := chi.NewRouter()
	r.Post("/account/create", f.create)
	r.Post("/account/login", f.login)
	r.Post("/account/logout", f.logout)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeService) record(r *http.Request) map[string]string {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	rr := recordedRequest{
		Path:      r.URL.Path,
		Body:      body,
		RequestID: r.Header.Get("X-Request-ID"),
		UserAgent: r.Header.Get("User-Agent"),
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		rr.Cookie = c.Value
	}
	f.mu.Lock()
	f.requests = append(f.requests, rr)
	f.mu.Unlock()
	return body
}

func (f *fakeService) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeService) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeService) create(w http.ResponseWriter, r *http.Request) {
	body := f.record(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, taken := f.accounts[body["username"]]; taken {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("username taken"))
		return
	}
	f.accounts[body["username"]] = body["password"]
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte("account created"))
}

func (f *fakeService) login(w http.ResponseWriter, r *http.Request) {
	body := f.record(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	if pw, ok := f.accounts[body["username"]]; !ok || pw != body["password"] {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("voice did not match"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "s-" + body["username"], Path: "/"})
	w.Header().Set("Content-Type", "application/json")
	if f.loginBody != "" {
		_, _ = w.Write([]byte(f.loginBody))
		return
	}
	_, _ = w.Write([]byte(`{"similarity": ` + f.similarity + `}`))
}

func (f *fakeService) logout(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	if _, err := r.Cookie(sessionCookie); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusOK)
}
