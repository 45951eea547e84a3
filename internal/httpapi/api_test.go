package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"keyward.org/internal/auth"
	"keyward.org/internal/store/memory"
)

type testAPI struct {
	*API
	repo   *memory.UserRepository
	server *httptest.Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	repo := memory.NewUserRepository()
	rev := memory.NewRevocationStore()
	codec, err := auth.NewCodec([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	svc, err := auth.NewService(repo, rev, codec)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	users, err := auth.NewUsers(repo)
	if err != nil {
		t.Fatalf("new users: %v", err)
	}
	api := New(svc, users, ReadyProbe{}, "test")
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return &testAPI{API: api, repo: repo, server: srv}
}

func (ta *testAPI) do(t *testing.T, method, path, bearer string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, ta.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := ta.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// signup registers a user through the API and returns the token pair.
func (ta *testAPI) signup(t *testing.T, email, password string) tokenPairResponse {
	t.Helper()
	resp := ta.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status = %d", email, resp.StatusCode)
	}
	var pair tokenPairResponse
	decodeBody(t, resp, &pair)
	return pair
}

// promote flips a registered user's role directly in the store.
func (ta *testAPI) promote(t *testing.T, email string, role auth.Role) {
	t.Helper()
	p, err := ta.repo.FindByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("find %s: %v", email, err)
	}
	p.Role = role
	if err := ta.repo.Update(context.Background(), p); err != nil {
		t.Fatalf("update %s: %v", email, err)
	}
}
