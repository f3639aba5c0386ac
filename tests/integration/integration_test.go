package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/easyscalepro/easyscale-api/internal/domain"
	"github.com/easyscalepro/easyscale-api/internal/handler"
	"github.com/easyscalepro/easyscale-api/internal/infra/cache"
	"github.com/easyscalepro/easyscale-api/internal/infra/observability"
	"github.com/easyscalepro/easyscale-api/internal/infra/resilience"
	"github.com/easyscalepro/easyscale-api/internal/infra/supabase"
	"github.com/easyscalepro/easyscale-api/internal/service"
)

const jwtSecret = "integration-secret"

// fakeSupabase emulates the slice of PostgREST and GoTrue this API uses:
// eq filters, Prefer return=representation on insert, merge on PATCH, and
// password-grant token issuance with real HS256 tokens.
type fakeSupabase struct {
	tables map[string][]map[string]any
	seq    int
}

func newFakeSupabase() *fakeSupabase {
	return &fakeSupabase{
		tables: map[string][]map[string]any{
			"commands": {
				{"id": "cmd-1", "title": "Plano de marketing", "description": "Gera um plano completo", "category": "Marketing", "level": "iniciante", "prompt": "Você é um consultor...", "tags": []any{"vendas"}, "estimated_time": "10 min", "views": float64(3), "copies": float64(1), "is_active": true, "created_at": time.Now().UTC().Format(time.RFC3339), "updated_at": time.Now().UTC().Format(time.RFC3339)},
			},
			"profiles": {
				{"id": "u-admin", "email": "admin@easyscale.com", "name": "Admin", "role": "admin", "status": "ativo", "commands_used": float64(0), "created_at": time.Now().UTC().Format(time.RFC3339), "updated_at": time.Now().UTC().Format(time.RFC3339)},
			},
			"favorites":         {},
			"password_policies": {},
			"password_history":  {},
		},
	}
}

func (f *fakeSupabase) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/auth/v1/"):
			f.serveAuth(w, r)
		case strings.HasPrefix(r.URL.Path, "/rest/v1/"):
			f.serveRest(w, r)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func (f *fakeSupabase) serveAuth(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/auth/v1/")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case path == "token":
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "admin@easyscale.com" || req.Password != "Secret12" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error_description": "Invalid login credentials"})
			return
		}
		token := signToken("u-admin", req.Email)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  token,
			"refresh_token": "refresh-1",
			"expires_in":    3600,
			"user":          map[string]string{"id": "u-admin", "email": req.Email},
		})
	case path == "logout":
		w.WriteHeader(http.StatusNoContent)
	case path == "admin/users" && r.Method == http.MethodPost:
		var req struct {
			Email string `json:"email"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		f.seq++
		json.NewEncoder(w).Encode(map[string]string{
			"id":    fmt.Sprintf("u-created-%d", f.seq),
			"email": req.Email,
		})
	case strings.HasPrefix(path, "admin/users/") && r.Method == http.MethodPut:
		json.NewEncoder(w).Encode(map[string]string{})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeSupabase) serveRest(w http.ResponseWriter, r *http.Request) {
	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	rows, ok := f.tables[table]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	matches := func(row map[string]any) bool {
		for key, vals := range r.URL.Query() {
			if key == "order" || key == "limit" || key == "select" {
				continue
			}
			want, found := strings.CutPrefix(vals[0], "eq.")
			if !found {
				continue
			}
			if fmt.Sprint(row[key]) != want {
				return false
			}
		}
		return true
	}

	switch r.Method {
	case http.MethodGet:
		out := []map[string]any{}
		for _, row := range rows {
			if matches(row) {
				out = append(out, row)
			}
		}
		json.NewEncoder(w).Encode(out)
	case http.MethodPost:
		var row map[string]any
		json.NewDecoder(r.Body).Decode(&row)
		if _, ok := row["id"]; !ok {
			f.seq++
			row["id"] = fmt.Sprintf("%s-%d", table, f.seq)
		}
		now := time.Now().UTC().Format(time.RFC3339)
		row["created_at"] = now
		row["updated_at"] = now
		f.tables[table] = append(rows, row)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode([]map[string]any{row})
	case http.MethodPatch:
		var patch map[string]any
		json.NewDecoder(r.Body).Decode(&patch)
		for i, row := range rows {
			if matches(row) {
				for k, v := range patch {
					rows[i][k] = v
				}
			}
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		kept := []map[string]any{}
		for _, row := range rows {
			if !matches(row) {
				kept = append(kept, row)
			}
		}
		f.tables[table] = kept
		w.WriteHeader(http.StatusNoContent)
	}
}

func signToken(sub, email string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, _ := token.SignedString([]byte(jwtSecret))
	return signed
}

func buildRouter(t *testing.T, backendURL string) http.Handler {
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cb := resilience.NewCircuitBreaker("test")
	cfg := resilience.Config{InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	httpClient := &http.Client{Timeout: 5 * time.Second}

	client := supabase.NewClient(httpClient, backendURL, "anon-key", "service-key", cb, cfg, logger)

	users := service.NewUserContext(client, cache.New[[]domain.Profile](time.Minute), metrics, logger)
	commands := service.NewCommandContext(client, cache.New[[]domain.Command](time.Minute), metrics, logger)
	authSvc := service.NewAuthService(client, client, users, nil, metrics, logger)

	svcs := handler.Services{
		Auth:      authSvc,
		Commands:  commands,
		Users:     users,
		Favorites: service.NewFavoriteService(client, client, logger),
		Admin:     service.NewAdminService(client, client, client, users, nil, logger),
		Reports:   service.NewReportService(client, client, client, metrics, logger),
	}
	authMw := handler.NewAuthMiddleware(jwtSecret, authSvc, logger)
	return handler.NewRouter(svcs, authMw, metrics, logger)
}

func do(router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// TestIntegration_AdminFlow drives the full admin journey against a fake
// Supabase: login, catalog listing and mutation, counters, favorites, user
// provisioning and the dashboard overview.
func TestIntegration_AdminFlow(t *testing.T) {
	fake := newFakeSupabase()
	backend := httptest.NewServer(fake.handler(t))
	defer backend.Close()

	router := buildRouter(t, backend.URL)

	// --- Login ---
	rec := do(router, http.MethodPost, "/v1/auth/login", "", domain.LoginRequest{
		Email: "admin@easyscale.com", Password: "Secret12",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var login domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&login); err != nil {
		t.Fatalf("login: decode: %v", err)
	}
	if login.Profile == nil || login.Profile.Role != domain.RoleAdmin {
		t.Fatalf("login: expected admin profile, got %+v", login.Profile)
	}
	token := login.Session.AccessToken

	// --- Wrong password is rejected ---
	rec = do(router, http.MethodPost, "/v1/auth/login", "", domain.LoginRequest{
		Email: "admin@easyscale.com", Password: "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login: expected 401, got %d", rec.Code)
	}

	// --- Catalog listing ---
	rec = do(router, http.MethodGet, "/v1/commands", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list commands: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var commands []domain.Command
	json.NewDecoder(rec.Body).Decode(&commands)
	if len(commands) != 1 || commands[0].ID != "cmd-1" {
		t.Fatalf("list commands: expected seeded cmd-1, got %+v", commands)
	}

	// --- Create a command; the server row comes back with an id ---
	rec = do(router, http.MethodPost, "/v1/commands", token, domain.Command{
		Title:       "Análise SWOT",
		Description: "Matriz SWOT guiada",
		Category:    "Estratégia",
		Level:       domain.LevelAvancado,
		Prompt:      "Monte uma análise SWOT...",
		IsActive:    true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create command: expected 201, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var created domain.Command
	json.NewDecoder(rec.Body).Decode(&created)
	if created.ID == "" {
		t.Fatal("create command: expected server-assigned id")
	}

	// --- View counter ---
	rec = do(router, http.MethodPost, "/v1/commands/cmd-1/view", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("view: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var viewed domain.Command
	json.NewDecoder(rec.Body).Decode(&viewed)
	if viewed.Views != 4 {
		t.Errorf("view: expected 4 views, got %d", viewed.Views)
	}

	// --- Favorite toggle, on and off ---
	rec = do(router, http.MethodPut, "/v1/favorites/cmd-1", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("favorite: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var fav map[string]bool
	json.NewDecoder(rec.Body).Decode(&fav)
	if !fav["favorited"] {
		t.Error("favorite: expected favorited true")
	}
	rec = do(router, http.MethodPut, "/v1/favorites/cmd-1", token, nil)
	json.NewDecoder(rec.Body).Decode(&fav)
	if fav["favorited"] {
		t.Error("favorite: expected favorited false after second toggle")
	}

	// --- Provision a user through the legacy admin endpoint ---
	rec = do(router, http.MethodPost, "/api/admin/create-user", token, domain.CreateUserRequest{
		Email: "novo@easyscale.com", Password: "Abcdef12", Name: "Fulano",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create user: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var createdUser domain.CreateUserResponse
	json.NewDecoder(rec.Body).Decode(&createdUser)
	if !createdUser.Success || createdUser.UserID == "" {
		t.Fatalf("create user: unexpected payload %+v", createdUser)
	}
	if len(fake.tables["password_history"]) != 1 {
		t.Errorf("create user: expected password history entry, got %d", len(fake.tables["password_history"]))
	}

	// --- Weak password is rejected with the contract's failure shape ---
	rec = do(router, http.MethodPost, "/api/admin/create-user", token, domain.CreateUserRequest{
		Email: "outro@easyscale.com", Password: "123",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("weak password: expected 400, got %d", rec.Code)
	}
	var failure struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	json.NewDecoder(rec.Body).Decode(&failure)
	if failure.Success || failure.Error == "" {
		t.Errorf("weak password: unexpected payload %+v", failure)
	}

	// --- Dashboard overview sees everything done above ---
	rec = do(router, http.MethodGet, "/v1/reports/overview", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("overview: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var overview domain.Overview
	json.NewDecoder(rec.Body).Decode(&overview)
	if overview.TotalCommands != 2 {
		t.Errorf("overview: expected 2 commands, got %d", overview.TotalCommands)
	}
	if overview.TotalUsers != 2 {
		t.Errorf("overview: expected 2 users, got %d", overview.TotalUsers)
	}
	if overview.TotalViews < 4 {
		t.Errorf("overview: expected at least 4 views, got %d", overview.TotalViews)
	}
}

// TestIntegration_PasswordPolicyLifecycle saves a policy, validates against
// it and generates a conforming password over the API.
func TestIntegration_PasswordPolicyLifecycle(t *testing.T) {
	fake := newFakeSupabase()
	backend := httptest.NewServer(fake.handler(t))
	defer backend.Close()

	router := buildRouter(t, backend.URL)
	token := signToken("u-admin", "admin@easyscale.com")

	// Default policy served before anything is saved.
	rec := do(router, http.MethodGet, "/v1/settings/password-policy", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get policy: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var policy domain.PasswordPolicy
	json.NewDecoder(rec.Body).Decode(&policy)
	if policy.MinLength != 8 {
		t.Errorf("get policy: expected default min_length 8, got %d", policy.MinLength)
	}

	// Tighten it.
	policy.MinLength = 12
	policy.RequireSpecialChars = true
	policy.MinSpecialChars = 1
	rec = do(router, http.MethodPut, "/v1/settings/password-policy", token, policy)
	if rec.Code != http.StatusOK {
		t.Fatalf("put policy: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	// A password valid under the default now fails.
	rec = do(router, http.MethodPost, "/v1/settings/password-policy/validate", token,
		map[string]string{"password": "Abcdef12"})
	var result struct {
		Valid bool `json:"valid"`
	}
	json.NewDecoder(rec.Body).Decode(&result)
	if result.Valid {
		t.Error("validate: expected Abcdef12 to fail the tightened policy")
	}

	// Generation respects the saved policy.
	rec = do(router, http.MethodPost, "/v1/settings/password-policy/generate", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate: expected 200, got %d", rec.Code)
	}
	var generated map[string]string
	json.NewDecoder(rec.Body).Decode(&generated)
	if len(generated["password"]) < 12 {
		t.Errorf("generate: expected at least 12 chars, got %q", generated["password"])
	}
}
