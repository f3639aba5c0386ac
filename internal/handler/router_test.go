package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/easyscalepro/easyscale-api/internal/domain"
	"github.com/easyscalepro/easyscale-api/internal/handler"
	"github.com/easyscalepro/easyscale-api/internal/infra/cache"
	"github.com/easyscalepro/easyscale-api/internal/infra/observability"
	"github.com/easyscalepro/easyscale-api/internal/service"
)

const testJWTSecret = "test-secret"

// --- Mocks ---

type fakeStore struct {
	commands  []domain.Command
	profiles  []domain.Profile
	favorites []domain.Favorite
	policy    *domain.PasswordPolicy
	history   []domain.PasswordHistoryEntry
	session   *domain.Session
	signInErr error
}

func (f *fakeStore) ListCommands(_ context.Context, _ domain.CommandFilter) ([]domain.Command, error) {
	out := make([]domain.Command, len(f.commands))
	copy(out, f.commands)
	return out, nil
}

func (f *fakeStore) GetCommand(_ context.Context, id string) (*domain.Command, error) {
	for i := range f.commands {
		if f.commands[i].ID == id {
			cmd := f.commands[i]
			return &cmd, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "command", ID: id}
}

func (f *fakeStore) CreateCommand(_ context.Context, cmd *domain.Command) (*domain.Command, error) {
	created := *cmd
	created.ID = fmt.Sprintf("srv-%d", len(f.commands)+1)
	f.commands = append(f.commands, created)
	return &created, nil
}

func (f *fakeStore) UpdateCommand(_ context.Context, id string, patch domain.CommandPatch) (*domain.Command, error) {
	for i := range f.commands {
		if f.commands[i].ID == id {
			if patch.Title != nil {
				f.commands[i].Title = *patch.Title
			}
			cmd := f.commands[i]
			return &cmd, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "command", ID: id}
}

func (f *fakeStore) DeactivateCommand(_ context.Context, id string) error {
	for i := range f.commands {
		if f.commands[i].ID == id {
			f.commands[i].IsActive = false
			return nil
		}
	}
	return &domain.ErrNotFound{Resource: "command", ID: id}
}

func (f *fakeStore) IncrementViews(_ context.Context, id string) (*domain.Command, error) {
	for i := range f.commands {
		if f.commands[i].ID == id {
			f.commands[i].Views++
			cmd := f.commands[i]
			return &cmd, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "command", ID: id}
}

func (f *fakeStore) IncrementCopies(_ context.Context, id string) (*domain.Command, error) {
	for i := range f.commands {
		if f.commands[i].ID == id {
			f.commands[i].Copies++
			cmd := f.commands[i]
			return &cmd, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "command", ID: id}
}

func (f *fakeStore) ListProfiles(_ context.Context) ([]domain.Profile, error) {
	out := make([]domain.Profile, len(f.profiles))
	copy(out, f.profiles)
	return out, nil
}

func (f *fakeStore) GetProfile(_ context.Context, id string) (*domain.Profile, error) {
	for i := range f.profiles {
		if f.profiles[i].ID == id {
			p := f.profiles[i]
			return &p, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "profile", ID: id}
}

func (f *fakeStore) GetProfileByEmail(_ context.Context, email string) (*domain.Profile, error) {
	for i := range f.profiles {
		if f.profiles[i].Email == email {
			p := f.profiles[i]
			return &p, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "profile", ID: email}
}

func (f *fakeStore) CreateProfile(_ context.Context, p *domain.Profile) (*domain.Profile, error) {
	created := *p
	f.profiles = append(f.profiles, created)
	return &created, nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, id string, patch domain.ProfilePatch) (*domain.Profile, error) {
	for i := range f.profiles {
		if f.profiles[i].ID == id {
			if patch.Status != nil {
				f.profiles[i].Status = *patch.Status
			}
			if patch.Role != nil {
				f.profiles[i].Role = *patch.Role
			}
			p := f.profiles[i]
			return &p, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "profile", ID: id}
}

func (f *fakeStore) DeactivateProfile(_ context.Context, id string) error {
	for i := range f.profiles {
		if f.profiles[i].ID == id {
			f.profiles[i].Status = domain.StatusInativo
			return nil
		}
	}
	return &domain.ErrNotFound{Resource: "profile", ID: id}
}

func (f *fakeStore) IncrementCommandsUsed(_ context.Context, id string) (*domain.Profile, error) {
	for i := range f.profiles {
		if f.profiles[i].ID == id {
			f.profiles[i].CommandsUsed++
			p := f.profiles[i]
			return &p, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "profile", ID: id}
}

func (f *fakeStore) TouchLastAccess(_ context.Context, _ string) error { return nil }

func (f *fakeStore) ListFavorites(_ context.Context, userID string) ([]domain.Favorite, error) {
	out := []domain.Favorite{}
	for _, fav := range f.favorites {
		if fav.UserID == userID {
			out = append(out, fav)
		}
	}
	return out, nil
}

func (f *fakeStore) CountFavorites(_ context.Context) (int, error) { return len(f.favorites), nil }

func (f *fakeStore) CreateFavorite(_ context.Context, userID, commandID string) (*domain.Favorite, error) {
	fav := domain.Favorite{ID: "fav-1", UserID: userID, CommandID: commandID}
	f.favorites = append(f.favorites, fav)
	return &fav, nil
}

func (f *fakeStore) DeleteFavorite(_ context.Context, userID, commandID string) error {
	for i, fav := range f.favorites {
		if fav.UserID == userID && fav.CommandID == commandID {
			f.favorites = append(f.favorites[:i], f.favorites[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeStore) ActivePolicy(_ context.Context) (*domain.PasswordPolicy, error) {
	if f.policy == nil {
		return nil, &domain.ErrNotFound{Resource: "password_policy", ID: "active"}
	}
	p := *f.policy
	return &p, nil
}

func (f *fakeStore) UpsertPolicy(_ context.Context, policy *domain.PasswordPolicy) (*domain.PasswordPolicy, error) {
	saved := *policy
	saved.ID = "pol-1"
	f.policy = &saved
	return &saved, nil
}

func (f *fakeStore) ListPasswordHistory(_ context.Context, userID string, limit int) ([]domain.PasswordHistoryEntry, error) {
	out := []domain.PasswordHistoryEntry{}
	for _, e := range f.history {
		if e.UserID == userID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) AppendPasswordHistory(_ context.Context, userID, hash string) error {
	f.history = append(f.history, domain.PasswordHistoryEntry{UserID: userID, PasswordHash: hash})
	return nil
}

func (f *fakeStore) SignIn(_ context.Context, _, _ string) (*domain.Session, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return f.session, nil
}

func (f *fakeStore) SignOut(_ context.Context, _ string) error { return nil }

func (f *fakeStore) AdminCreateUser(_ context.Context, _, _ string) (string, error) {
	return "u-created", nil
}

func (f *fakeStore) AdminSetPassword(_ context.Context, _, _ string) error { return nil }

// --- Setup ---

func defaultStore() *fakeStore {
	return &fakeStore{
		commands: []domain.Command{
			{ID: "cmd-1", Title: "Plano de marketing", Category: "Marketing", Level: domain.LevelIniciante, IsActive: true, Views: 10},
			{ID: "cmd-2", Title: "Post antigo", Category: "Marketing", Level: domain.LevelIniciante, IsActive: false},
		},
		profiles: []domain.Profile{
			{ID: "u-user", Email: "ana@acme.com", Role: domain.RoleUser, Status: domain.StatusAtivo},
			{ID: "u-admin", Email: "chefe@acme.com", Role: domain.RoleAdmin, Status: domain.StatusAtivo},
			{ID: "u-blocked", Email: "ex@acme.com", Role: domain.RoleUser, Status: domain.StatusInativo},
		},
	}
}

func newTestRouter(store *fakeStore) http.Handler {
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	users := service.NewUserContext(store, cache.New[[]domain.Profile](time.Minute), metrics, logger)
	commands := service.NewCommandContext(store, cache.New[[]domain.Command](time.Minute), metrics, logger)
	authSvc := service.NewAuthService(store, store, users, nil, metrics, logger)

	svcs := handler.Services{
		Auth:      authSvc,
		Commands:  commands,
		Users:     users,
		Favorites: service.NewFavoriteService(store, store, logger),
		Admin:     service.NewAdminService(store, store, store, users, nil, logger),
		Reports:   service.NewReportService(store, store, store, metrics, logger),
	}
	authMw := handler.NewAuthMiddleware(testJWTSecret, authSvc, logger)
	return handler.NewRouter(svcs, authMw, metrics, logger)
}

func mintToken(t *testing.T, sub, email string, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"exp":   time.Now().Add(ttl).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func doRequest(router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewReader(b)
	} else {
		reqBody = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reqBody)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestHealthz(t *testing.T) {
	router := newTestRouter(defaultStore())

	rec := doRequest(router, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(defaultStore())

	rec := doRequest(router, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestLogin_Success(t *testing.T) {
	store := defaultStore()
	store.session = &domain.Session{AccessToken: "tok", UserID: "u-user", Email: "ana@acme.com"}
	router := newTestRouter(store)

	rec := doRequest(router, http.MethodPost, "/v1/auth/login", "", domain.LoginRequest{
		Email: "ana@acme.com", Password: "Abcdef12",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp domain.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Profile == nil || resp.Profile.ID != "u-user" {
		t.Errorf("expected profile u-user, got %+v", resp.Profile)
	}
}

func TestLogin_BlockedAccount(t *testing.T) {
	store := defaultStore()
	store.session = &domain.Session{AccessToken: "tok", UserID: "u-blocked", Email: "ex@acme.com"}
	router := newTestRouter(store)

	rec := doRequest(router, http.MethodPost, "/v1/auth/login", "", domain.LoginRequest{
		Email: "ex@acme.com", Password: "Abcdef12",
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for blocked account, got %d", rec.Code)
	}
}

func TestCommands_RequireAuth(t *testing.T) {
	router := newTestRouter(defaultStore())

	rec := doRequest(router, http.MethodGet, "/v1/commands", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	rec = doRequest(router, http.MethodGet, "/v1/commands", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for garbage token, got %d", rec.Code)
	}
}

func TestCommands_ExpiredToken(t *testing.T) {
	router := newTestRouter(defaultStore())

	token := mintToken(t, "u-user", "ana@acme.com", -time.Minute)
	rec := doRequest(router, http.MethodGet, "/v1/commands", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for expired token, got %d", rec.Code)
	}
}

func TestCommands_ListActiveOnly(t *testing.T) {
	router := newTestRouter(defaultStore())

	token := mintToken(t, "u-user", "ana@acme.com", time.Hour)
	rec := doRequest(router, http.MethodGet, "/v1/commands", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var rows []domain.Command
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "cmd-1" {
		t.Errorf("expected only active cmd-1, got %+v", rows)
	}
}

func TestCommands_ViewAndCopy(t *testing.T) {
	store := defaultStore()
	router := newTestRouter(store)
	token := mintToken(t, "u-user", "ana@acme.com", time.Hour)

	rec := doRequest(router, http.MethodPost, "/v1/commands/cmd-1/view", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var cmd domain.Command
	json.Unmarshal(rec.Body.Bytes(), &cmd)
	if cmd.Views != 11 {
		t.Errorf("expected views 11, got %d", cmd.Views)
	}

	rec = doRequest(router, http.MethodPost, "/v1/commands/cmd-1/copy", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.profiles[0].CommandsUsed != 1 {
		t.Errorf("expected commands_used 1 for u-user, got %d", store.profiles[0].CommandsUsed)
	}
}

func TestFavorites_Toggle(t *testing.T) {
	router := newTestRouter(defaultStore())
	token := mintToken(t, "u-user", "ana@acme.com", time.Hour)

	rec := doRequest(router, http.MethodPut, "/v1/favorites/cmd-1", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]bool
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp["favorited"] {
		t.Error("expected favorited true")
	}

	rec = doRequest(router, http.MethodPut, "/v1/favorites/cmd-1", token, nil)
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["favorited"] {
		t.Error("expected favorited false after second toggle")
	}
}

func TestAdminRoutes_ForbiddenForUserRole(t *testing.T) {
	router := newTestRouter(defaultStore())
	token := mintToken(t, "u-user", "ana@acme.com", time.Hour)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/v1/commands"},
		{http.MethodGet, "/v1/users"},
		{http.MethodGet, "/v1/reports/overview"},
		{http.MethodPost, "/api/admin/create-user"},
	} {
		rec := doRequest(router, route.method, route.path, token, map[string]string{})
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s %s: expected 403 for user role, got %d", route.method, route.path, rec.Code)
		}

		var resp map[string]string
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp["error"] != "Acesso negado" {
			t.Errorf("%s %s: expected 'Acesso negado', got %q", route.method, route.path, resp["error"])
		}
	}
}

func TestAdmin_CreateCommand(t *testing.T) {
	router := newTestRouter(defaultStore())
	token := mintToken(t, "u-admin", "chefe@acme.com", time.Hour)

	rec := doRequest(router, http.MethodPost, "/v1/commands", token, domain.Command{
		Title: "Novo comando", Prompt: "Você é um consultor...", Level: domain.LevelIniciante,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created domain.Command
	json.Unmarshal(rec.Body.Bytes(), &created)
	if created.ID == "" {
		t.Error("expected server-assigned id")
	}
}

func TestAdmin_CreateCommand_MissingTitle(t *testing.T) {
	router := newTestRouter(defaultStore())
	token := mintToken(t, "u-admin", "chefe@acme.com", time.Hour)

	rec := doRequest(router, http.MethodPost, "/v1/commands", token, domain.Command{Prompt: "x"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAdmin_DeleteUser_SelfForbidden(t *testing.T) {
	router := newTestRouter(defaultStore())
	token := mintToken(t, "u-admin", "chefe@acme.com", time.Hour)

	rec := doRequest(router, http.MethodDelete, "/v1/users/u-admin", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 deleting own account, got %d", rec.Code)
	}
}

func TestAdmin_CreateUser_Contract(t *testing.T) {
	router := newTestRouter(defaultStore())
	token := mintToken(t, "u-admin", "chefe@acme.com", time.Hour)

	rec := doRequest(router, http.MethodPost, "/api/admin/create-user", token, domain.CreateUserRequest{
		Email: "novo@acme.com", Password: "Abcdef12", Name: "Fulano",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp domain.CreateUserResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Success || resp.UserID != "u-created" || resp.Email != "novo@acme.com" {
		t.Errorf("unexpected contract payload: %+v", resp)
	}
}

func TestAdmin_CreateUser_WeakPassword(t *testing.T) {
	router := newTestRouter(defaultStore())
	token := mintToken(t, "u-admin", "chefe@acme.com", time.Hour)

	rec := doRequest(router, http.MethodPost, "/api/admin/create-user", token, domain.CreateUserRequest{
		Email: "novo@acme.com", Password: "abc",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Success {
		t.Error("expected success false")
	}
	if resp.Error == "" {
		t.Error("expected error message")
	}
}

func TestAdmin_PolicyValidateAndGenerate(t *testing.T) {
	router := newTestRouter(defaultStore())
	token := mintToken(t, "u-admin", "chefe@acme.com", time.Hour)

	rec := doRequest(router, http.MethodPost, "/v1/settings/password-policy/validate", token,
		map[string]string{"password": "abc"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var result struct {
		Valid  bool     `json:"valid"`
		Errors []string `json:"errors"`
	}
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result.Valid {
		t.Error("expected invalid for 'abc'")
	}
	if len(result.Errors) == 0 {
		t.Error("expected violations listed")
	}

	rec = doRequest(router, http.MethodPost, "/v1/settings/password-policy/generate", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var generated map[string]string
	json.Unmarshal(rec.Body.Bytes(), &generated)
	if generated["password"] == "" {
		t.Error("expected generated password")
	}
}

func TestAdmin_ReportsOverview(t *testing.T) {
	router := newTestRouter(defaultStore())
	token := mintToken(t, "u-admin", "chefe@acme.com", time.Hour)

	rec := doRequest(router, http.MethodGet, "/v1/reports/overview", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var overview domain.Overview
	json.Unmarshal(rec.Body.Bytes(), &overview)
	if overview.TotalUsers != 3 {
		t.Errorf("expected 3 users, got %d", overview.TotalUsers)
	}
	if overview.TotalCommands != 2 || overview.ActiveCommands != 1 {
		t.Errorf("expected 2 commands / 1 active, got %d/%d", overview.TotalCommands, overview.ActiveCommands)
	}
}

func TestSessionEndpoint(t *testing.T) {
	router := newTestRouter(defaultStore())
	token := mintToken(t, "u-user", "ana@acme.com", time.Hour)

	rec := doRequest(router, http.MethodGet, "/v1/auth/session", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp domain.LoginResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Session == nil || resp.Session.UserID != "u-user" {
		t.Errorf("expected session for u-user, got %+v", resp.Session)
	}
	if resp.Profile == nil || resp.Profile.Email != "ana@acme.com" {
		t.Errorf("expected profile in session payload, got %+v", resp.Profile)
	}
}
