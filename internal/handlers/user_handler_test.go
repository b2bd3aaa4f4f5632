package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Intruder289/maishaap-backend-sub002/internal/config"
	"github.com/Intruder289/maishaap-backend-sub002/internal/middleware"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/repository"
	"github.com/Intruder289/maishaap-backend-sub002/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type mockUserRepo struct {
	repository.UserRepository
	users     map[string]*models.User
	created   []*models.User
	lastQuery *repository.ListQuery
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if _, ok := m.users[user.Email]; ok {
		return repository.ErrEmailTaken
	}
	user.ID = uint(len(m.created) + 10)
	m.created = append(m.created, user)
	return nil
}

func (m *mockUserRepo) List(ctx context.Context, query *repository.ListQuery) ([]models.User, int64, error) {
	m.lastQuery = query
	return []models.User{{ID: 1, Email: "staff@example.com", Role: models.RoleStaff, Status: models.StatusActive}}, 1, nil
}

type mockAuditRepo struct {
	repository.AuditRepository
	entries []*models.AuditLog
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	m.entries = append(m.entries, entry)
	return nil
}

// as installs a fixed identity ahead of the handler.
func as(v models.Viewer) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetViewer(c, v)
		c.Next()
	}
}

func newUserRouter(repo *mockUserRepo, audit *mockAuditRepo, viewer models.Viewer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := services.NewUserService(repo, nil, nil, services.NewAuditService(audit))
	auth := services.NewAuthService(repo, nil, &config.Config{SecretKey: "test"})
	users := NewUserHandler(svc)
	login := NewAuthHandler(auth)

	r := gin.New()
	r.POST("/auth/login", login.Login)
	r.GET("/users", as(viewer), users.Index)
	r.POST("/users", as(viewer), users.Create)
	return r
}

func postJSON(r http.Handler, path string, payload any) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUserHandler_Create(t *testing.T) {
	staff := models.Viewer{UserID: 1, Role: models.RoleStaff}

	tests := []struct {
		name    string
		viewer  models.Viewer
		payload map[string]any
		status  int
		code    string
		field   string
	}{
		{
			name:   "nested payload",
			viewer: staff,
			payload: map[string]any{"user": map[string]any{
				"email": "Owner@Example.com", "password": "password123", "first_name": "Neema", "role": models.RoleOwner,
			}},
			status: http.StatusCreated,
		},
		{
			name:    "flat payload",
			viewer:  staff,
			payload: map[string]any{"email": "tenant@example.com", "password": "password123", "role": models.RoleTenant},
			status:  http.StatusCreated,
		},
		{
			name:    "unknown role",
			viewer:  staff,
			payload: map[string]any{"email": "x@example.com", "password": "password123", "role": "seller"},
			status:  http.StatusBadRequest,
			code:    "validation_error",
			field:   "role",
		},
		{
			name:    "short password",
			viewer:  staff,
			payload: map[string]any{"email": "x@example.com", "password": "short", "role": models.RoleTenant},
			status:  http.StatusBadRequest,
			code:    "validation_error",
			field:   "password",
		},
		{
			name:    "taken email",
			viewer:  staff,
			payload: map[string]any{"email": "taken@example.com", "password": "password123", "role": models.RoleTenant},
			status:  http.StatusBadRequest,
			code:    "validation_error",
			field:   "email",
		},
		{
			name:    "owner cannot create accounts",
			viewer:  models.Viewer{UserID: 2, Role: models.RoleOwner},
			payload: map[string]any{"email": "y@example.com", "password": "password123", "role": models.RoleTenant},
			status:  http.StatusForbidden,
			code:    "permission_denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockUserRepo{users: map[string]*models.User{"taken@example.com": {ID: 3}}}
			audit := &mockAuditRepo{}
			w := postJSON(newUserRouter(repo, audit, tt.viewer), "/users", tt.payload)

			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status == http.StatusCreated {
				var body struct {
					User models.UserResponse `json:"user"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.NotZero(t, body.User.ID)
				require.Len(t, repo.created, 1)
				assert.NotEqual(t, "password123", repo.created[0].PasswordHash)
				assert.Len(t, audit.entries, 1)
				return
			}

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error)
			if tt.field != "" {
				assert.Equal(t, tt.field, body.Details["field"])
			}
			assert.Empty(t, repo.created)
		})
	}
}

func TestUserHandler_IndexStatusFilter(t *testing.T) {
	repo := &mockUserRepo{}
	r := newUserRouter(repo, &mockAuditRepo{}, models.Viewer{UserID: 1, Role: models.RoleStaff})

	for url, want := range map[string]string{
		"/users":                 models.StatusActive,
		"/users?status=all":      "",
		"/users?status=inactive": "inactive",
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, want, repo.lastQuery.Filter("status"), url)
	}
	assert.Contains(t, httptestBody(t, r, "/users?role=staff"), `"total":1`)
	assert.Equal(t, models.RoleStaff, repo.lastQuery.Filter("role"))
}

func httptestBody(t *testing.T, r http.Handler, url string) string {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestAuthHandler_LoginFailures(t *testing.T) {
	hash, err := services.HashPassword("password123")
	require.NoError(t, err)
	repo := &mockUserRepo{users: map[string]*models.User{
		"active@example.com":    {ID: 1, Email: "active@example.com", PasswordHash: hash, Status: models.StatusActive},
		"suspended@example.com": {ID: 2, Email: "suspended@example.com", PasswordHash: hash, Status: models.StatusInactive},
	}}
	r := newUserRouter(repo, &mockAuditRepo{}, models.Viewer{})

	tests := []struct {
		name    string
		payload map[string]any
		status  int
	}{
		{"missing password", map[string]any{"email": "active@example.com"}, http.StatusBadRequest},
		{"unknown email", map[string]any{"email": "nobody@example.com", "password": "password123"}, http.StatusUnauthorized},
		{"wrong password", map[string]any{"email": "active@example.com", "password": "nope-nope"}, http.StatusUnauthorized},
		{"suspended", map[string]any{"email": "suspended@example.com", "password": "password123"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(r, "/auth/login", tt.payload)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}
