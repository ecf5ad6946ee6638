package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"devconnect/internal/app"
	"devconnect/internal/model"
	"devconnect/internal/transport/http/middleware"
)

const testSecret = "devconnect-handler-test-secret"

// memUserStore is an in-memory app.UserStore for handler tests.
type memUserStore struct {
	users map[primitive.ObjectID]*model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[primitive.ObjectID]*model.User)}
}

func (m *memUserStore) Create(_ context.Context, user *model.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *memUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *memUserStore) GetByID(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	clone := *user
	return &clone, nil
}

func (m *memUserStore) Delete(_ context.Context, id primitive.ObjectID) error {
	delete(m.users, id)
	return nil
}

func newAuthTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	authService := app.NewAuthService(newMemUserStore(), testSecret, time.Hour)
	authHandler := NewAuthHandler(authService)

	router := gin.New()
	router.POST("/api/users", authHandler.Register)
	router.POST("/api/auth", authHandler.Login)
	router.GET("/api/auth", middleware.Auth(testSecret), authHandler.Me)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterThenFetchCurrentUser(t *testing.T) {
	router := newAuthTestRouter()

	rec := postJSON(router, "/api/users", `{"name":"A","email":"a@x.com","password":"abcd1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("register status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var registered struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &registered); err != nil {
		t.Fatalf("decode register response failed: %v", err)
	}
	if registered.Token == "" {
		t.Fatal("register returned no token")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth", nil)
	req.Header.Set(middleware.TokenHeader, registered.Token)
	meRec := httptest.NewRecorder()
	router.ServeHTTP(meRec, req)

	if meRec.Code != http.StatusOK {
		t.Fatalf("me status = %d, body = %s", meRec.Code, meRec.Body.String())
	}

	var me map[string]any
	if err := json.Unmarshal(meRec.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me response failed: %v", err)
	}
	if me["name"] != "A" || me["email"] != "a@x.com" {
		t.Errorf("me = %v, want name A email a@x.com", me)
	}
	if _, leaked := me["password"]; leaked {
		t.Error("me response contains a password field")
	}
	if strings.Contains(meRec.Body.String(), "abcd1") {
		t.Error("me response leaks the plaintext password")
	}
}

func TestRegisterValidationAndDuplicates(t *testing.T) {
	router := newAuthTestRouter()

	if rec := postJSON(router, "/api/users", `{"name":"A","email":"a@x.com","password":"abcdef"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("password without digit: status = %d, want 400", rec.Code)
	}
	if rec := postJSON(router, "/api/users", `{"name":"A","email":"not-an-email","password":"abcd1"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad email: status = %d, want 400", rec.Code)
	}

	if rec := postJSON(router, "/api/users", `{"name":"A","email":"a@x.com","password":"abcd1"}`); rec.Code != http.StatusOK {
		t.Fatalf("register status = %d", rec.Code)
	}
	rec := postJSON(router, "/api/users", `{"name":"B","email":"a@x.com","password":"efgh2"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "User already exists") {
		t.Errorf("duplicate register body = %s, want duplicate-user message", rec.Body.String())
	}
}

func TestLoginEndpoint(t *testing.T) {
	router := newAuthTestRouter()

	if rec := postJSON(router, "/api/users", `{"name":"A","email":"a@x.com","password":"abcd1"}`); rec.Code != http.StatusOK {
		t.Fatalf("register status = %d", rec.Code)
	}

	rec := postJSON(router, "/api/auth", `{"email":"a@x.com","password":"abcd1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "token") {
		t.Errorf("login body = %s, want a token", rec.Body.String())
	}

	rec = postJSON(router, "/api/auth", `{"email":"a@x.com","password":"wrong9"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad login status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid credentials") {
		t.Errorf("bad login body = %s, want invalid-credentials message", rec.Body.String())
	}
}
