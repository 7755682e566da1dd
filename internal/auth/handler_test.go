package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	mux    *http.ServeMux
	store  *memUserStore
	tokens *TokenManager
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	svc, store, tokens := newTestService(t)
	h := NewHandler(svc)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users/register", h.Register)
	mux.HandleFunc("POST /api/users/login", h.Login)
	mux.HandleFunc("POST /api/users/refresh", h.Refresh)
	mux.HandleFunc("POST /api/users/logout", h.Logout)
	mux.Handle("GET /api/user/info", Middleware(svc, http.HandlerFunc(h.Info)))
	mux.Handle("GET /api/users/{id}", Middleware(svc, http.HandlerFunc(h.UserByID)))

	return &testAPI{mux: mux, store: store, tokens: tokens}
}

func (a *testAPI) do(t *testing.T, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) raw(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAPI_SessionLifecycle(t *testing.T) {
	api := newTestAPI(t)
	creds := map[string]string{"name": "A", "email": "a@x.com", "password": "p1"}

	rec := api.do(t, http.MethodPost, "/api/users/register", creds, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "User created successfully", body["message"])
	created := body["userCreated"].(map[string]any)
	assert.Equal(t, "a@x.com", created["email"])
	assert.NotContains(t, created, "password")

	rec = api.do(t, http.MethodPost, "/api/users/register", creds, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists", decodeBody(t, rec)["message"])

	rec = api.do(t, http.MethodPost, "/api/users/login", map[string]string{"email": "a@x.com", "password": "p1"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	user := decodeBody(t, rec)["user"].(map[string]any)
	assert.Equal(t, "A", user["name"])
	assert.Equal(t, created["id"], user["id"])
	accessToken := user["accessToken"].(string)
	refreshToken := user["refreshToken"].(string)
	require.NotEmpty(t, accessToken)
	require.NotEmpty(t, refreshToken)

	rec = api.do(t, http.MethodPost, "/api/users/refresh", map[string]string{"refreshToken": refreshToken}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	newAccess := decodeBody(t, rec)["accessToken"].(string)
	_, err := api.tokens.VerifyAccessToken(newAccess)
	require.NoError(t, err)

	rec = api.do(t, http.MethodPost, "/api/users/logout", map[string]string{"refreshToken": refreshToken}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged out successfully", decodeBody(t, rec)["message"])

	rec = api.do(t, http.MethodPost, "/api/users/refresh", map[string]string{"refreshToken": refreshToken}, "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Invalid refresh token", decodeBody(t, rec)["message"])

	rec = api.do(t, http.MethodPost, "/api/users/logout", map[string]string{"refreshToken": refreshToken}, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestAPI_Register_Errors(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/users/register", map[string]string{"email": "a@x.com"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Name, email and password are required", decodeBody(t, rec)["message"])

	rec = api.do(t, http.MethodPost, "/api/users/register", map[string]string{"name": "A", "role": "admin"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Name, email and password are required", decodeBody(t, rec)["message"])

	rec = api.do(t, http.MethodPost, "/api/users/register",
		map[string]string{"name": "A", "email": "a@x.com", "password": "p1", "confirm": "p1"}, "")
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = api.raw(t, http.MethodPost, "/api/users/register", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON body", decodeBody(t, rec)["message"])
}

func TestAPI_Login_Errors(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodPost, "/api/users/register", map[string]string{"name": "A", "email": "a@x.com", "password": "p1"}, "")

	tests := []struct {
		name string
		body map[string]string
		code int
		msg  string
	}{
		{"unknown user", map[string]string{"email": "ghost@x.com", "password": "p1"}, http.StatusBadRequest, "User not found"},
		{"missing password", map[string]string{"email": "a@x.com"}, http.StatusBadRequest, "Email and password are required"},
		{"wrong password", map[string]string{"email": "a@x.com", "password": "nope"}, http.StatusBadRequest, "Invalid credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/users/login", tt.body, "")
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.msg, decodeBody(t, rec)["message"])
		})
	}

	api.store.failGet = errStoreDown
	rec := api.do(t, http.MethodPost, "/api/users/login", map[string]string{"email": "a@x.com", "password": "p1"}, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decodeBody(t, rec)["message"])
}

func TestAPI_Refresh_Errors(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/users/refresh", map[string]string{}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Refresh token missing", decodeBody(t, rec)["message"])

	rec = api.do(t, http.MethodPost, "/api/users/refresh", map[string]string{"refreshToken": "garbage"}, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Invalid or expired refresh token", decodeBody(t, rec)["message"])
}

func TestAPI_Refresh_EmptyOrExtendedBody(t *testing.T) {
	api := newTestAPI(t)

	rec := api.raw(t, http.MethodPost, "/api/users/refresh", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Refresh token missing", decodeBody(t, rec)["message"])

	rec = api.raw(t, http.MethodPost, "/api/users/refresh", `{"deviceId":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.raw(t, http.MethodPost, "/api/users/refresh", `{"refreshToken":"abc","deviceId":"x"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Invalid or expired refresh token", decodeBody(t, rec)["message"])
}

func TestAPI_Logout_Missing(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/users/logout", map[string]string{}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Refresh token missing", decodeBody(t, rec)["message"])

	rec = api.raw(t, http.MethodPost, "/api/users/logout", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Refresh token missing", decodeBody(t, rec)["message"])
}

func TestAPI_SecondLoginInvalidatesFirstOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodPost, "/api/users/register", map[string]string{"name": "A", "email": "a@x.com", "password": "p1"}, "")
	login := map[string]string{"email": "a@x.com", "password": "p1"}

	first := decodeBody(t, api.do(t, http.MethodPost, "/api/users/login", login, ""))["user"].(map[string]any)
	api.do(t, http.MethodPost, "/api/users/login", login, "")

	rec := api.do(t, http.MethodPost, "/api/users/refresh", map[string]string{"refreshToken": first["refreshToken"].(string)}, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPI_UserInfo(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodPost, "/api/users/register", map[string]string{"name": "A", "email": "a@x.com", "password": "p1"}, "")
	user := decodeBody(t, api.do(t, http.MethodPost, "/api/users/login", map[string]string{"email": "a@x.com", "password": "p1"}, ""))["user"].(map[string]any)
	accessToken := user["accessToken"].(string)

	rec := api.do(t, http.MethodGet, "/api/user/info", nil, accessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"name": "A", "email": "a@x.com", "id": user["id"]}, decodeBody(t, rec))

	rec = api.do(t, http.MethodGet, "/api/user/info", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Access denied. No token provided.", decodeBody(t, rec)["message"])

	rec = api.do(t, http.MethodGet, "/api/user/info", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", decodeBody(t, rec)["message"])

	ghost, err := api.tokens.IssueAccessToken(User{ID: "ghost", Email: "g@x.com"})
	require.NoError(t, err)
	rec = api.do(t, http.MethodGet, "/api/user/info", nil, ghost)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decodeBody(t, rec)["message"])
}

func TestAPI_UserByID_RejectsOtherIdentity(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodPost, "/api/users/register", map[string]string{"name": "A", "email": "a@x.com", "password": "p1"}, "")
	api.do(t, http.MethodPost, "/api/users/register", map[string]string{"name": "B", "email": "b@x.com", "password": "p2"}, "")

	a := decodeBody(t, api.do(t, http.MethodPost, "/api/users/login", map[string]string{"email": "a@x.com", "password": "p1"}, ""))["user"].(map[string]any)
	b := decodeBody(t, api.do(t, http.MethodPost, "/api/users/login", map[string]string{"email": "b@x.com", "password": "p2"}, ""))["user"].(map[string]any)

	rec := api.do(t, http.MethodGet, "/api/users/"+a["id"].(string), nil, a["accessToken"].(string))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@x.com", decodeBody(t, rec)["email"])

	rec = api.do(t, http.MethodGet, "/api/users/"+a["id"].(string), nil, b["accessToken"].(string))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden", decodeBody(t, rec)["message"])
}
