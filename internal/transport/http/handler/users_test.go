package handler

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rewear-api/internal/config"
	"github.com/rewear-api/internal/domain"
	jwtinfra "github.com/rewear-api/internal/infrastructure/jwt"
	"github.com/rewear-api/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockUserSvc struct{ mock.Mock }

func (m *mockUserSvc) Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, string, string, error) {
	args := m.Called(ctx, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.String(1), args.String(2), args.Error(3)
	}
	return nil, "", "", args.Error(3)
}
func (m *mockUserSvc) Signin(ctx context.Context, req domain.SigninRequest) (*domain.User, string, string, error) {
	args := m.Called(ctx, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.String(1), args.String(2), args.Error(3)
	}
	return nil, "", "", args.Error(3)
}
func (m *mockUserSvc) Signout(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}
func (m *mockUserSvc) Refresh(ctx context.Context, userID, refreshToken string) (string, error) {
	args := m.Called(ctx, userID, refreshToken)
	return args.String(0), args.Error(1)
}
func (m *mockUserSvc) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserSvc) Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	args := m.Called(ctx, userID, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

// newTestJWTProvider generates a fresh RSA key pair and returns a *jwtinfra.Provider.
func newTestJWTProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	p, err := jwtinfra.NewProvider(&config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		JWTExpiry:         time.Hour,
	})
	require.NoError(t, err)
	return p
}

// --- Signup tests ---

func TestSignupHandler_InvalidBody(t *testing.T) {
	h := NewUserHandler(&mockUserSvc{})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", bytes.NewBufferString("not-json"))
	rr := httptest.NewRecorder()
	h.Signup(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSignupHandler_DuplicateEmail(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Signup", mock.Anything, mock.Anything).Return(nil, "", "", domain.ErrConflict)
	h := NewUserHandler(svc)

	body, _ := json.Marshal(domain.SignupRequest{
		Fullname: "Alice Smith", Email: "alice@example.com",
		Password: "hunter22", ConfirmPassword: "hunter22",
	})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Signup(rr, r)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestSignupHandler_HappyPath(t *testing.T) {
	svc := &mockUserSvc{}
	u := &domain.User{UserID: "u1", Fullname: "Alice Smith", Points: domain.RegistrationBonus}
	svc.On("Signup", mock.Anything, mock.Anything).Return(u, "bearer", "refresh", nil)
	h := NewUserHandler(svc)

	body, _ := json.Marshal(domain.SignupRequest{
		Fullname: "Alice Smith", Email: "alice@example.com",
		Password: "hunter22", ConfirmPassword: "hunter22",
	})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Signup(rr, r)

	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp AuthEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "bearer", resp.Bearer)
	assert.Equal(t, domain.RegistrationBonus, resp.User.Points)
	svc.AssertExpectations(t)
}

// --- Me tests ---

func TestMe_MissingClaims(t *testing.T) {
	h := NewUserHandler(&mockUserSvc{})
	r := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
	rr := httptest.NewRecorder()
	h.Me(rr, r)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMe_WithBearerToken(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockUserSvc{}
	u := &domain.User{UserID: "u1", Fullname: "Alice Smith", Points: 35}
	svc.On("Get", mock.Anything, "u1").Return(u, nil)
	h := NewUserHandler(svc)

	token, err := p.Sign("u1", "alice@example.com", false)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	middleware.Auth(p)(http.HandlerFunc(h.Me)).ServeHTTP(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp domain.User
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 35, resp.Points)
	svc.AssertExpectations(t)
}

func TestMe_InvalidToken(t *testing.T) {
	p := newTestJWTProvider(t)
	h := NewUserHandler(&mockUserSvc{})

	r := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
	r.Header.Set("Authorization", "Bearer not-a-token")
	rr := httptest.NewRecorder()
	middleware.Auth(p)(http.HandlerFunc(h.Me)).ServeHTTP(rr, r)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// --- Refresh tests ---

func TestRefreshHandler_HappyPath(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Refresh", mock.Anything, "u1", "refresh-1").Return("bearer-2", nil)
	h := NewUserHandler(svc)

	body, _ := json.Marshal(map[string]string{"user_id": "u1", "refresh_token": "refresh-1"})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Refresh(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp AuthEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "bearer-2", resp.Bearer)
}

func TestRefreshHandler_StaleToken(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Refresh", mock.Anything, "u1", "stolen").Return("", domain.ErrUnauthorized)
	h := NewUserHandler(svc)

	body, _ := json.Marshal(map[string]string{"user_id": "u1", "refresh_token": "stolen"})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Refresh(rr, r)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
