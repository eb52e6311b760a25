package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/site-reservation/internal/config"
	"github.com/iliyamo/site-reservation/internal/model"
	"github.com/iliyamo/site-reservation/internal/repository"
	"github.com/iliyamo/site-reservation/internal/utils"
)

type memUsers struct {
	byID map[uint64]model.User
	next uint64
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uint64]model.User{}} }

func (m *memUsers) Create(_ context.Context, username, email, password, role string, cost int) (uint64, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
		if u.Username == username {
			return 0, repository.ErrUsernameExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	m.next++
	m.byID[m.next] = model.User{ID: m.next, Username: username, Email: email, PasswordHash: hash, Role: role, IsActive: true}
	return m.next, nil
}

func (m *memUsers) GetByLogin(_ context.Context, login string) (model.User, error) {
	for _, u := range m.byID {
		if u.Email == login || u.Username == login {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

type memTokens struct {
	active map[string]uint64
}

func (m *memTokens) StoreRefresh(_ context.Context, userID uint64, hash string, _ time.Time) error {
	m.active[hash] = userID
	return nil
}

func (m *memTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	uid, ok := m.active[hash]
	if !ok {
		return 0, repository.ErrInvalidRefresh
	}
	return uid, nil
}

func (m *memTokens) Rotate(ctx context.Context, oldHash, newHash string, exp time.Time) (uint64, error) {
	uid, err := m.ValidateRefresh(ctx, oldHash)
	if err != nil {
		return 0, err
	}
	delete(m.active, oldHash)
	return uid, m.StoreRefresh(ctx, uid, newHash, exp)
}

func (m *memTokens) RevokeByHash(_ context.Context, hash string) error {
	delete(m.active, hash)
	return nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	for h, uid := range m.active {
		if uid == userID {
			delete(m.active, h)
		}
	}
	return nil
}

func newAuth() (*AuthHandler, *memTokens) {
	cfg := config.Config{JWTSecret: "s3cret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: bcrypt.MinCost}
	tokens := &memTokens{active: map[string]uint64{}}
	return NewAuthHandler(cfg, newMemUsers(), tokens, zap.NewNop()), tokens
}

func TestSelfServiceRole(t *testing.T) {
	assert.Equal(t, model.RoleStudent, selfServiceRole(""))
	assert.Equal(t, model.RoleStudent, selfServiceRole("admin"))
	assert.Equal(t, model.RoleInstructor, selfServiceRole(" instructor "))
}

func TestRegisterLoginRefreshLogout(t *testing.T) {
	h, tokens := newAuth()

	c, rec := newCtx(http.MethodPost, "/v1/auth/register",
		`{"username":"ada","email":"Ada@Example.com","password":"correct horse","role":"ADMIN"}`, 0, "")
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
	assert.Equal(t, model.RoleStudent, user["role"], "ADMIN cannot be self-assigned")

	c, rec = newCtx(http.MethodPost, "/v1/auth/register",
		`{"username":"ada2","email":"ada@example.com","password":"correct horse"}`, 0, "")
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email_exists", decode(t, rec)["error"])

	c, rec = newCtx(http.MethodPost, "/v1/auth/login", `{"login":"ada","password":"wrong password"}`, 0, "")
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newCtx(http.MethodPost, "/v1/auth/login", `{"login":"ada","password":"correct horse"}`, 0, "")
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	access := body["access"].(map[string]any)["token"].(string)
	refresh := body["refresh"].(map[string]any)["token"].(string)

	claims, err := utils.ParseAccessToken("s3cret", access)
	require.NoError(t, err)
	assert.Equal(t, "ada", claims.Name)
	assert.Equal(t, model.RoleStudent, claims.Role)

	// A refresh token works exactly once.
	c, rec = newCtx(http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"`+refresh+`"}`, 0, "")
	require.NoError(t, h.Refresh(c))
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decode(t, rec)["refresh"].(map[string]any)["token"].(string)
	assert.NotEqual(t, refresh, rotated)

	c, rec = newCtx(http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"`+refresh+`"}`, 0, "")
	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newCtx(http.MethodPost, "/v1/auth/refresh-access", `{"refresh_token":"`+rotated+`"}`, 0, "")
	require.NoError(t, h.RefreshAccess(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Logging out with the bearer alone revokes every session.
	c, rec = newCtx(http.MethodPost, "/v1/auth/logout", "", 0, "")
	c.Request().Header.Set("Authorization", "Bearer "+access)
	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, tokens.active)
}

func TestRegisterValidation(t *testing.T) {
	h, _ := newAuth()
	for name, body := range map[string]string{
		"short password": `{"username":"bob","email":"bob@example.com","password":"short"}`,
		"no email":       `{"username":"bob","password":"long enough"}`,
		"at in username": `{"username":"bob@x","email":"bob@example.com","password":"long enough"}`,
	} {
		c, rec := newCtx(http.MethodPost, "/v1/auth/register", body, 0, "")
		require.NoError(t, h.Register(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestLogoutNeedsSomething(t *testing.T) {
	h, _ := newAuth()
	c, rec := newCtx(http.MethodPost, "/v1/auth/logout", "", 0, "")
	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMe(t *testing.T) {
	h, _ := newAuth()
	id, err := h.Users.Create(context.Background(), "grace", "grace@example.com", "long enough", model.RoleInstructor, bcrypt.MinCost)
	require.NoError(t, err)

	c, rec := newCtx(http.MethodGet, "/v1/me", "", id, model.RoleInstructor)
	require.NoError(t, h.Me(c))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "grace", body["username"])
	assert.NotContains(t, body, "password_hash")
}
