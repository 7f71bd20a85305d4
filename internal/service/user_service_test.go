package service

import (
	"context"
	"strings"
	"testing"

	"helpdesk/internal/apierror"
	"helpdesk/internal/dto"
	"helpdesk/internal/model"
	"helpdesk/internal/repository"
	"helpdesk/internal/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type stubUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *stubUserRepo) Create(_ context.Context, u *model.User) error {
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	u.ID = uuid.New()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *stubUserRepo) List(_ context.Context) ([]model.User, error) {
	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *stubUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.users, id)
	return nil
}

func seedUser(t *testing.T, repo *stubUserRepo, email, password string, role model.Role, office string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{
		Name:         "Seeded",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Office:       office,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

// ── Register ──────────────────────────────────────────────────────────────────

func TestRegisterDefaultsRoleToUser(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo)

	resp, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name: "Ana", Email: "ana@example.com", Password: "secret123", Office: "Malaga",
	})
	require.NoError(t, err)
	assert.Equal(t, "user", resp.Role)

	// The stored hash is never the plaintext password.
	stored, err := repo.FindByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret123")))
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc := NewUserService(newStubUserRepo())
	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name: "Ana", Email: "ana@example.com", Password: "secret123",
		Role: "superadmin", Office: "Malaga",
	})
	require.Error(t, err)
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
	assert.Contains(t, err.Error(), "Rol no valido")
}

func TestRegisterRejectsUnknownOffice(t *testing.T) {
	svc := NewUserService(newStubUserRepo())
	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name: "Ana", Email: "ana@example.com", Password: "secret123", Office: "Madrid",
	})
	require.Error(t, err)
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo)
	seedUser(t, repo, "ana@example.com", "pw", model.RoleUser, "Malaga")

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name: "Ana 2", Email: "ANA@example.com", Password: "secret123", Office: "El Palo",
	})
	require.Error(t, err)
	assert.Equal(t, apierror.KindConflict, apierror.KindOf(err))
}

// ── ChangePassword ────────────────────────────────────────────────────────────

func TestChangePasswordWrongCurrent(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo)
	u := seedUser(t, repo, "ana@example.com", "oldpass", model.RoleUser, "Malaga")

	err := svc.ChangePassword(context.Background(), session.Identity{UserID: u.ID},
		dto.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "newpass1"})
	require.Error(t, err)
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
}

func TestChangePasswordRotatesHash(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo)
	u := seedUser(t, repo, "ana@example.com", "oldpass", model.RoleUser, "Malaga")

	err := svc.ChangePassword(context.Background(), session.Identity{UserID: u.ID},
		dto.ChangePasswordRequest{CurrentPassword: "oldpass", NewPassword: "newpass1"})
	require.NoError(t, err)

	stored, _ := repo.FindByID(context.Background(), u.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("newpass1")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("oldpass")))
}

// ── List / Delete ─────────────────────────────────────────────────────────────

func TestListUsersAdminOnly(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo)
	seedUser(t, repo, "a@example.com", "pw", model.RoleUser, "Malaga")
	seedUser(t, repo, "b@example.com", "pw", model.RoleTecnico, "El Palo")

	_, err := svc.List(context.Background(), caller(model.RoleTecnico, "Malaga"))
	require.Error(t, err)
	assert.Equal(t, apierror.KindForbidden, apierror.KindOf(err))

	users, err := svc.List(context.Background(), caller(model.RoleAdmin, "Malaga"))
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestDeleteUnknownUser(t *testing.T) {
	svc := NewUserService(newStubUserRepo())
	err := svc.Delete(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, apierror.KindNotFound, apierror.KindOf(err))
}

// ── Auth ──────────────────────────────────────────────────────────────────────

type stubSessionStore struct {
	sessions map[string]session.Identity
	next     int
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{sessions: make(map[string]session.Identity)}
}

func (s *stubSessionStore) Create(_ context.Context, id session.Identity) (string, error) {
	s.next++
	key := "sid-" + strings.Repeat("x", s.next)
	s.sessions[key] = id
	return key, nil
}

func (s *stubSessionStore) Get(_ context.Context, cookieValue string) (*session.Identity, error) {
	id, ok := s.sessions[cookieValue]
	if !ok {
		return nil, session.ErrNotFound
	}
	return &id, nil
}

func (s *stubSessionStore) Destroy(_ context.Context, cookieValue string) error {
	if _, ok := s.sessions[cookieValue]; !ok {
		return session.ErrNotFound
	}
	delete(s.sessions, cookieValue)
	return nil
}

func TestLoginWrongCredentials(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(t, repo, "ana@example.com", "secret123", model.RoleUser, "Malaga")
	svc := NewAuthService(repo, newStubSessionStore())

	for _, req := range []dto.LoginRequest{
		{Email: "ana@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "secret123"},
	} {
		_, _, err := svc.Login(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, apierror.KindUnauthorized, apierror.KindOf(err))
		// Unknown email and wrong password are indistinguishable.
		assert.Contains(t, err.Error(), "Credenciales invalidas")
	}
}

func TestLoginCreatesSession(t *testing.T) {
	repo := newStubUserRepo()
	u := seedUser(t, repo, "ana@example.com", "secret123", model.RoleTecnico, "El Palo")
	sessions := newStubSessionStore()
	svc := NewAuthService(repo, sessions)

	resp, cookieValue, err := svc.Login(context.Background(),
		dto.LoginRequest{Email: "ana@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), resp.User.ID)
	assert.Equal(t, "tecnico", resp.User.Role)

	identity, err := sessions.Get(context.Background(), cookieValue)
	require.NoError(t, err)
	assert.Equal(t, u.ID, identity.UserID)
	assert.Equal(t, "El Palo", identity.Office)
}

func TestLogoutIsIdempotent(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(t, repo, "ana@example.com", "secret123", model.RoleUser, "Malaga")
	sessions := newStubSessionStore()
	svc := NewAuthService(repo, sessions)

	_, cookieValue, err := svc.Login(context.Background(),
		dto.LoginRequest{Email: "ana@example.com", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), cookieValue))
	require.NoError(t, svc.Logout(context.Background(), cookieValue))
	require.NoError(t, svc.Logout(context.Background(), ""))

	_, err = sessions.Get(context.Background(), cookieValue)
	assert.ErrorIs(t, err, session.ErrNotFound)
}
