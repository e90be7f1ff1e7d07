package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/models"
	appErrors "github.com/catalyst-eval/catalyst-scheduler-api/pkg/errors"
)

type mockUserRepo struct {
	users   map[string]*models.User
	deleted []string
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	repo := &mockUserRepo{users: map[string]*models.User{}}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (m *mockUserRepo) List(_ context.Context, _ models.UserFilter) ([]models.User, int, error) {
	var users []models.User
	for _, u := range m.users {
		users = append(users, *u)
	}
	return users, len(users), nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(_ context.Context, user *models.User) error {
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *mockUserRepo) Update(_ context.Context, user *models.User) error {
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	if user, ok := m.users[id]; ok {
		user.Active = false
	}
	return nil
}

func TestUserServiceCreate(t *testing.T) {
	repo := newMockUserRepo()
	audit := &mockAudit{}
	svc := NewUserService(repo, audit, validator.New(), zap.NewNop())

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "Front.Desk@Example.com",
		FullName: "Front Desk",
		Role:     models.RoleScheduler,
		Active:   true,
		Password: "a long password",
	}, "admin-1")

	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "front.desk@example.com", user.Email, "emails are stored lowercased")
	assert.NotEqual(t, "a long password", user.PasswordHash)
	assert.Contains(t, audit.events(), models.AuditUserCreated)
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	existing := &models.User{ID: "u1", Email: "front.desk@example.com", Active: true}
	svc := NewUserService(newMockUserRepo(existing), nil, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "front.desk@example.com",
		FullName: "Front Desk",
		Role:     models.RoleScheduler,
		Password: "a long password",
	}, "admin-1")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCreateRejectsUnknownRole(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), nil, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "front.desk@example.com",
		FullName: "Front Desk",
		Role:     "SUPERVISOR",
		Password: "a long password",
	}, "admin-1")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdate(t *testing.T) {
	existing := &models.User{ID: "u1", Email: "a@example.com", FullName: "Old Name", Role: models.RoleClinician, Active: true}
	repo := newMockUserRepo(existing)
	svc := NewUserService(repo, nil, validator.New(), zap.NewNop())

	inactive := false
	user, err := svc.Update(context.Background(), "u1", UpdateUserRequest{
		FullName: "New Name",
		Role:     models.RoleScheduler,
		Active:   &inactive,
	}, "admin-1")

	require.NoError(t, err)
	assert.Equal(t, "New Name", user.FullName)
	assert.Equal(t, models.RoleScheduler, user.Role)
	assert.False(t, user.Active)
}

func TestUserServiceDeleteSoft(t *testing.T) {
	existing := &models.User{ID: "u1", Email: "a@example.com", Active: true}
	repo := newMockUserRepo(existing)
	audit := &mockAudit{}
	svc := NewUserService(repo, audit, validator.New(), zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), "u1", "admin-1"))
	assert.Equal(t, []string{"u1"}, repo.deleted)
	assert.Contains(t, audit.events(), models.AuditUserDeactivated)

	err := svc.Delete(context.Background(), "missing", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
