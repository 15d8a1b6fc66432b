package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/uniplanner-api/internal/models"
	appErrors "github.com/noah-isme/uniplanner-api/pkg/errors"
)

type mockAuthRepo struct {
	users            map[string]*models.User
	findErr          error
	createErr        error
	lastLoginUpdated bool
	lookups          []string
}

func newMockAuthRepo(users ...*models.User) *mockAuthRepo {
	repo := &mockAuthRepo{users: map[string]*models.User{}}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	m.lookups = append(m.lookups, email)
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, exec sqlx.ExtContext, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = fmt.Sprintf("user-%d", len(m.users)+1)
	m.users[user.ID] = user
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

type authFixture struct {
	svc     *AuthService
	users   *mockAuthRepo
	records *mockStudentCourseRepo
	configs *mockStudyConfigRepo
}

func newAuthFixture(t *testing.T, db txProvider, users ...*models.User) *authFixture {
	t.Helper()
	f := &authFixture{
		users:   newMockAuthRepo(users...),
		records: newMockStudentCourseRepo(nil, nil),
		configs: newMockStudyConfigRepo(),
	}
	f.svc = NewAuthService(AuthServiceParams{
		DB:      db,
		Users:   f.users,
		Records: f.records,
		Configs: f.configs,
		Catalog: newLoadedCatalog(t),
		Logger:  zap.NewNop(),
		Config: AuthConfig{
			AccessTokenSecret: "test-secret",
			AccessTokenExpiry: time.Hour,
			Issuer:            "uniplanner",
		},
	})
	return f
}

func validRegisterRequest() models.RegisterRequest {
	return models.RegisterRequest{
		FirstName:         "Ana",
		LastName:          "Rojas",
		Email:             " Ana@Example.com ",
		Password:          "secret123",
		CurrentSemester:   2,
		StudyMode:         models.StudyModeIntensive,
		ApprovedCourses:   []string{"167390", "157408", "167390"},
		InProgressCourses: []string{"167392"},
	}
}

func hashedUser(t *testing.T, id, email, password string, active bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{ID: id, Email: email, PasswordHash: string(hash), FirstName: "Luis", Role: models.RoleStudent, Active: active}
}

func TestAuthServiceRegister(t *testing.T) {
	db, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	f := newAuthFixture(t, db)

	resp, err := f.svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "ana@example.com", resp.User.Email)
	assert.Equal(t, "Ana Rojas", resp.User.FullName)
	assert.Equal(t, models.RoleStudent, resp.User.Role)

	assert.Equal(t, models.StudentCourseApproved, f.records.rows["167390"])
	assert.Equal(t, models.StudentCourseApproved, f.records.rows["157408"])
	assert.Equal(t, models.StudentCourseInProgress, f.records.rows["167392"])
	assert.Len(t, f.records.upserts, 3)

	cfg := f.configs.stored[resp.User.ID]
	assert.Equal(t, 6.0, cfg.DailyHours)
	assert.Equal(t, models.StudyModeIntensive, cfg.StudyMode)

	claims, err := f.svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthServiceRegisterRejectsOverlap(t *testing.T) {
	db, mock := newTxProviderMock(t)
	f := newAuthFixture(t, db)
	req := validRegisterRequest()
	req.InProgressCourses = []string{"157408"}

	_, err := f.svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthServiceRegisterRejectsUnknownCourse(t *testing.T) {
	db, _ := newTxProviderMock(t)
	f := newAuthFixture(t, db)
	req := validRegisterRequest()
	req.ApprovedCourses = []string{"999999"}

	_, err := f.svc.Register(context.Background(), req)
	assert.True(t, errors.Is(err, appErrors.ErrUnknownCourse))
}

func TestAuthServiceRegisterValidation(t *testing.T) {
	db, _ := newTxProviderMock(t)
	f := newAuthFixture(t, db)
	cases := map[string]func(*models.RegisterRequest){
		"email":    func(r *models.RegisterRequest) { r.Email = "not-an-email" },
		"password": func(r *models.RegisterRequest) { r.Password = "123" },
		"semester": func(r *models.RegisterRequest) { r.CurrentSemester = 11 },
		"mode":     func(r *models.RegisterRequest) { r.StudyMode = "RELAXED" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validRegisterRequest()
			mutate(&req)
			_, err := f.svc.Register(context.Background(), req)
			assert.True(t, errors.Is(err, appErrors.ErrValidation))
		})
	}
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	db, _ := newTxProviderMock(t)
	f := newAuthFixture(t, db, &models.User{ID: "existing", Email: "ana@example.com"})

	_, err := f.svc.Register(context.Background(), validRegisterRequest())
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestAuthServiceRegisterUniqueViolationRollsBack(t *testing.T) {
	db, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	f := newAuthFixture(t, db)
	f.users.createErr = fmt.Errorf("create user: %w", &pq.Error{Code: pqUniqueViolation})

	_, err := f.svc.Register(context.Background(), validRegisterRequest())
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Empty(t, f.records.upserts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthServiceLogin(t *testing.T) {
	db, _ := newTxProviderMock(t)
	f := newAuthFixture(t, db, hashedUser(t, "user-1", "luis@example.com", "password", true))

	resp, err := f.svc.Login(context.Background(), models.LoginRequest{Email: "luis@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.True(t, f.users.lastLoginUpdated)
}

func TestAuthServiceNormalizesEmailBeforeValidation(t *testing.T) {
	db, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	f := newAuthFixture(t, db)

	registered, err := f.svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "ana@example.com", f.users.users[registered.User.ID].Email)

	resp, err := f.svc.Login(context.Background(), models.LoginRequest{Email: "  ANA@example.COM\t", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, resp.User.ID)
	assert.Equal(t, []string{"ana@example.com", "ana@example.com"}, f.users.lookups)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	db, _ := newTxProviderMock(t)
	f := newAuthFixture(t, db,
		hashedUser(t, "user-1", "luis@example.com", "password", true),
		hashedUser(t, "user-2", "off@example.com", "password", false),
	)

	_, err := f.svc.Login(context.Background(), models.LoginRequest{Email: "luis@example.com", Password: "wrong"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = f.svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "password"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = f.svc.Login(context.Background(), models.LoginRequest{Email: "off@example.com", Password: "password"})
	assert.True(t, errors.Is(err, appErrors.ErrInactiveAccount))

	_, err = f.svc.Login(context.Background(), models.LoginRequest{Email: "bad"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	f.users.findErr = errors.New("db down")
	_, err = f.svc.Login(context.Background(), models.LoginRequest{Email: "luis@example.com", Password: "password"})
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsTampering(t *testing.T) {
	db, _ := newTxProviderMock(t)
	f := newAuthFixture(t, db, hashedUser(t, "user-1", "luis@example.com", "password", true))
	resp, err := f.svc.Login(context.Background(), models.LoginRequest{Email: "luis@example.com", Password: "password"})
	require.NoError(t, err)

	_, err = f.svc.ValidateToken(resp.AccessToken + "x")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	other := newAuthFixture(t, db)
	other.svc.config.AccessTokenSecret = "different"
	_, err = other.svc.ValidateToken(resp.AccessToken)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceValidateTokenRejectsExpired(t *testing.T) {
	db, _ := newTxProviderMock(t)
	f := newAuthFixture(t, db, hashedUser(t, "user-1", "luis@example.com", "password", true))
	f.svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	resp, err := f.svc.Login(context.Background(), models.LoginRequest{Email: "luis@example.com", Password: "password"})
	require.NoError(t, err)
	_, err = f.svc.ValidateToken(resp.AccessToken)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceMe(t *testing.T) {
	db, _ := newTxProviderMock(t)
	f := newAuthFixture(t, db, &models.User{ID: "user-1", Email: "luis@example.com", FirstName: "Luis", CurrentSemester: 3})

	info, err := f.svc.Me(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Luis", info.FullName)
	assert.Equal(t, 3, info.CurrentSemester)

	_, err = f.svc.Me(context.Background(), "ghost")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
