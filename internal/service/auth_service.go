package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/uniplanner-api/internal/models"
	"github.com/noah-isme/uniplanner-api/internal/planner"
	appErrors "github.com/noah-isme/uniplanner-api/pkg/errors"
)

const pqUniqueViolation = "23505"

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, exec sqlx.ExtContext, user *models.User) error
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
}

type registrationRecordWriter interface {
	UpsertBatch(ctx context.Context, exec sqlx.ExtContext, userID string, codes []string, status models.StudentCourseStatus) error
}

type registrationConfigWriter interface {
	Upsert(ctx context.Context, exec sqlx.ExtContext, cfg *models.StudyConfiguration) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	Audience          []string
}

// AuthServiceParams groups the collaborators of AuthService.
type AuthServiceParams struct {
	DB        txProvider
	Users     authUserRepository
	Records   registrationRecordWriter
	Configs   registrationConfigWriter
	Catalog   catalogProvider
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    AuthConfig
}

// AuthService provides registration, login and token validation.
type AuthService struct {
	db        txProvider
	users     authUserRepository
	records   registrationRecordWriter
	configs   registrationConfigWriter
	catalog   catalogProvider
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(params AuthServiceParams) *AuthService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	cfg := params.Config
	if cfg.AccessTokenExpiry <= 0 {
		cfg.AccessTokenExpiry = 24 * time.Hour
	}
	return &AuthService{
		db:        params.DB,
		users:     params.Users,
		records:   params.Records,
		configs:   params.Configs,
		catalog:   params.Catalog,
		validator: validate,
		logger:    logger,
		config:    cfg,
		now:       time.Now,
	}
}

// Register creates the student account, its academic record and the study
// configuration preset in one transaction, then issues an access token.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid registration payload")
	}
	email := req.Email

	approved, inProgress, err := s.validateRecord(req.ApprovedCourses, req.InProgressCourses)
	if err != nil {
		return nil, err
	}
	preset, err := planner.PresetFor(req.StudyMode)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	user := &models.User{
		Email:           email,
		PasswordHash:    string(hash),
		FirstName:       strings.TrimSpace(req.FirstName),
		LastName:        strings.TrimSpace(req.LastName),
		CurrentSemester: req.CurrentSemester,
		StudyMode:       req.StudyMode,
		Role:            models.RoleStudent,
		Active:          true,
	}

	if err := s.createAccount(ctx, user, approved, inProgress, preset); err != nil {
		return nil, err
	}

	s.logger.Info("student registered",
		zap.String("user_id", user.ID),
		zap.Int("approved", len(approved)),
		zap.Int("in_progress", len(inProgress)),
	)
	return s.issue(user)
}

// Login authenticates a user and returns an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid login payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}

	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now().UTC()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	return s.issue(user)
}

// Me returns the profile of the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	info := userInfo(user)
	return &info, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) validateRecord(approvedRaw, inProgressRaw []string) ([]string, []string, error) {
	graph, err := s.catalog.Graph()
	if err != nil {
		return nil, nil, err
	}
	normalize := func(codes []string) ([]string, error) {
		seen := make(map[string]bool, len(codes))
		result := make([]string, 0, len(codes))
		for _, raw := range codes {
			code := normalizeCode(raw)
			if seen[code] {
				continue
			}
			if !graph.Has(code) {
				return nil, appErrors.Clone(appErrors.ErrUnknownCourse, fmt.Sprintf("course %s not found", code))
			}
			seen[code] = true
			result = append(result, code)
		}
		return result, nil
	}
	approved, err := normalize(approvedRaw)
	if err != nil {
		return nil, nil, err
	}
	inProgress, err := normalize(inProgressRaw)
	if err != nil {
		return nil, nil, err
	}
	if _, err := planner.NewEnrollmentState(approved, inProgress); err != nil {
		return nil, nil, err
	}
	return approved, inProgress, nil
}

func (s *AuthService) createAccount(ctx context.Context, user *models.User, approved, inProgress []string, preset planner.Preset) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Internal(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.users.Create(ctx, tx, user); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return appErrors.Internal(err, "failed to create user")
	}
	if err = s.records.UpsertBatch(ctx, tx, user.ID, approved, models.StudentCourseApproved); err != nil {
		return appErrors.Internal(err, "failed to store approved courses")
	}
	if err = s.records.UpsertBatch(ctx, tx, user.ID, inProgress, models.StudentCourseInProgress); err != nil {
		return appErrors.Internal(err, "failed to store in-progress courses")
	}
	cfg := preset.Model(user.ID)
	if err = s.configs.Upsert(ctx, tx, &cfg); err != nil {
		return appErrors.Internal(err, "failed to store study configuration")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Internal(err, "failed to commit registration")
	}
	return nil
}

func (s *AuthService) issue(user *models.User) (*models.AuthResponse, error) {
	token, issuedAt, err := s.generateAccessToken(user)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create access token")
	}
	return &models.AuthResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		User:        userInfo(user),
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, time.Time, error) {
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		UserID:   user.ID,
		Role:     user.Role,
		Email:    user.Email,
		FullName: user.FullName(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			Audience:  s.config.Audience,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, issuedAt, nil
}

func userInfo(user *models.User) models.UserInfo {
	return models.UserInfo{
		ID:              user.ID,
		Email:           user.Email,
		FullName:        user.FullName(),
		CurrentSemester: user.CurrentSemester,
		StudyMode:       user.StudyMode,
		Role:            user.Role,
	}
}

// normalizeEmail trims and lowercases an address so registration and login
// agree on the stored form.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
