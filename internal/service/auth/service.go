package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"eduplatform/internal/config"
	"eduplatform/internal/domain"
	"eduplatform/internal/pkg/apperror"
	"eduplatform/internal/pkg/logger"
	"eduplatform/internal/repository"
	"eduplatform/internal/service/email"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInactiveAccount    = errors.New("account is disabled")
)

type Service interface {
	Register(ctx context.Context, input domain.CreateUserInput, meta *domain.RequestMeta) (*domain.User, *domain.TokenPair, error)
	Login(ctx context.Context, input domain.LoginInput, meta *domain.RequestMeta) (*domain.User, *domain.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string, meta *domain.RequestMeta) (*domain.TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	ValidateAccessToken(token string) (*Claims, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	AssignRole(ctx context.Context, actor *domain.User, userID uuid.UUID, role domain.UserRole) error
}

type Claims struct {
	UserID uuid.UUID       `json:"user_id"`
	Email  string          `json:"email"`
	Role   domain.UserRole `json:"role"`
	jwt.RegisteredClaims
}

type service struct {
	userRepo     repository.UserRepository
	sessionRepo  repository.SessionRepository
	emailService email.Service
	cfg          *config.Config
	log          *logger.Logger
}

// NewService builds the auth service. emailService may be nil.
func NewService(userRepo repository.UserRepository, sessionRepo repository.SessionRepository, emailService email.Service, cfg *config.Config, log *logger.Logger) Service {
	if log == nil {
		log = logger.Nop()
	}
	return &service{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		emailService: emailService,
		cfg:          cfg,
		log:          log,
	}
}

func (s *service) Register(ctx context.Context, input domain.CreateUserInput, meta *domain.RequestMeta) (*domain.User, *domain.TokenPair, error) {
	emailAddr := strings.ToLower(strings.TrimSpace(input.Email))

	exists, err := s.userRepo.ExistsByEmail(ctx, emailAddr)
	if err != nil {
		return nil, nil, apperror.Store(err, "failed to check email")
	}
	if exists {
		return nil, nil, apperror.Wrap(apperror.CodeConflict, ErrEmailExists, ErrEmailExists.Error())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, apperror.Wrap(apperror.CodeInternal, err, "failed to hash password")
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        emailAddr,
		PasswordHash: string(hashedPassword),
		FullName:     strings.TrimSpace(input.FullName),
		Role:         domain.RoleStudent,
		IsActive:     true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, nil, apperror.Wrap(apperror.CodeConflict, ErrEmailExists, ErrEmailExists.Error())
		}
		return nil, nil, apperror.Store(err, "failed to create user")
	}

	tokens, err := s.generateTokenPair(ctx, user, meta)
	if err != nil {
		return nil, nil, err
	}

	if s.emailService != nil {
		go func(toEmail, fullName string) {
			sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			if err := s.emailService.SendRegistrationEmail(sendCtx, toEmail, fullName); err != nil {
				s.log.Warn(sendCtx, "failed to send registration email", err)
			}
		}(user.Email, user.FullName)
	}

	return user, tokens, nil
}

func (s *service) Login(ctx context.Context, input domain.LoginInput, meta *domain.RequestMeta) (*domain.User, *domain.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		return nil, nil, apperror.Store(err, "failed to load user")
	}
	if user == nil {
		return nil, nil, invalidCredentials()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, invalidCredentials()
	}

	if !user.IsActive {
		return nil, nil, apperror.Wrap(apperror.CodeForbidden, ErrInactiveAccount, ErrInactiveAccount.Error())
	}

	tokens, err := s.generateTokenPair(ctx, user, meta)
	if err != nil {
		return nil, nil, err
	}

	return user, tokens, nil
}

func (s *service) RefreshToken(ctx context.Context, refreshToken string, meta *domain.RequestMeta) (*domain.TokenPair, error) {
	session, err := s.sessionRepo.GetActiveByTokenHash(ctx, hashToken(refreshToken))
	if err != nil {
		return nil, apperror.Store(err, "failed to load session")
	}
	if session == nil {
		return nil, invalidToken()
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, apperror.Store(err, "failed to load user")
	}
	if user == nil || !user.IsActive {
		return nil, invalidToken()
	}

	accessToken, err := s.signAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshRaw, next := s.newSession(user, meta)
	if err := s.sessionRepo.Rotate(ctx, session.ID, next); err != nil {
		if errors.Is(err, repository.ErrSessionRevoked) {
			return nil, invalidToken()
		}
		return nil, apperror.Store(err, "failed to rotate session")
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshRaw,
		ExpiresIn:    int64(s.cfg.JWTAccessExpiry.Seconds()),
	}, nil
}

func (s *service) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.sessionRepo.RevokeAllForUser(ctx, userID); err != nil {
		return apperror.Store(err, "failed to revoke sessions")
	}
	return nil
}

func (s *service) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *service) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Store(err, "failed to load user")
	}
	return user, nil
}

func (s *service) AssignRole(ctx context.Context, actor *domain.User, userID uuid.UUID, role domain.UserRole) error {
	if actor == nil || !actor.HasRole(domain.RoleAdmin) {
		return apperror.Forbidden("only admins can assign roles")
	}
	if !role.IsValid() {
		return apperror.Validation("role must be student, teacher or admin")
	}

	if err := s.userRepo.AssignRole(ctx, userID, role); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return apperror.NotFound("user not found")
		}
		return apperror.Store(err, "failed to assign role")
	}

	if role == domain.RoleStudent {
		// Demoted users must not keep reviewer tokens alive through refresh.
		if err := s.sessionRepo.RevokeAllForUser(ctx, userID); err != nil {
			s.log.Warn(s.log.WithUserID(ctx, userID.String()), "failed to revoke sessions after demotion", err)
		}
	}
	return nil
}

func (s *service) generateTokenPair(ctx context.Context, user *domain.User, meta *domain.RequestMeta) (*domain.TokenPair, error) {
	accessToken, err := s.signAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshRaw, session := s.newSession(user, meta)
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, apperror.Store(err, "failed to create session")
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshRaw,
		ExpiresIn:    int64(s.cfg.JWTAccessExpiry.Seconds()),
	}, nil
}

func (s *service) signAccessToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTAccessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   user.ID.String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", apperror.Wrap(apperror.CodeInternal, err, "failed to sign token")
	}
	return signed, nil
}

func (s *service) newSession(user *domain.User, meta *domain.RequestMeta) (string, *repository.Session) {
	raw := uuid.New().String()
	session := &repository.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashToken(raw),
		ExpiresAt: time.Now().Add(s.cfg.JWTRefreshExpiry),
	}
	if meta != nil {
		if meta.IPAddress != "" {
			ip := meta.IPAddress
			session.IPAddress = &ip
		}
		if meta.UserAgent != "" {
			ua := meta.UserAgent
			session.UserAgent = &ua
		}
	}
	return raw, session
}

func invalidCredentials() error {
	return apperror.Wrap(apperror.CodeUnauthorized, ErrInvalidCredentials, ErrInvalidCredentials.Error())
}

func invalidToken() error {
	return apperror.Wrap(apperror.CodeUnauthorized, ErrInvalidToken, ErrInvalidToken.Error())
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
