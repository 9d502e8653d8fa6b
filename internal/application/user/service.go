package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rewear-api/internal/application/notification"
	"github.com/rewear-api/internal/domain"
	"github.com/rewear-api/internal/pkg/id"
	pkgtoken "github.com/rewear-api/internal/pkg/token"
	"github.com/rewear-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, string, string, error)
	Signin(ctx context.Context, req domain.SigninRequest) (*domain.User, string, string, error)
	Signout(ctx context.Context, userID string) error
	Refresh(ctx context.Context, userID, refreshToken string) (string, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error)
}

type userStore interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type ledger interface {
	Grant(ctx context.Context, userID string, amount int, reason string) error
}

type jwtSigner interface {
	Sign(userID, email string, isAdmin bool) (string, error)
}

type notifier interface {
	Emit(ctx context.Context, e notification.Event)
}

type service struct {
	repo     userStore
	points   ledger
	notifier notifier
	jwt      jwtSigner
}

func NewService(repo userStore, points ledger, notifier notifier, jwt jwtSigner) Service {
	return &service{repo: repo, points: points, notifier: notifier, jwt: jwt}
}

// Signup registers a user and grants the one-time registration bonus. The
// bonus and its notification are side effects of a successful registration;
// their failure is logged, not surfaced.
func (s *service) Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, string, string, error) {
	if err := validate.Struct(req); err != nil {
		return nil, "", "", fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, "", "", fmt.Errorf("user with this email already exists: %w", domain.ErrConflict)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", "", err
	}
	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, "", "", err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Fullname:     req.Fullname,
		Email:        req.Email,
		PasswordHash: string(hash),
		RefreshToken: refreshToken,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, "", "", err
	}

	if err := s.points.Grant(ctx, u.UserID, domain.RegistrationBonus, domain.PointsReasonRegistration); err != nil {
		slog.Warn("registration bonus grant failed", "user", u.UserID, "err", err)
	} else {
		u.Points = domain.RegistrationBonus
		s.notifier.Emit(ctx, notification.Event{
			ReceiverID: u.UserID,
			Type:       domain.NotifPointsAwarded,
			Message:    fmt.Sprintf("Welcome to ReWear! You earned %d points for signing up", domain.RegistrationBonus),
		})
	}

	bearer, err := s.jwt.Sign(u.UserID, u.Email, u.IsAdmin)
	if err != nil {
		return nil, "", "", err
	}
	return u, bearer, refreshToken, nil
}

func (s *service) Signin(ctx context.Context, req domain.SigninRequest) (*domain.User, string, string, error) {
	if err := validate.Struct(req); err != nil {
		return nil, "", "", fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	u, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, "", "", fmt.Errorf("user does not exist: %w", domain.ErrNotFound)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, "", "", fmt.Errorf("invalid user credentials: %w", domain.ErrUnauthorized)
	}
	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, "", "", err
	}
	if err := s.repo.Update(ctx, u.UserID, map[string]interface{}{"refresh_token": refreshToken}); err != nil {
		return nil, "", "", err
	}
	bearer, err := s.jwt.Sign(u.UserID, u.Email, u.IsAdmin)
	if err != nil {
		return nil, "", "", err
	}
	return u, bearer, refreshToken, nil
}

func (s *service) Signout(ctx context.Context, userID string) error {
	return s.repo.Update(ctx, userID, map[string]interface{}{"refresh_token": ""})
}

// Refresh issues a new bearer token when the presented refresh token matches
// the one stored for the user.
func (s *service) Refresh(ctx context.Context, userID, refreshToken string) (string, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if u.RefreshToken == "" || u.RefreshToken != refreshToken {
		return "", fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}
	return s.jwt.Sign(u.UserID, u.Email, u.IsAdmin)
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	updates := map[string]interface{}{}
	if req.Fullname != nil {
		updates["fullname"] = *req.Fullname
	}
	if req.ProfilePicture != nil {
		updates["profile_picture"] = *req.ProfilePicture
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, userID)
	}
	if err := s.repo.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}
