package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/movie-rating/internal/app"
	authn "github.com/oggyb/movie-rating/internal/auth"
	"github.com/oggyb/movie-rating/internal/cache"
	"github.com/oggyb/movie-rating/internal/db"
	svcErr "github.com/oggyb/movie-rating/internal/errors"
	"github.com/oggyb/movie-rating/internal/logger"
	"github.com/oggyb/movie-rating/internal/repository"
)

// DefaultProfilePicture is assigned to new accounts.
const DefaultProfilePicture = "/default-profile.png"

// SecurityQuestions is the fixed list an account picks its recovery question from.
var SecurityQuestions = []string{
	"What is your favorite animal?",
	"What is your favorite flower?",
	"What is your favorite city?",
	"What is your favorite food?",
	"What is your favorite color?",
	"What is your favorite movie?",
	"What is your favorite book?",
	"What is your favorite sport?",
}

var (
	ErrAccountExists      = svcErr.AlreadyExists("User already exists")
	ErrUsernameTaken      = svcErr.AlreadyExists("Username is already taken")
	ErrEmailTaken         = svcErr.AlreadyExists("Email is already in use")
	ErrInvalidCredentials = svcErr.InvalidArgument("Invalid email or password")
	ErrAccountNotFound    = svcErr.NotFound("User not found")
	ErrUnknownQuestion    = svcErr.InvalidArgument("Please select a valid security question")
	ErrWrongPassword      = svcErr.InvalidArgument("Current password is incorrect")
	ErrCurrentRequired    = svcErr.InvalidArgument("Current password is required to set a new password")
	ErrPasswordMismatch   = svcErr.InvalidArgument("New passwords do not match")
	ErrEmailUnknown       = svcErr.InvalidArgument("User not found with this email")
	ErrQuestionMismatch   = svcErr.InvalidArgument("Security question does not match")
	ErrWrongAnswer        = svcErr.InvalidArgument("Security answer is incorrect")
)

// Service implements account registration, login, profile management and
// password recovery.
type Service struct {
	appCtx        *app.AppContext
	accounts      *repository.AccountRepository
	relationships *repository.RelationshipRepository
	lists         *repository.ListRepository
	favorites     *repository.FavoriteRepository
	now           func() time.Time
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:        appCtx,
		accounts:      repository.NewAccountRepository(appCtx.DB),
		relationships: repository.NewRelationshipRepository(appCtx.DB),
		lists:         repository.NewListRepository(appCtx.DB),
		favorites:     repository.NewFavoriteRepository(appCtx.DB),
		now:           time.Now,
	}
}

type RegisterRequest struct {
	Username         string `json:"username" validate:"required,notblank,min=3,max=30"`
	Email            string `json:"email" validate:"required,email,max=128"`
	Password         string `json:"password" validate:"required,min=8,bcryptmax"`
	SecurityQuestion string `json:"securityQuestion" validate:"required"`
	SecurityAnswer   string `json:"securityAnswer" validate:"required,notblank,bcryptmax"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateRequest changes only the fields that are present.
type UpdateRequest struct {
	Username        *string `json:"username" validate:"omitempty,notblank,min=3,max=30"`
	Email           *string `json:"email" validate:"omitempty,email,max=128"`
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     string  `json:"newPassword" validate:"omitempty,min=8,bcryptmax"`
}

type ChangePasswordRequest struct {
	CurrentPassword    string `json:"currentPassword" validate:"required"`
	NewPassword        string `json:"newPassword" validate:"required,min=8,bcryptmax"`
	ConfirmNewPassword string `json:"confirmNewPassword" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email            string `json:"email" validate:"required,email"`
	SecurityQuestion string `json:"securityQuestion" validate:"required"`
	SecurityAnswer   string `json:"securityAnswer" validate:"required,notblank,bcryptmax"`
}

type ResetPasswordRequest struct {
	ResetToken  string `json:"resetToken" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,bcryptmax"`
}

// Summary is the public part of an account returned after auth operations.
type Summary struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type AuthResponse struct {
	Token string  `json:"token"`
	User  Summary `json:"user"`
}

// Profile is the caller's own account with relationship and collection counts.
type Profile struct {
	db.Account
	FriendCount          int64 `json:"friendCount"`
	SentRequestCount     int64 `json:"sentRequestCount"`
	ReceivedRequestCount int64 `json:"receivedRequestCount"`
	WatchlistCount       int64 `json:"watchlistCount"`
	FavouriteCount       int64 `json:"favouriteCount"`
}

type ResetGrant struct {
	Message    string `json:"message"`
	ResetToken string `json:"resetToken"`
	UserID     uint64 `json:"userId"`
}

func summary(a *db.Account) Summary {
	return Summary{ID: a.ID, Username: a.Username, Email: a.Email}
}

// Register creates an account and signs the caller in.
//
// Behavior:
//   - Email is stored lower-cased; username is trimmed but keeps its case.
//   - Username or email already in use → ErrAccountExists (409). The unique
//     indexes catch the race between the check and the insert.
//   - Password and the normalized security answer are stored as bcrypt hashes.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if !slices.Contains(SecurityQuestions, req.SecurityQuestion) {
		return nil, ErrUnknownQuestion
	}

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	taken, err := s.accounts.UsernameTaken(ctx, username, 0)
	if err != nil {
		return nil, err
	}
	if !taken {
		taken, err = s.accounts.EmailTaken(ctx, email, 0)
		if err != nil {
			return nil, err
		}
	}
	if taken {
		return nil, ErrAccountExists
	}

	passwordHash, err := authn.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	answerHash, err := authn.HashAnswer(req.SecurityAnswer)
	if err != nil {
		return nil, err
	}

	account := &db.Account{
		Username:           username,
		Email:              email,
		PasswordHash:       passwordHash,
		ProfilePicture:     DefaultProfilePicture,
		SecurityQuestion:   req.SecurityQuestion,
		SecurityAnswerHash: answerHash,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAccountExists.Wrap(err)
		}
		return nil, err
	}

	logger.FromContext(ctx, s.appCtx.Logger).Info("account registered", "account_id", account.ID)
	return s.issue(account)
}

// Login checks email and password. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	account, err := s.accounts.FindByEmail(ctx, req.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := authn.CheckPassword(account.PasswordHash, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if err := s.accounts.TouchLogin(ctx, account.ID, s.now().UTC()); err != nil {
		logger.FromContext(ctx, s.appCtx.Logger).Warn("failed to record login time", "account_id", account.ID, "err", err)
	}
	return s.issue(account)
}

func (s *Service) issue(a *db.Account) (*AuthResponse, error) {
	token, err := s.appCtx.Tokens.GenerateToken(a.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: summary(a)}, nil
}

// Me returns the caller's profile without secrets.
func (s *Service) Me(ctx context.Context, accountID uint64) (*Profile, error) {
	account, err := s.find(ctx, accountID)
	if err != nil {
		return nil, err
	}

	p := &Profile{Account: *account}
	p.FriendCount, p.SentRequestCount, p.ReceivedRequestCount, err = s.relationships.Counts(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if p.WatchlistCount, err = s.lists.CountByOwner(ctx, accountID); err != nil {
		return nil, err
	}
	if p.FavouriteCount, err = s.favorites.Count(ctx, accountID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) find(ctx context.Context, accountID uint64) (*db.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	return account, err
}

// Update changes username, email and/or password.
//
// Behavior:
//   - A new password requires the current one.
//   - Username or email used by another account → 409.
func (s *Service) Update(ctx context.Context, accountID uint64, req UpdateRequest) (*Summary, error) {
	account, err := s.find(ctx, accountID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username != account.Username {
			taken, err := s.accounts.UsernameTaken(ctx, username, accountID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ErrUsernameTaken
			}
			fields["username"] = username
			account.Username = username
		}
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != account.Email {
			taken, err := s.accounts.EmailTaken(ctx, email, accountID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ErrEmailTaken
			}
			fields["email"] = email
			account.Email = email
		}
	}

	if req.NewPassword != "" {
		if req.CurrentPassword == "" {
			return nil, ErrCurrentRequired
		}
		hash, err := s.checkAndHash(account, req.CurrentPassword, req.NewPassword)
		if err != nil {
			return nil, err
		}
		fields["password_hash"] = hash
	}

	if err := s.accounts.Update(ctx, accountID, fields); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAccountExists.Wrap(err)
		}
		return nil, err
	}

	out := summary(account)
	return &out, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, accountID uint64, req ChangePasswordRequest) error {
	if req.NewPassword != req.ConfirmNewPassword {
		return ErrPasswordMismatch
	}
	account, err := s.find(ctx, accountID)
	if err != nil {
		return err
	}
	hash, err := s.checkAndHash(account, req.CurrentPassword, req.NewPassword)
	if err != nil {
		return err
	}
	return s.accounts.Update(ctx, accountID, map[string]any{"password_hash": hash})
}

func (s *Service) checkAndHash(account *db.Account, current, next string) (string, error) {
	ok, err := authn.CheckPassword(account.PasswordHash, current)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrWrongPassword
	}
	return authn.HashPassword(next)
}

// Delete removes the account and everything that refers to it in one
// transaction: lists and their entries, favourites, ratings (affected movie
// averages are recomputed), and friend requests and friendships on both sides.
func (s *Service) Delete(ctx context.Context, accountID uint64) error {
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewListRepository(tx).DeleteByOwner(ctx, accountID); err != nil {
			return fmt.Errorf("delete lists: %w", err)
		}
		if _, err := repository.NewFavoriteRepository(tx).Clear(ctx, accountID); err != nil {
			return fmt.Errorf("delete favourites: %w", err)
		}
		if err := repository.NewMovieRepository(tx).DeleteRatingsByAccount(ctx, accountID); err != nil {
			return fmt.Errorf("delete ratings: %w", err)
		}
		if err := repository.NewRelationshipRepository(tx).DeleteAllFor(ctx, accountID); err != nil {
			return fmt.Errorf("delete relationships: %w", err)
		}
		return repository.NewAccountRepository(tx).Delete(ctx, accountID)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAccountNotFound
	}
	if err != nil {
		return err
	}

	logger.FromContext(ctx, s.appCtx.Logger).Info("account deleted", "account_id", accountID)
	return nil
}

// ForgotPassword verifies the security question and answer and issues a
// single-use reset token.
//
// Behavior:
//   - The token's jti is recorded in redis for the token's lifetime; reset
//     consumes it, so each token works once.
func (s *Service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (*ResetGrant, error) {
	account, err := s.accounts.FindByEmail(ctx, req.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEmailUnknown
	}
	if err != nil {
		return nil, err
	}

	if account.SecurityQuestion != req.SecurityQuestion {
		return nil, ErrQuestionMismatch
	}
	ok, err := authn.CheckAnswer(account.SecurityAnswerHash, req.SecurityAnswer)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWrongAnswer
	}

	token, jti, err := s.appCtx.Tokens.GenerateResetToken(account.ID)
	if err != nil {
		return nil, err
	}
	key := cache.KeyForResetToken(jti)
	if err := s.appCtx.RedisCache.Set(ctx, key, strconv.FormatUint(account.ID, 10), s.appCtx.Tokens.ResetTTL()); err != nil {
		return nil, fmt.Errorf("store reset token: %w", err)
	}

	return &ResetGrant{
		Message:    "Security verification successful",
		ResetToken: token,
		UserID:     account.ID,
	}, nil
}

// ResetPassword sets a new password using a token from ForgotPassword.
// Invalid, expired, wrong-purpose and already-used tokens all fail with
// authn.ErrResetTokenInvalid.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	claims, err := s.appCtx.Tokens.ValidateResetToken(req.ResetToken)
	if err != nil {
		return err
	}

	owner, ok, err := s.appCtx.RedisCache.Consume(ctx, cache.KeyForResetToken(claims.ID))
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if !ok || owner != strconv.FormatUint(claims.AccountID, 10) {
		return authn.ErrResetTokenInvalid
	}

	hash, err := authn.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.accounts.Update(ctx, claims.AccountID, map[string]any{"password_hash": hash}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authn.ErrResetTokenInvalid
		}
		return err
	}

	logger.FromContext(ctx, s.appCtx.Logger).Info("password reset", "account_id", claims.AccountID)
	return nil
}
