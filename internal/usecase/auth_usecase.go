package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// JWTを発行する約束。実装はcmd側（署名シークレットはそちらが持つ）。
type TokenIssuer interface {
	Issue(user model.User, now time.Time) (token string, expiresAt time.Time, err error)
}

// AuthUsecase は会員登録とログイン。
// 作られるのはUSERのみで、STAFF/ADMINは運用側でのみ作成する。
type AuthUsecase struct {
	userRepo   repo.UserRepository
	issuer     TokenIssuer
	clock      Clock
	bcryptCost int
}

func NewAuthUsecase(userRepo repo.UserRepository, issuer TokenIssuer, clock Clock, bcryptCost int) *AuthUsecase {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthUsecase{
		userRepo:   userRepo,
		issuer:     issuer,
		clock:      clock,
		bcryptCost: bcryptCost,
	}
}

type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
}

type UserOutput struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (UserOutput, error) {
	email := strings.TrimSpace(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return UserOutput{}, NewHTTPError(http.StatusBadRequest, "invalid email format")
	}
	if len(in.Password) < 12 {
		return UserOutput{}, NewHTTPError(http.StatusBadRequest, "password too short")
	}

	//email重複チェック
	_, err := u.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return UserOutput{}, NewHTTPError(http.StatusConflict, "email already exists")
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return UserOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), u.bcryptCost)
	if err != nil {
		return UserOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	now := u.clock.Now()
	user := &model.User{
		Email:        email,
		PasswordHash: string(hashed),
		FullName:     strings.TrimSpace(in.FullName),
		Phone:        strings.TrimSpace(in.Phone),
		Role:         model.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := u.userRepo.Create(ctx, user); err != nil {
		//FindByEmailとCreateの間に同じemailで登録が割り込んだ場合
		if errors.Is(err, repo.ErrDuplicate) {
			return UserOutput{}, NewHTTPError(http.StatusConflict, "email already exists")
		}
		return UserOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return toUserOutput(*user), nil
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginOutput struct {
	AccessToken string     `json:"access_token"`
	ExpiresAt   time.Time  `json:"expires_at"`
	User        UserOutput `json:"user"`
}

func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (LoginOutput, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return LoginOutput{}, NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	user, err := u.userRepo.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		//存在有無を漏らさない
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	if err != nil {
		return LoginOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !user.IsActive {
		return LoginOutput{}, NewHTTPError(http.StatusForbidden, "account is disabled")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}

	token, expiresAt, err := u.issuer.Issue(user, u.clock.Now())
	if err != nil {
		return LoginOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return LoginOutput{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        toUserOutput(user),
	}, nil
}

func toUserOutput(u model.User) UserOutput {
	return UserOutput{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Phone:    u.Phone,
		Role:     string(u.Role),
	}
}
