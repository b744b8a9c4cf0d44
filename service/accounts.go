package service

import (
	"context"
	"strings"
	"time"

	"Gin_postgres_redis_lendshare/auth"
	"Gin_postgres_redis_lendshare/db"
	"Gin_postgres_redis_lendshare/models"

	"github.com/google/uuid"
)

type Accounts struct {
	repo    *db.Repo
	signer  *auth.Signer
	isAdmin func(email string) bool
}

type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Location  string
	Bio       string
}

func (a *Accounts) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, validationf("username, email and password are required")
	}
	if !strings.Contains(in.Email, "@") {
		return nil, validationf("invalid email")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	display := strings.TrimSpace(in.FirstName + " " + in.LastName)
	if display == "" {
		display = in.Username
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		DisplayName:  display,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Location:     strings.TrimSpace(in.Location),
		Bio:          strings.TrimSpace(in.Bio),
		IsActive:     true,
		IsAdmin:      a.isAdmin(in.Email),
	}
	if err := a.repo.CreateUser(ctx, u); err != nil {
		if db.IsDuplicateKey(err) {
			return nil, validationf("username or email already taken")
		}
		return nil, err
	}
	return u, nil
}

type LoginResult struct {
	Token     string       `json:"access_token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Login 校验邮箱密码并签发 access token；找不到用户和密码错误返回同一个错误
func (a *Accounts) Login(ctx context.Context, email, password, ip, ua string) (*LoginResult, error) {
	u, err := a.repo.FindUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, authf("invalid email or password")
		}
		return nil, err
	}
	if u.PasswordHash == "" || !auth.CheckPassword(u.PasswordHash, password) {
		return nil, authf("invalid email or password")
	}
	if !u.IsActive {
		return nil, authf("account is disabled")
	}
	return a.IssueToken(ctx, u, ip, ua)
}

// IssueToken records the login and signs a bearer token for u.
func (a *Accounts) IssueToken(ctx context.Context, u *models.User, ip, ua string) (*LoginResult, error) {
	if a.signer == nil {
		return nil, authf("token login is not configured")
	}
	_ = a.repo.TouchUserLogin(ctx, u.ID, ip, ua)
	tok, exp, err := a.signer.CreateAccessToken(u.ID, u.Username)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: tok, TokenType: "Bearer", ExpiresAt: exp, User: u}, nil
}

func (a *Accounts) Profile(ctx context.Context, userID string) (*models.User, error) {
	u, err := a.repo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	return u, nil
}

func (a *Accounts) PublicProfile(ctx context.Context, userID string) (*models.PublicUser, error) {
	u, err := a.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := u.Public()
	return &p, nil
}

type ProfilePatch struct {
	DisplayName *string
	FirstName   *string
	LastName    *string
	Location    *string
	Bio         *string
}

func (a *Accounts) UpdateProfile(ctx context.Context, userID string, p ProfilePatch) (*models.User, error) {
	fields := map[string]any{}
	set := func(col string, v *string) {
		if v != nil {
			fields[col] = strings.TrimSpace(*v)
		}
	}
	if p.DisplayName != nil && strings.TrimSpace(*p.DisplayName) == "" {
		return nil, validationf("display_name must not be empty")
	}
	set("display_name", p.DisplayName)
	set("first_name", p.FirstName)
	set("last_name", p.LastName)
	set("location", p.Location)
	set("bio", p.Bio)
	if len(fields) > 0 {
		if err := a.repo.UpdateUser(ctx, userID, fields); err != nil {
			return nil, notFoundOr(err, "user")
		}
	}
	return a.Profile(ctx, userID)
}

// Admin

func (a *Accounts) ListUsers(ctx context.Context, q string, page, size int) (db.ListUsersResult, error) {
	return a.repo.ListUsers(ctx, q, page, size)
}

// Deactivate 停用账号；管理员不能停用自己
func (a *Accounts) Deactivate(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return validationf("you cannot deactivate yourself")
	}
	return notFoundOr(a.repo.SetUserActive(ctx, userID, false), "user")
}
