// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"ielts-tutor-go/internal/model"
	"ielts-tutor-go/internal/repository"
	"ielts-tutor-go/pkg/errs"
	"ielts-tutor-go/pkg/hash"
	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/token"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthResult 是注册、登录与刷新 token 的返回值。
type AuthResult struct {
	User         *model.User `json:"user"`
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
}

// UserService 接口定义了所有与用户相关的业务操作。
type UserService interface {
	Register(ctx context.Context, email, password, name string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	Logout(ctx context.Context, tokenString string) error
	RefreshToken(ctx context.Context, refreshTokenString string) (*AuthResult, error)
}

// userService 是 UserService 接口的实现。
type userService struct {
	userRepo   repository.UserRepository
	tokenRepo  repository.TokenRepository
	jwtManager *token.JWTManager
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository, tokenRepo repository.TokenRepository, jwtManager *token.JWTManager) UserService {
	return &userService{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		jwtManager: jwtManager,
	}
}

func validateCredentials(email, password string) error {
	var problems []string
	if email == "" {
		problems = append(problems, "email is required")
	}
	if password == "" {
		problems = append(problems, "password is required")
	}
	if len(problems) > 0 {
		return errs.NewValidation("Validation failed", problems...)
	}
	if !emailPattern.MatchString(email) {
		return errs.NewValidation("Invalid email format", "Invalid email format")
	}
	return nil
}

// Register 处理用户注册的业务逻辑。
func (s *userService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	// 1. 检查邮箱是否已注册
	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, &errs.ConflictError{Message: "User already exists", Code: errs.CodeEmailExists}
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	// 2. 对密码进行哈希处理
	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}

	// 3. 创建新用户
	user := &model.User{
		Email:    email,
		Password: hashedPassword,
		Name:     strings.TrimSpace(name),
		Role:     model.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	log.Infow("新用户注册", "userId", user.ID, "email", user.Email)

	return s.issue(user)
}

// Login 处理用户登录的业务逻辑。
func (s *userService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	// 1. 查找用户
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errs.ErrInvalidCredentials
		}
		return nil, err
	}

	// 2. 验证密码
	if !hash.CheckPasswordHash(password, user.Password) {
		return nil, errs.ErrInvalidCredentials
	}

	// 3. 生成 access token 和 refresh token
	return s.issue(user)
}

func (s *userService) issue(user *model.User) (*AuthResult, error) {
	accessToken, err := s.jwtManager.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: accessToken, RefreshToken: refreshToken}, nil
}

// GetProfile 根据用户 ID 获取用户详细信息。
func (s *userService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errs.NewNotFound("User", errs.CodeUserNotFound)
		}
		return nil, err
	}
	return user, nil
}

// Logout 处理用户登出逻辑，将 token 的 jti 加入 Redis 黑名单，过期时间为 token 的剩余有效期。
func (s *userService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.jwtManager.VerifyToken(tokenString)
	if err != nil {
		return &errs.UnauthorizedError{Message: "Invalid token", Code: errs.CodeInvalidToken}
	}
	return s.tokenRepo.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
}

// RefreshToken 使用 refresh token 换取新的 token 对，旧的 refresh token 随即失效。
func (s *userService) RefreshToken(ctx context.Context, refreshTokenString string) (*AuthResult, error) {
	claims, err := s.jwtManager.VerifyToken(refreshTokenString)
	if err != nil || claims.TokenType != token.TypeRefresh {
		return nil, &errs.UnauthorizedError{Message: "Invalid refresh token", Code: errs.CodeInvalidToken}
	}

	revoked, err := s.tokenRepo.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check refresh token: %w", err)
	}
	if revoked {
		return nil, &errs.UnauthorizedError{Message: "Refresh token has been revoked", Code: errs.CodeInvalidToken}
	}

	user, err := s.GetProfile(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.tokenRepo.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		log.Warnw("注销旧 refresh token 失败", "userId", user.ID, "error", err)
	}
	return s.issue(user)
}
