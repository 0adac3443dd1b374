// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ielts-tutor-go/internal/model"
	"ielts-tutor-go/pkg/errs"
	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/response"
	"ielts-tutor-go/pkg/token"
)

const (
	// UserKey 是 gin.Context 中保存 *model.User 的键
	UserKey = "user"
	// ClaimsKey 是 gin.Context 中保存 *token.CustomClaims 的键
	ClaimsKey = "claims"
	// TokenKey 是 gin.Context 中保存原始 token 的键
	TokenKey = "token"
)

// UserLoader 根据 ID 加载用户，由 service.UserService 实现。
type UserLoader interface {
	GetProfile(ctx context.Context, userID string) (*model.User, error)
}

// RevocationChecker 判断 token 是否已被注销，由 repository.TokenRepository 实现。
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Authenticator 校验请求中的 access token。
type Authenticator struct {
	jwtManager *token.JWTManager
	users      UserLoader
	revoked    RevocationChecker
}

// NewAuthenticator 创建 Authenticator。revoked 为 nil 时不检查黑名单。
func NewAuthenticator(jwtManager *token.JWTManager, users UserLoader, revoked RevocationChecker) *Authenticator {
	return &Authenticator{jwtManager: jwtManager, users: users, revoked: revoked}
}

// bearerToken 从 Authorization 请求头中提取 "Bearer <token>" 的 token 部分。
func bearerToken(c *gin.Context) (string, bool) {
	const bearerPrefix = "Bearer "
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", false
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
	return tokenString, tokenString != ""
}

// Authenticate 校验 token 并加载用户，失败时返回 UnauthorizedError。
// 供 HTTP 中间件与 WebSocket 握手共用。
func (a *Authenticator) Authenticate(ctx context.Context, tokenString string) (*model.User, *token.CustomClaims, error) {
	claims, err := a.jwtManager.VerifyToken(tokenString)
	if err != nil || claims.TokenType != token.TypeAccess {
		return nil, nil, &errs.UnauthorizedError{Message: "Invalid or expired token", Code: errs.CodeInvalidToken}
	}

	if a.revoked != nil {
		revoked, err := a.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			// Redis 不可用时放行，避免整个站点不可用
			log.Warnw("检查 token 黑名单失败", "userId", claims.UserID, "error", err)
		} else if revoked {
			return nil, nil, &errs.UnauthorizedError{Message: "Token has been revoked", Code: errs.CodeInvalidToken}
		}
	}

	user, err := a.users.GetProfile(ctx, claims.UserID)
	if err != nil {
		// 用户可能已被删除
		return nil, nil, &errs.UnauthorizedError{Message: "User not found", Code: errs.CodeUserNotFound}
	}
	return user, claims, nil
}

// Required 创建一个 Gin 中间件，要求请求携带有效的 access token。
// 完整的 User 对象与 claims 会存入 Gin 的上下文中。
func (a *Authenticator) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "Authorization header is missing or malformed")
			c.Abort()
			return
		}

		user, claims, err := a.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			response.FromError(c, err, "Authentication failed")
			c.Abort()
			return
		}

		c.Set(UserKey, user)
		c.Set(ClaimsKey, claims)
		c.Set(TokenKey, tokenString)
		c.Next()
	}
}

// Optional 在携带有效 token 时写入用户信息，否则按匿名请求继续处理。
func (a *Authenticator) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := bearerToken(c); ok {
			if user, claims, err := a.Authenticate(c.Request.Context(), tokenString); err == nil {
				c.Set(UserKey, user)
				c.Set(ClaimsKey, claims)
				c.Set(TokenKey, tokenString)
			}
		}
		c.Next()
	}
}

// CurrentUser 返回认证中间件写入的用户，匿名请求返回 nil。
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}

// CurrentUserID 返回当前用户 ID，匿名请求返回空字符串。
func CurrentUserID(c *gin.Context) string {
	if user := CurrentUser(c); user != nil {
		return user.ID
	}
	return ""
}

// AdminRequired 检查用户是否具有管理员权限，必须在 Required 之后使用。
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			response.Internal(c, "User information is unavailable")
			c.Abort()
			return
		}
		if !user.IsAdmin() {
			response.Error(c, http.StatusForbidden, errs.CodeInsufficientRole, "Admin role required")
			c.Abort()
			return
		}
		c.Next()
	}
}
