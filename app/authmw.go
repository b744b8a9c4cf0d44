package app

import (
	"net/http"
	"strings"

	"Gin_postgres_redis_lendshare/auth"
	"Gin_postgres_redis_lendshare/config"
	"Gin_postgres_redis_lendshare/db"
	"Gin_postgres_redis_lendshare/session"

	"github.com/gin-gonic/gin"
)

const AppSessionCookie = "lend_session"

// gin.Context keys set by AuthRequired
const (
	CtxUserID   = "userID"
	CtxUsername = "username"
	CtxIsAdmin  = "isAdmin"
)

// AuthRequired 先看 Bearer token，再看 cookie 会话；appSess 为 nil 时只接受 token
func AuthRequired(appSess *session.AppSessionStore, tokens *auth.Signer, repo *db.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var uid string
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			claims, err := tokens.ParseValidate(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid token"})
				return
			}
			uid = claims.Sub
		} else if appSess != nil {
			ck, err := c.Request.Cookie(AppSessionCookie)
			if err != nil || ck.Value == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "authentication required"})
				return
			}
			as, err := appSess.Get(ctx, ck.Value)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid session"})
				return
			}
			uid = as.UserID
		} else {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "authentication required"})
			return
		}

		// 确认用户仍存在且未停用
		u, err := repo.FindUserByID(ctx, uid)
		if err != nil || !u.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "authentication required"})
			return
		}
		c.Set(CtxUserID, u.ID)
		c.Set(CtxUsername, u.Username)
		c.Set(CtxIsAdmin, u.IsAdmin)
		c.Next()
	}
}

// AdminOnly must run after AuthRequired.
func AdminOnly(cfg config.Config, repo *db.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString(CtxUserID)
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "authentication required"})
			return
		}
		if c.GetBool(CtxIsAdmin) {
			c.Next()
			return
		}
		// ADMIN_EMAILS 里的人即使还没被 bootstrap 提升也放行
		u, err := repo.FindUserByID(c.Request.Context(), uid)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "authentication required"})
			return
		}
		if !cfg.IsAdminEmail(u.Email) {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "admin only"})
			return
		}
		c.Next()
	}
}
