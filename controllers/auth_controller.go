package controllers

import (
	"net/http"
	"time"

	"Gin_postgres_redis_lendshare/app"
	"Gin_postgres_redis_lendshare/service"

	"github.com/gin-gonic/gin"
)

// POST /auth/register
func (s *Srv) Register(c *gin.Context) {
	var in struct {
		Username  string `json:"username" binding:"required"`
		Email     string `json:"email" binding:"required"`
		Password  string `json:"password" binding:"required"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Location  string `json:"location"`
		Bio       string `json:"bio"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	u, err := s.Core.Accounts.Register(c.Request.Context(), service.RegisterInput{
		Username:  in.Username,
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Location:  in.Location,
		Bio:       in.Bio,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// POST /auth/login -> bearer token
func (s *Srv) Login(c *gin.Context) {
	var in struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.Core.Accounts.Login(c.Request.Context(), in.Email, in.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /auth/logout 只清 cookie 会话；bearer token 由客户端丢弃
func (s *Srv) Logout(c *gin.Context) {
	if s.AppSess != nil {
		if ck, err := c.Request.Cookie(app.AppSessionCookie); err == nil && ck.Value != "" {
			_ = s.AppSess.Delete(c.Request.Context(), ck.Value)
		}
	}
	s.setAppCookie(c.Writer, "", -time.Second)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

func (s *Srv) WhoAmI(c *gin.Context) {
	c.JSON(http.StatusOK, app.H{
		"user_id":  currentUserID(c),
		"username": c.GetString(app.CtxUsername),
		"is_admin": c.GetBool(app.CtxIsAdmin),
	})
}
