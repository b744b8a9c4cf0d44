package controllers

import (
	"net/http"

	"Gin_postgres_redis_lendshare/app"
	"Gin_postgres_redis_lendshare/service"
	"Gin_postgres_redis_lendshare/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserController struct {
	core    *service.Core
	appSess *session.AppSessionStore
}

func GetUserController(core *service.Core, appSess *session.AppSessionStore) *UserController {
	return &UserController{core: core, appSess: appSess}
}

// GET /users/me
func (uc *UserController) Me(c *gin.Context) {
	u, err := uc.core.Accounts.Profile(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// PATCH /users/me
func (uc *UserController) UpdateMe(c *gin.Context) {
	var in struct {
		DisplayName *string `json:"display_name"`
		FirstName   *string `json:"first_name"`
		LastName    *string `json:"last_name"`
		Location    *string `json:"location"`
		Bio         *string `json:"bio"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	u, err := uc.core.Accounts.UpdateProfile(c.Request.Context(), currentUserID(c), service.ProfilePatch{
		DisplayName: in.DisplayName,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Location:    in.Location,
		Bio:         in.Bio,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// GET /users/me/stats
func (uc *UserController) MyStats(c *gin.Context) {
	st, err := uc.core.Stats.For(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// GET /users/:id 公开资料
func (uc *UserController) PublicUser(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid uuid"})
		return
	}
	p, err := uc.core.Accounts.PublicProfile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GET /admin/users?q=alice&page=1&size=20
func (uc *UserController) ListUsers(c *gin.Context) {
	page, size := pageParams(c)
	res, err := uc.core.Accounts.ListUsers(c.Request.Context(), c.Query("q"), page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"total": res.Total,
		"users": res.Users,
	})
}

// DELETE /admin/users/:id 停用账号并撤销它的所有会话
func (uc *UserController) DeactivateUser(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "invalid uuid"})
		return
	}
	if err := uc.core.Accounts.Deactivate(c.Request.Context(), currentUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	if uc.appSess != nil {
		_ = uc.appSess.RevokeAllForUser(c.Request.Context(), id)
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
