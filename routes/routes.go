package routes

import (
	"net/http"
	"time"

	"Gin_postgres_redis_lendshare/app"
	"Gin_postgres_redis_lendshare/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	uc := controllers.GetUserController(a.Core, s.AppSess)
	itemCtl := controllers.NewItemController(s)
	borrowCtl := controllers.NewBorrowController(s)
	ratingCtl := controllers.NewRatingController(s)
	noteCtl := controllers.NewNotificationController(s)

	// 复用的中间件
	authMW := app.AuthRequired(s.AppSess, a.Tokens, s.Repo)
	adminMW := app.AdminOnly(a.Config, s.Repo)
	seenMW := app.TouchLastSeen(s.Repo, a.RDB, 5*time.Minute)

	r.GET("/healthz", func(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"ok": true}) })

	// ------------------------------
	// 公开
	// ------------------------------
	r.POST("/auth/register", s.Register)
	r.POST("/auth/login", s.Login)
	r.POST("/webauthn/login/begin", s.BeginLogin)
	r.POST("/webauthn/login/finish", s.FinishLogin)

	r.GET("/categories", itemCtl.ListCategories)
	r.GET("/items", itemCtl.ListItems)
	r.GET("/items/:id", itemCtl.GetItem)
	r.GET("/users/:id", uc.PublicUser)
	r.GET("/ratings/item/:item_id", ratingCtl.ListForItem)

	// ------------------------------
	// 已登录
	// ------------------------------
	authed := r.Group("", authMW, seenMW)
	{
		authed.POST("/auth/logout", s.Logout)
		authed.GET("/auth/whoami", s.WhoAmI)

		// 已登录用户添加新凭据（绑定手机等）
		authed.POST("/webauthn/credentials/begin", s.BeginAddCredential)
		authed.POST("/webauthn/credentials/finish", s.FinishAddCredential)

		authed.GET("/users/me", uc.Me)
		authed.PATCH("/users/me", uc.UpdateMe)
		authed.GET("/users/me/stats", uc.MyStats)

		authed.POST("/items", itemCtl.CreateItem)
		authed.PATCH("/items/:id", itemCtl.UpdateItem)
		authed.DELETE("/items/:id", itemCtl.DeleteItem)

		authed.POST("/borrow-requests", borrowCtl.CreateRequest)
		authed.GET("/borrow-requests", borrowCtl.ListRequests) // ?borrower=me&owner=&item=&status=
		authed.GET("/borrow-requests/:id", borrowCtl.GetRequest)
		authed.PATCH("/borrow-requests/:id", borrowCtl.UpdateRequest)
		authed.POST("/borrow-requests/:id/cancel", borrowCtl.CancelRequest)

		authed.GET("/borrow-records", borrowCtl.ListRecords)
		authed.GET("/borrow-records/:id", borrowCtl.GetRecord)
		authed.PATCH("/borrow-records/:id", borrowCtl.UpdateRecord)
		authed.POST("/borrow-records/:id/damage-reports", borrowCtl.ReportDamage)
		authed.GET("/borrow-records/:id/damage-reports", borrowCtl.ListDamageReports)
		authed.PATCH("/damage-reports/:id/resolve", borrowCtl.ResolveDamageReport)

		authed.POST("/ratings", ratingCtl.Submit)
		authed.GET("/ratings", ratingCtl.ListMine)

		authed.GET("/notifications", noteCtl.List) // ?filter=all|unread|read
		authed.PATCH("/notifications/:id/read", noteCtl.MarkRead)
		authed.POST("/notifications/mark-all-read", noteCtl.MarkAllRead)
	}

	// ------------------------------
	// 仅管理员
	// ------------------------------
	admin := r.Group("", authMW, adminMW)
	{
		admin.POST("/categories", itemCtl.CreateCategory)
		admin.DELETE("/categories/:id", itemCtl.DeleteCategory)

		admin.GET("/admin/users", uc.ListUsers) // ?q=&page=&size=
		admin.DELETE("/admin/users/:id", uc.DeactivateUser)
		admin.GET("/admin/items", itemCtl.AdminOverview)
	}
}
