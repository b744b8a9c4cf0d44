// controllers/item_controller.go
package controllers

import (
	"net/http"

	"Gin_postgres_redis_lendshare/app"
	"Gin_postgres_redis_lendshare/db"
	"Gin_postgres_redis_lendshare/service"

	"github.com/gin-gonic/gin"
)

type ItemController struct{ *Srv }

func NewItemController(s *Srv) *ItemController { return &ItemController{Srv: s} }

// ===== categories =====

func (ic *ItemController) ListCategories(c *gin.Context) {
	cats, err := ic.Core.Catalog.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"categories": cats})
}

// 管理员
func (ic *ItemController) CreateCategory(c *gin.Context) {
	var in struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	cat, err := ic.Core.Catalog.CreateCategory(c.Request.Context(), in.Name, in.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (ic *ItemController) DeleteCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := ic.Core.Catalog.DeleteCategory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// ===== items =====

type itemBody struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	CategoryID  string `json:"category_id"`
	Condition   string `json:"condition"`
}

func (ic *ItemController) CreateItem(c *gin.Context) {
	var in itemBody
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	if !bodyIDs(c, "category_id", in.CategoryID) {
		return
	}
	it, err := ic.Core.Catalog.CreateItem(c.Request.Context(), currentUserID(c), service.ItemInput{
		Title:       in.Title,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		Condition:   in.Condition,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, it)
}

// GET /items?q=&category=&status=&condition=&owner=&page=&size=
func (ic *ItemController) ListItems(c *gin.Context) {
	if !bodyIDs(c, "category", c.Query("category"), "owner", c.Query("owner")) {
		return
	}
	page, size := pageParams(c)
	res, err := ic.Core.Catalog.ListItems(c.Request.Context(), db.ItemsQuery{
		Q:          c.Query("q"),
		CategoryID: c.Query("category"),
		Status:     c.Query("status"),
		Condition:  c.Query("condition"),
		OwnerID:    c.Query("owner"),
		Page:       page,
		Size:       size,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (ic *ItemController) GetItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	it, err := ic.Core.Catalog.GetItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

// PATCH /items/:id，缺省字段不改；category_id 传空串清空分类
func (ic *ItemController) UpdateItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		CategoryID  *string `json:"category_id"`
		Condition   *string `json:"condition"`
		Status      *string `json:"status"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	if in.CategoryID != nil && !bodyIDs(c, "category_id", *in.CategoryID) {
		return
	}
	it, err := ic.Core.Catalog.UpdateItem(c.Request.Context(), currentUserID(c), id, service.ItemPatch{
		Title:       in.Title,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		Condition:   in.Condition,
		Status:      in.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

func (ic *ItemController) DeleteItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := ic.Core.Catalog.DeleteItem(c.Request.Context(), currentUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /admin/items?q=&status=out|in|overdue|under_review
func (ic *ItemController) AdminOverview(c *gin.Context) {
	page, size := pageParams(c)
	res, err := ic.Core.Catalog.AdminOverview(c.Request.Context(), db.AdminItemsQuery{
		Q:      c.Query("q"),
		Status: c.Query("status"),
		Page:   page,
		Size:   size,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
