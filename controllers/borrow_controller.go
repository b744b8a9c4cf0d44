package controllers

import (
	"fmt"
	"net/http"
	"time"

	"Gin_postgres_redis_lendshare/app"
	"Gin_postgres_redis_lendshare/service"

	"github.com/gin-gonic/gin"
)

type BorrowController struct{ *Srv }

func NewBorrowController(s *Srv) *BorrowController { return &BorrowController{Srv: s} }

// parseDate 接受 RFC3339 或 YYYY-MM-DD；空串返回 nil
func parseDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", v)
}

// borrower/owner 还接受 "me"
func borrowFilter(c *gin.Context) (service.BorrowFilter, bool) {
	party := func(v string) string {
		if v == service.Me {
			return ""
		}
		return v
	}
	if !bodyIDs(c, "borrower", party(c.Query("borrower")), "owner", party(c.Query("owner")), "item", c.Query("item")) {
		return service.BorrowFilter{}, false
	}
	page, size := pageParams(c)
	return service.BorrowFilter{
		Borrower: c.Query("borrower"),
		Owner:    c.Query("owner"),
		ItemID:   c.Query("item"),
		Status:   c.Query("status"),
		Page:     page,
		Size:     size,
	}, true
}

// ===== borrow requests =====

// POST /borrow-requests
func (bc *BorrowController) CreateRequest(c *gin.Context) {
	var in struct {
		ItemID    string `json:"item" binding:"required"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
		Message   string `json:"message"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	if !bodyIDs(c, "item", in.ItemID) {
		return
	}
	start, err := parseDate(in.StartDate)
	if err != nil {
		badRequest(c, err)
		return
	}
	end, err := parseDate(in.EndDate)
	if err != nil {
		badRequest(c, err)
		return
	}
	req, err := bc.Core.Borrow.CreateRequest(c.Request.Context(), currentUserID(c), service.CreateRequestInput{
		ItemID:    in.ItemID,
		StartDate: start,
		EndDate:   end,
		Message:   in.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// GET /borrow-requests?borrower=me&owner=&item=&status=
func (bc *BorrowController) ListRequests(c *gin.Context) {
	f, ok := borrowFilter(c)
	if !ok {
		return
	}
	res, err := bc.Core.Borrow.ListRequests(c.Request.Context(), currentUserID(c), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (bc *BorrowController) GetRequest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	req, err := bc.Core.Borrow.GetRequest(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

type statusBody struct {
	Status string `json:"status" binding:"required"`
}

// PATCH /borrow-requests/:id {"status":"approved"|"rejected"}
func (bc *BorrowController) UpdateRequest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in statusBody
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	req, err := bc.Core.Borrow.UpdateRequestStatus(c.Request.Context(), currentUserID(c), id, in.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// POST /borrow-requests/:id/cancel 借用人撤回
func (bc *BorrowController) CancelRequest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	req, err := bc.Core.Borrow.CancelRequest(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// ===== borrow records =====

func (bc *BorrowController) ListRecords(c *gin.Context) {
	f, ok := borrowFilter(c)
	if !ok {
		return
	}
	res, err := bc.Core.Borrow.ListRecords(c.Request.Context(), currentUserID(c), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (bc *BorrowController) GetRecord(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rec, err := bc.Core.Borrow.GetRecord(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// PATCH /borrow-records/:id {"status":"returned"|"late"|"overdue"}
func (bc *BorrowController) UpdateRecord(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in statusBody
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := bc.Core.Borrow.UpdateRecordStatus(c.Request.Context(), currentUserID(c), id, in.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ===== damage reports =====

func (bc *BorrowController) ReportDamage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in struct {
		Description string `json:"description" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	d, err := bc.Core.Borrow.ReportDamage(c.Request.Context(), currentUserID(c), id, in.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (bc *BorrowController) ListDamageReports(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ds, err := bc.Core.Borrow.ListDamageReports(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"reports": ds})
}

func (bc *BorrowController) ResolveDamageReport(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := bc.Core.Borrow.ResolveDamageReport(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
