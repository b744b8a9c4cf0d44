package controllers

import (
	"net/http"

	"Gin_postgres_redis_lendshare/app"
	"Gin_postgres_redis_lendshare/service"

	"github.com/gin-gonic/gin"
)

type RatingController struct{ *Srv }

func NewRatingController(s *Srv) *RatingController { return &RatingController{Srv: s} }

// POST /ratings
func (rc *RatingController) Submit(c *gin.Context) {
	var in struct {
		ToUserID string `json:"to_user" binding:"required"`
		ItemID   string `json:"item" binding:"required"`
		Stars    int    `json:"stars"`
		Message  string `json:"message"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	if !bodyIDs(c, "to_user", in.ToUserID, "item", in.ItemID) {
		return
	}
	rt, err := rc.Core.Ratings.Submit(c.Request.Context(), currentUserID(c), service.SubmitRatingInput{
		ToUserID: in.ToUserID,
		ItemID:   in.ItemID,
		Stars:    in.Stars,
		Message:  in.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rt)
}

// GET /ratings 我给出的和收到的
func (rc *RatingController) ListMine(c *gin.Context) {
	rs, err := rc.Core.Ratings.ListMine(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ratings": rs})
}

// GET /ratings/item/:item_id
func (rc *RatingController) ListForItem(c *gin.Context) {
	id, ok := pathID(c, "item_id")
	if !ok {
		return
	}
	rs, err := rc.Core.Ratings.ListForItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ratings": rs})
}
