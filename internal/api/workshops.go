package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// createWorkshopRequest is the body of the supplemented POST
// /workshops admin endpoint (see SPEC_FULL.md §4.5/§6).
type createWorkshopRequest struct {
	Name     string  `json:"name" binding:"required"`
	Address  *string `json:"address"`
	Logo     *string `json:"logo"`
	Capacity int     `json:"capacity"`
}

// POST /workshops (admin)
func (a *API) createWorkshop(c *gin.Context) {
	var req createWorkshopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, fail(err.Error()))
		return
	}

	w, err := a.Directory.Create(c.Request.Context(), req.Name, req.Address, req.Logo, req.Capacity)
	if err != nil {
		a.writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ok(w))
}

// GET /workshops (admin)
func (a *API) listWorkshops(c *gin.Context) {
	workshops, err := a.Directory.List(c.Request.Context())
	if err != nil {
		a.writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(workshops))
}

// GET /workshops/:workshopId (admin)
func (a *API) getWorkshop(c *gin.Context) {
	id, err := uuid.Parse(c.Param("workshopId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, fail("invalid workshop id"))
		return
	}
	w, err := a.Directory.Get(c.Request.Context(), id)
	if err != nil {
		a.writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(w))
}

type updateCapacityRequest struct {
	Capacity int `json:"capacity" binding:"required"`
}

// PATCH /workshops/:workshopId/capacity (admin)
func (a *API) updateCapacity(c *gin.Context) {
	id, err := uuid.Parse(c.Param("workshopId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, fail("invalid workshop id"))
		return
	}
	var req updateCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, fail(err.Error()))
		return
	}
	if err := a.Directory.UpdateCapacity(c.Request.Context(), id, req.Capacity); err != nil {
		a.writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, ok(gin.H{"message": "capacity updated"}))
}
