package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type testTypeRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h HandlerSet) ListTestTypes(c *gin.Context) {
	types, err := h.testTypes.List(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": types})
}

func (h HandlerSet) CreateTestType(c *gin.Context) {
	var req testTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Test type name is required")
		return
	}
	created, err := h.testTypes.Create(c.Request.Context(), req.Name)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h HandlerSet) UpdateTestType(c *gin.Context) {
	var req testTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Test type name is required")
		return
	}
	updated, err := h.testTypes.Update(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h HandlerSet) DeleteTestType(c *gin.Context) {
	if err := h.testTypes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
