package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string `json:"status"`
	Store       string `json:"store"`
	Session     string `json:"session"`
	Environment string `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	storeStatus := "ok"
	if _, err := h.store.Snapshot(ctx); err != nil {
		storeStatus = "error"
		h.log.Error().Err(err).Msg("token store unreadable")
	}

	c.JSON(http.StatusOK, healthResponse{
		Status:      "ok",
		Store:       storeStatus,
		Session:     h.sessions.State().String(),
		Environment: h.cfg.Environment,
	})
}
