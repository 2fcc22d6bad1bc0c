package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"incubator-backend/internal/repository"
)

const (
	errDispatchCommand = "failed to dispatch command"
	errListCommands    = "failed to list commands"
)

type dispatchRequest struct {
	Cmd    string         `json:"cmd" binding:"required"`
	Params map[string]any `json:"params"`
}

// dispatchCommand records the command and attempts delivery. The response
// always carries the resulting status; a failed publish is a visible
// outcome (status "failed"), not an HTTP error.
func (h *Handler) dispatchCommand(c *gin.Context) {
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}

	cmd, err := h.services.Commands.Dispatch(c.Request.Context(), c.Param("id"), req.Cmd, req.Params)
	if err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": msgDeviceNotFound})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errDispatchCommand, "command_dispatch_failed", err, "device", c.Param("id"))
		return
	}
	c.JSON(http.StatusCreated, cmd)
}

func (h *Handler) listCommands(c *gin.Context) {
	cmds, err := h.services.Commands.History(c.Request.Context(), c.Param("id"), parseLimitQuery(c))
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListCommands, "command_list_failed", err, "device", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, cmds)
}
