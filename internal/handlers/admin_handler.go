package handlers

import (
	"context"
	"errors"
	"net/http"

	"campus_store/internal/scheduler"
	"campus_store/internal/services"

	"github.com/gin-gonic/gin"
)

// JobRunner runs a job under the scheduler's overlap guard.
type JobRunner interface {
	Do(ctx context.Context, job scheduler.Job) error
}

type AdminHandler struct {
	userService services.UserService
	autoConfirm services.AutoConfirmService
	runner      JobRunner
}

func NewAdminHandler(userService services.UserService, autoConfirm services.AutoConfirmService, runner JobRunner) *AdminHandler {
	return &AdminHandler{userService: userService, autoConfirm: autoConfirm, runner: runner}
}

func (h *AdminHandler) CreateStudent(c *gin.Context) {
	var req services.StudentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request format")
		return
	}
	user, err := h.userService.CreateStudent(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// RunAutoConfirm triggers the same reconciliation the daily schedule runs.
func (h *AdminHandler) RunAutoConfirm(c *gin.Context) {
	var result services.AutoConfirmResult
	job := func(ctx context.Context) error {
		var err error
		result, err = h.autoConfirm.Run(ctx)
		return err
	}

	var err error
	if h.runner != nil {
		err = h.runner.Do(c.Request.Context(), job)
	} else {
		err = job(c.Request.Context())
	}

	switch {
	case errors.Is(err, scheduler.ErrAlreadyRunning), errors.Is(err, scheduler.ErrLockHeld):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "message": err.Error()})
	case err != nil:
		respondError(c, err)
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
	}
}
