// README: Workflow endpoints: submit and resolve start/finish requests.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"convoy/internal/modules/request"
	"convoy/internal/modules/workflow"
)

type Workflow interface {
	RequestStart(ctx context.Context, cmd workflow.RequestStartCommand) (*request.Request, error)
	RequestFinish(ctx context.Context, cmd workflow.RequestFinishCommand) (*request.Request, error)
	ApproveStart(ctx context.Context, cmd workflow.ApproveCommand) error
	RejectStart(ctx context.Context, cmd workflow.RejectCommand) error
	ApproveFinish(ctx context.Context, cmd workflow.ApproveCommand) error
	RejectFinish(ctx context.Context, cmd workflow.RejectCommand) error
}

type WorkflowHandler struct {
	engine Workflow
}

func NewWorkflowHandler(engine Workflow) *WorkflowHandler {
	return &WorkflowHandler{engine: engine}
}

func (h *WorkflowHandler) RequestStart(c *gin.Context) {
	id, ok := tripIDParam(c)
	if !ok {
		return
	}
	if !workflow.Permits(callerRole(c), workflow.ActionRequestStart) {
		writeError(c, http.StatusForbidden, "only drivers may request a start")
		return
	}
	req, err := h.engine.RequestStart(c.Request.Context(), workflow.RequestStartCommand{
		TripID:   id,
		DriverID: callerID(c),
	})
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"request": toRequestJSON(req)})
}

func (h *WorkflowHandler) RequestFinish(c *gin.Context) {
	id, ok := tripIDParam(c)
	if !ok {
		return
	}
	if !workflow.Permits(callerRole(c), workflow.ActionRequestFinish) {
		writeError(c, http.StatusForbidden, "only drivers may request a finish")
		return
	}
	req, err := h.engine.RequestFinish(c.Request.Context(), workflow.RequestFinishCommand{
		TripID:   id,
		DriverID: callerID(c),
	})
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"request": toRequestJSON(req)})
}

func (h *WorkflowHandler) ApproveStart(c *gin.Context) {
	h.approve(c, h.engine.ApproveStart)
}

func (h *WorkflowHandler) ApproveFinish(c *gin.Context) {
	h.approve(c, h.engine.ApproveFinish)
}

func (h *WorkflowHandler) approve(c *gin.Context, op func(context.Context, workflow.ApproveCommand) error) {
	id, ok := tripIDParam(c)
	if !ok {
		return
	}
	err := op(c.Request.Context(), workflow.ApproveCommand{
		TripID:   id,
		Approver: workflow.Actor{ID: callerID(c), Role: callerRole(c)},
	})
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "approved"})
}

type rejectReq struct {
	Reason       string `json:"reason"`
	CooldownDays int    `json:"cooldown_days"`
}

func (h *WorkflowHandler) RejectStart(c *gin.Context) {
	h.reject(c, h.engine.RejectStart)
}

func (h *WorkflowHandler) RejectFinish(c *gin.Context) {
	h.reject(c, h.engine.RejectFinish)
}

func (h *WorkflowHandler) reject(c *gin.Context, op func(context.Context, workflow.RejectCommand) error) {
	id, ok := tripIDParam(c)
	if !ok {
		return
	}
	var body rejectReq
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	err := op(c.Request.Context(), workflow.RejectCommand{
		TripID:       id,
		Approver:     workflow.Actor{ID: callerID(c), Role: callerRole(c)},
		Reason:       body.Reason,
		CooldownDays: body.CooldownDays,
	})
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "rejected"})
}
