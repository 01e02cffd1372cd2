package handlers

import (
	"context"
	"strconv"

	"content-hub-cms/helper"
	"content-hub-cms/middleware"
	"content-hub-cms/models"
	"content-hub-cms/services"

	"github.com/gin-gonic/gin"
)

type SubmissionHandler struct {
	submissionService services.SubmissionService
	Helper            *helper.HTTPHelper
}

func NewSubmissionHandler(submissionService services.SubmissionService, h *helper.HTTPHelper) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService, Helper: h}
}

func (h *SubmissionHandler) CreateDraft(c *gin.Context) {
	h.create(c, h.submissionService.CreateDraft)
}

func (h *SubmissionHandler) SubmitNew(c *gin.Context) {
	h.create(c, h.submissionService.SubmitNew)
}

type createFunc func(ctx context.Context, actor models.Actor, req models.SubmissionRequest) (uint, error)

func (h *SubmissionHandler) create(c *gin.Context, create createFunc) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req models.SubmissionRequest
	if !h.Helper.BindJSON(c, &req) {
		return
	}

	id, err := create(c.Request.Context(), actor, req)
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}
	h.Helper.SendSuccess(c, gin.H{"id": id})
}

func (h *SubmissionHandler) Update(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	var req models.SubmissionRequest
	if !h.Helper.BindJSON(c, &req) {
		return
	}
	h.respond(c, id, h.submissionService.Update(c.Request.Context(), actor, id, req))
}

func (h *SubmissionHandler) Submit(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	var req *models.SubmissionRequest
	if hasBody(c) {
		req = &models.SubmissionRequest{}
		if !h.Helper.BindJSON(c, req) {
			return
		}
	}
	h.respond(c, id, h.submissionService.Submit(c.Request.Context(), actor, id, req))
}

func (h *SubmissionHandler) RequestChanges(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	var req models.RequestChangesRequest
	if !h.Helper.BindJSON(c, &req) {
		return
	}
	h.respond(c, id, h.submissionService.RequestChanges(c.Request.Context(), actor, id, req))
}

func (h *SubmissionHandler) Accept(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	var req models.AcceptRequest
	if hasBody(c) && !h.Helper.BindJSON(c, &req) {
		return
	}
	h.respond(c, id, h.submissionService.Accept(c.Request.Context(), actor, id, req))
}

func (h *SubmissionHandler) Reject(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	var req models.RejectRequest
	if !h.Helper.BindJSON(c, &req) {
		return
	}
	h.respond(c, id, h.submissionService.Reject(c.Request.Context(), actor, id, req))
}

func (h *SubmissionHandler) Reconsider(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	var req models.ReconsiderRequest
	if !h.Helper.BindJSON(c, &req) {
		return
	}
	h.respond(c, id, h.submissionService.Reconsider(c.Request.Context(), actor, id, req))
}

func (h *SubmissionHandler) Delete(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	h.respond(c, id, h.submissionService.Delete(c.Request.Context(), actor, id))
}

func (h *SubmissionHandler) AssignModerator(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	var req models.AssignModeratorRequest
	if !h.Helper.BindJSON(c, &req) {
		return
	}
	h.respond(c, id, h.submissionService.AssignModerator(c.Request.Context(), actor, id, req))
}

func (h *SubmissionHandler) PostMessage(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	var req models.MessageRequest
	if !h.Helper.BindJSON(c, &req) {
		return
	}
	h.respond(c, id, h.submissionService.PostMessage(c.Request.Context(), actor, id, req))
}

func (h *SubmissionHandler) Get(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	view, err := h.submissionService.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}
	h.Helper.SendSuccess(c, gin.H{"submission": view})
}

func (h *SubmissionHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var params models.SubmissionListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.Helper.SendBadRequest(c, "Invalid query: "+err.Error())
		return
	}
	views, err := h.submissionService.List(c.Request.Context(), actor, params)
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}
	h.Helper.SendSuccess(c, gin.H{"submissions": views})
}

func (h *SubmissionHandler) actor(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		h.Helper.SendUnauthorizedError(c, "User not found in context")
	}
	return actor, ok
}

// target resolves the caller and the :id path parameter. An id that does
// not parse names no submission.
func (h *SubmissionHandler) target(c *gin.Context) (models.Actor, uint, bool) {
	actor, ok := h.actor(c)
	if !ok {
		return actor, 0, false
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		h.Helper.SendError(c, models.NewNotFoundError("submission"))
		return actor, 0, false
	}
	return actor, uint(id), true
}

func (h *SubmissionHandler) respond(c *gin.Context, id uint, err error) {
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}
	h.Helper.SendSuccess(c, gin.H{"id": id})
}

func hasBody(c *gin.Context) bool {
	return c.Request.Body != nil && c.Request.ContentLength != 0
}
