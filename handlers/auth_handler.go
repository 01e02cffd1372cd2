package handlers

import (
	"errors"

	"content-hub-cms/helper"
	"content-hub-cms/middleware"
	"content-hub-cms/models"
	"content-hub-cms/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService services.AuthService
	Helper      *helper.HTTPHelper
}

func NewAuthHandler(authService services.AuthService, h *helper.HTTPHelper) *AuthHandler {
	return &AuthHandler{authService: authService, Helper: h}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !h.Helper.BindJSON(c, &req) {
		return
	}

	response, err := h.authService.Register(req)
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	h.Helper.SendSuccess(c, gin.H{"token": response.Token, "user": response.User})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !h.Helper.BindJSON(c, &req) {
		return
	}

	response, err := h.authService.Login(req)
	if err != nil {
		var rule *models.BusinessRuleError
		if errors.As(err, &rule) {
			h.Helper.SendUnauthorizedError(c, rule.Error())
			return
		}
		h.Helper.SendError(c, err)
		return
	}

	h.Helper.SendSuccess(c, gin.H{"token": response.Token, "user": response.User})
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		h.Helper.SendUnauthorizedError(c, "User not found in context")
		return
	}

	user, err := h.authService.GetUserByID(actor.ID)
	if err != nil {
		h.Helper.SendError(c, err)
		return
	}

	h.Helper.SendSuccess(c, gin.H{"user": user})
}
