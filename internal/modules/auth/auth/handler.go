package auth

import (
	"errors"

	"github.com/drawing-gallery/core/internal/middleware"
	"github.com/drawing-gallery/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	a := rg.Group("/auth")
	a.POST("/login", h.login)
	a.GET("/session", authMW, h.session)
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token, expires, err := h.svc.Login(dto.Username, dto.Password)
	if err != nil {
		if errors.Is(err, errAuthWrongCredentials) || errors.Is(err, errAuthLoginDisabled) {
			response.ForbiddenMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, loginResponse{Token: token, ExpiresAt: expires, Username: dto.Username})
}

func (h *Handler) session(c *gin.Context) {
	response.OK(c, gin.H{"username": middleware.CurrentUsername(c)})
}
