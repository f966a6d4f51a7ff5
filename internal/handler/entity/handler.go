package entity

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbmc/portal-api/internal/handler"
	"github.com/kbmc/portal-api/internal/model"
	"github.com/kbmc/portal-api/internal/service/approval"
	apperrors "github.com/kbmc/portal-api/pkg/errors"
)

// Handler exposes PUT /edit_<kind>/:entityId for every configured entity kind.
type Handler struct {
	service approval.Servicer
}

func NewHandler(service approval.Servicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	for _, kind := range h.service.EntityKinds() {
		r.PUT("/edit_"+kind+"/:entityId", h.SetStatus(kind))
	}
}

type setStatusRequest struct {
	Status *int `json:"status" binding:"required"`
}

type statusResponse struct {
	Kind   string             `json:"kind"`
	ID     int64              `json:"id"`
	Status model.EntityStatus `json:"status"`
}

func (h *Handler) SetStatus(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := handler.ParseID(c, "entityId")
		if err != nil {
			handler.RespondError(c, err)
			return
		}

		var req setStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			handler.RespondBindError(c, err)
			return
		}

		status, err := model.EntityStatusFromCode(*req.Status)
		if err != nil {
			handler.RespondError(c, apperrors.NewBadRequest(err.Error(), err))
			return
		}

		if err := h.service.SetEntityStatus(c.Request.Context(), kind, id, status); err != nil {
			handler.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, handler.NewSuccessResponse(statusResponse{Kind: kind, ID: id, Status: status}))
	}
}
