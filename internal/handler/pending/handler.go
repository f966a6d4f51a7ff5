package pending

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbmc/portal-api/internal/handler"
	"github.com/kbmc/portal-api/internal/model"
	"github.com/kbmc/portal-api/internal/service/approval"
)

type Handler struct {
	service approval.Servicer
}

func NewHandler(service approval.Servicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	pending := r.Group("/admin-notifications")
	{
		pending.GET("", h.ListPending)
		pending.POST("", h.CreatePending)
		pending.GET("/:id", h.GetPending)
		pending.PUT("/:id", h.AttachRemark)
		pending.DELETE("/:id", h.DeletePending)

		pending.POST("/:id/approve", h.Approve)
		pending.POST("/:id/disapprove", h.Disapprove)
		pending.POST("/:id/remark", h.SubmitRemark)
	}
}

type createPendingRequest struct {
	NewID       int64  `json:"new_id" binding:"required,gt=0"`
	Name        string `json:"name" binding:"required"`
	Role        string `json:"role" binding:"required,role"`
	Description string `json:"description" binding:"required"`
}

type remarkRequest struct {
	Remark string `json:"remark" binding:"required"`
}

// ListPending answers with a bare JSON array, newest first.
func (h *Handler) ListPending(c *gin.Context) {
	list, err := h.service.ListPending(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	if list == nil {
		list = []*model.PendingNotification{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) CreatePending(c *gin.Context) {
	var req createPendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	p := &model.PendingNotification{
		TargetEntityID:   req.NewID,
		TargetEntityKind: req.Name,
		Role:             req.Role,
		Description:      req.Description,
	}
	if err := h.service.CreatePending(c.Request.Context(), p); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) GetPending(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	p, err := h.service.GetPending(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

// AttachRemark is the raw table update behind PUT /admin-notifications/:id.
func (h *Handler) AttachRemark(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	var req remarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	if err := h.service.AttachRemark(c.Request.Context(), id, req.Remark); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(handler.CreatedID{ID: id}))
}

func (h *Handler) DeletePending(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	if err := h.service.DeletePending(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) Approve(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	n, err := h.service.Approve(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(n))
}

func (h *Handler) Disapprove(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	p, err := h.service.Disapprove(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) SubmitRemark(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	var req remarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	n, err := h.service.SubmitRemark(c.Request.Context(), id, req.Remark)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(n))
}
