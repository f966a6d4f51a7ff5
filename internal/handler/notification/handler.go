package notification

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbmc/portal-api/internal/handler"
	"github.com/kbmc/portal-api/internal/model"
	"github.com/kbmc/portal-api/internal/service/delivery"
	apperrors "github.com/kbmc/portal-api/pkg/errors"
)

type Handler struct {
	service delivery.Servicer
}

func NewHandler(service delivery.Servicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	notifications := r.Group("/notification")
	{
		notifications.GET("", h.ListNotifications)
		notifications.POST("", h.CreateNotification)
		notifications.GET("/unread-count", h.UnreadCount)
		notifications.DELETE("/:id", h.DeleteNotification)
	}
	r.PUT("/update/:id", h.MarkRead)
}

type createNotificationRequest struct {
	Heading     string `json:"heading" binding:"required"`
	Description string `json:"description" binding:"required"`
	Role        string `json:"role" binding:"required,role"`
	// Readed is accepted but ignored; new notifications start unread.
	Readed *model.ReadFlag `json:"readed"`
	Avatar *string         `json:"avatar"`
}

type markReadRequest struct {
	Readed *model.ReadFlag `json:"readed" binding:"required"`
}

type unreadCountResponse struct {
	Role   string `json:"role"`
	Unread int    `json:"unread"`
}

// ListNotifications returns every delivered notification, or only the ones
// addressed to a role when one is known. The body is a bare JSON array.
func (h *Handler) ListNotifications(c *gin.Context) {
	var (
		list []*model.DeliveredNotification
		err  error
	)
	if role := handler.RequestRole(c); role != "" {
		list, err = h.service.FetchForRole(c.Request.Context(), role)
	} else {
		list, err = h.service.List(c.Request.Context())
	}
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	if list == nil {
		list = []*model.DeliveredNotification{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) CreateNotification(c *gin.Context) {
	var req createNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	n := &model.DeliveredNotification{
		Heading:     req.Heading,
		Description: req.Description,
		Role:        req.Role,
		Avatar:      req.Avatar,
	}
	if err := h.service.Create(c.Request.Context(), n); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(handler.CreatedID{ID: n.ID}))
}

func (h *Handler) UnreadCount(c *gin.Context) {
	role := handler.RequestRole(c)
	count, err := h.service.UnreadCount(c.Request.Context(), role)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(unreadCountResponse{Role: role, Unread: count}))
}

// MarkRead handles PUT /update/:id with {"readed":1}. Notifications cannot be
// marked unread again.
func (h *Handler) MarkRead(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}
	if !req.Readed.IsRead() {
		handler.RespondError(c, apperrors.NewBadRequest("readed can only be set to 1", nil))
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(handler.CreatedID{ID: id}))
}

func (h *Handler) DeleteNotification(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
