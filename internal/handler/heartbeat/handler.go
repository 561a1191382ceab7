package heartbeat

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medimeet/consult-api/internal/handler"
	"github.com/medimeet/consult-api/internal/service/meeting"
)

// Handler is the doctor-side polling surface. Clients call Poll on a fixed
// interval; Accept and Reject act on the meeting offered by the last poll.
type Handler struct {
	broker *meeting.Broker
}

func NewHandler(broker *meeting.Broker) *Handler {
	return &Handler{broker: broker}
}

func (h *Handler) Poll(c *gin.Context) {
	userID, role, ok := handler.CallerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	resp, err := h.broker.Poll(c.Request.Context(), userID, role)
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) Accept(c *gin.Context) {
	userID, role, ok := handler.CallerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid meeting ID"))
		return
	}

	m, err := h.broker.Accept(c.Request.Context(), userID, role, meetingID)
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(m))
}

func (h *Handler) Reject(c *gin.Context) {
	userID, role, ok := handler.CallerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid meeting ID"))
		return
	}

	if err := h.broker.Reject(c.Request.Context(), userID, role, meetingID); err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	hb := r.Group("/heartbeat")
	{
		hb.GET("", h.Poll)
		hb.POST("/:id/accept", h.Accept)
		hb.POST("/:id/reject", h.Reject)
	}
}
