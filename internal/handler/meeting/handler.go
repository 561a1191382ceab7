package meeting

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medimeet/consult-api/internal/handler"
	"github.com/medimeet/consult-api/internal/model"
	"github.com/medimeet/consult-api/internal/service/meeting"
)

// Handler carries the patient-side meeting flow: request a consultation,
// rejoin it, delete it. The doctor-side polling flow lives in the heartbeat
// handler; the two are dispatched as separate routes rather than one
// role-switched endpoint.
type Handler struct {
	broker *meeting.Broker
	queue  *meeting.Queue
}

func NewHandler(broker *meeting.Broker, queue *meeting.Queue) *Handler {
	return &Handler{broker: broker, queue: queue}
}

func (h *Handler) CreateMeeting(c *gin.Context) {
	userID, role, ok := handler.CallerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	var req model.CreateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	m, cred, err := h.broker.RequestConsultation(c.Request.Context(), userID, role, req.Specialization)
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(gin.H{
		"meeting_id": m.ID,
		"credential": cred,
	}))
}

func (h *Handler) JoinMeeting(c *gin.Context) {
	userID, _, ok := handler.CallerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid meeting ID"))
		return
	}

	cred, err := h.broker.Join(c.Request.Context(), userID, meetingID)
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"meeting_id": meetingID,
		"credential": cred,
	}))
}

func (h *Handler) DeleteMeeting(c *gin.Context) {
	userID, _, ok := handler.CallerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid meeting ID"))
		return
	}

	if err := h.queue.Delete(c.Request.Context(), userID, meetingID); err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	meetings := r.Group("/meetings")
	{
		meetings.POST("", h.CreateMeeting)
		meetings.GET("/:id/join", h.JoinMeeting)
		meetings.DELETE("/:id", h.DeleteMeeting)
	}
}
