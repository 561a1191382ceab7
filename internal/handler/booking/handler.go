package booking

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medimeet/consult-api/internal/handler"
	"github.com/medimeet/consult-api/internal/model"
	"github.com/medimeet/consult-api/internal/service/booking"
)

type Handler struct {
	service *booking.Service
}

func NewHandler(service *booking.Service) *Handler {
	return &Handler{service: service}
}

// CreateBooking reserves a seat in the requested slot and records the
// booking. 409 means the slot is full; 404 means it does not exist.
func (h *Handler) CreateBooking(c *gin.Context) {
	userID, role, ok := handler.CallerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	var req model.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	bk, err := h.service.CreateBooking(c.Request.Context(), userID, role, &req)
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(bk))
}

func (h *Handler) ListBookings(c *gin.Context) {
	userID, role, ok := handler.CallerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	bookings, err := h.service.ListBookings(c.Request.Context(), userID, role)
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"bookings": bookings}))
}

func (h *Handler) AddPrescription(c *gin.Context) {
	userID, role, ok := handler.CallerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	var req model.AddPrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	bk, err := h.service.AddPrescription(c.Request.Context(), userID, role, &req)
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(bk))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	bookings := r.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.POST("/prescription", h.AddPrescription)
	}
}
