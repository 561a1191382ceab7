package slot

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medimeet/consult-api/internal/handler"
	"github.com/medimeet/consult-api/internal/model"
	"github.com/medimeet/consult-api/internal/service/slot"
	apperrors "github.com/medimeet/consult-api/pkg/errors"
)

// Handler is the minimal owner surface for slots: doctors publish the
// windows patients can book against. Everything else about a doctor's
// profile lives in the external profile service.
type Handler struct {
	ledger *slot.Ledger
}

func NewHandler(ledger *slot.Ledger) *Handler {
	return &Handler{ledger: ledger}
}

func (h *Handler) CreateSlot(c *gin.Context) {
	userID, role, ok := handler.CallerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}
	if role != model.RoleDoctor {
		handler.AbortWithError(c, apperrors.Forbidden("only doctors can publish slots", nil))
		return
	}

	var req model.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	s, err := h.ledger.CreateSlot(c.Request.Context(), userID, &req)
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(s))
}

func (h *Handler) ListSlots(c *gin.Context) {
	userID, _, ok := handler.CallerIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing identity"))
		return
	}

	slots, err := h.ledger.ListSlots(c.Request.Context(), userID)
	if err != nil {
		handler.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"slots": slots}))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	slots := r.Group("/slots")
	{
		slots.POST("", h.CreateSlot)
		slots.GET("", h.ListSlots)
	}
}
