package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Nisha-Mashhood/connectsphere_backend/models"
	"github.com/Nisha-Mashhood/connectsphere_backend/services"
)

// SlotController exposes a mentor's locked time windows to the booking UI
type SlotController struct {
	slotLock *services.SlotLockService
}

// NewSlotController creates a new slot controller
func NewSlotController(slotLock *services.SlotLockService) *SlotController {
	return &SlotController{slotLock: slotLock}
}

// GetLockedSlots handles GET /locked-slots/:mentorId
func (sc *SlotController) GetLockedSlots(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mentorID, err := primitive.ObjectIDFromHex(c.Param("mentorId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid mentor ID",
		})
	}

	locked, err := sc.slotLock.GetLockedSlots(ctx, mentorID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Locked slots retrieved successfully",
		Data:    locked,
	})
}
