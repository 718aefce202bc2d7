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

// ScheduleChangeController handles the in-collaboration schedule-change
// endpoints: submitting unavailable days or temporary slot changes, and the
// counterparty's approve/reject decision
type ScheduleChangeController struct {
	changes *services.ScheduleChangeService
}

// NewScheduleChangeController creates a new schedule change controller
func NewScheduleChangeController(changes *services.ScheduleChangeService) *ScheduleChangeController {
	return &ScheduleChangeController{changes: changes}
}

// SubmitUnavailableDays handles PATCH /collaborations/:id/unavailable-days
func (sc *ScheduleChangeController) SubmitUnavailableDays(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collabID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid collaboration ID",
		})
	}

	var body models.UnavailableDaysBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request",
		})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	collab, err := sc.changes.SubmitUnavailableDays(ctx, collabID, body)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Unavailable-day request submitted",
		Data:    collab,
	})
}

// SubmitTemporarySlotChange handles PATCH /collaborations/:id/temporary-slots
func (sc *ScheduleChangeController) SubmitTemporarySlotChange(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collabID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid collaboration ID",
		})
	}

	var body models.TemporarySlotChangeBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request",
		})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	collab, err := sc.changes.SubmitTemporarySlotChange(ctx, collabID, body)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Temporary slot-change request submitted",
		Data:    collab,
	})
}

// ResolveScheduleChange handles PATCH /collaborations/:id/approve
func (sc *ScheduleChangeController) ResolveScheduleChange(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collabID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid collaboration ID",
		})
	}

	var body models.ResolveChangeBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request",
		})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	requestID, err := primitive.ObjectIDFromHex(body.RequestID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid sub-request ID",
		})
	}

	collab, err := sc.changes.Resolve(ctx, collabID, requestID, body.IsApproved, body.RequestType)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Schedule-change request " + body.IsApproved,
		Data:    collab,
	})
}
