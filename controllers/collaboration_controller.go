package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Nisha-Mashhood/connectsphere_backend/models"
	"github.com/Nisha-Mashhood/connectsphere_backend/services"
)

// CollaborationController handles collaboration-related API endpoints:
// payment conversion, cancellation, dashboards and receipts
type CollaborationController struct {
	collabs  *services.CollaborationService
	receipts *services.ReceiptService
}

// NewCollaborationController creates a new collaboration controller
func NewCollaborationController(collabs *services.CollaborationService, receipts *services.ReceiptService) *CollaborationController {
	return &CollaborationController{collabs: collabs, receipts: receipts}
}

// ProcessPayment handles POST /payment. On a successful charge the accepted
// request is replaced by a collaboration.
func (cc *CollaborationController) ProcessPayment(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	var body models.PaymentBody
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
			Message: "Invalid request ID",
		})
	}

	collab, err := cc.collabs.ConvertOnPayment(ctx, requestID, body)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Payment successful, collaboration started",
		Data:    collab,
	})
}

// CancelCollaboration handles PATCH /collaborations/:id/cancel
func (cc *CollaborationController) CancelCollaboration(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	collabID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid collaboration ID",
		})
	}

	var body models.CancelCollaborationBody
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

	collab, err := cc.collabs.CancelAndRefund(ctx, collabID, body.Reason, body.Amount)
	if err != nil {
		// Cancellation stuck in refund_pending still returns the document so
		// the client can show the pending refund
		if errors.Is(err, services.ErrRefundPending) {
			return c.JSON(http.StatusBadGateway, models.Response{
				Status:  http.StatusBadGateway,
				Message: err.Error(),
				Data:    collab,
			})
		}
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Collaboration cancelled and refunded",
		Data:    collab,
	})
}

// RetryRefund handles POST /collaborations/:id/refund-retry
func (cc *CollaborationController) RetryRefund(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	collabID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid collaboration ID",
		})
	}

	collab, err := cc.collabs.RetryRefund(ctx, collabID)
	if err != nil {
		if errors.Is(err, services.ErrRefundPending) {
			return c.JSON(http.StatusBadGateway, models.Response{
				Status:  http.StatusBadGateway,
				Message: err.Error(),
				Data:    collab,
			})
		}
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Refund settled",
		Data:    collab,
	})
}

// GetCollaboration handles GET /collaborations/:id
func (cc *CollaborationController) GetCollaboration(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collabID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid collaboration ID",
		})
	}

	collab, err := cc.collabs.GetByID(ctx, collabID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Collaboration retrieved successfully",
		Data:    collab,
	})
}

// GetUserCollaborations handles GET /collaborations/user/:userId. Cancelled
// engagements are excluded unless includeCancelled=true.
func (cc *CollaborationController) GetUserCollaborations(c echo.Context) error {
	return cc.listFor(c, "userId", cc.collabs.ListForUser)
}

// GetMentorCollaborations handles GET /collaborations/mentor/:mentorId
func (cc *CollaborationController) GetMentorCollaborations(c echo.Context) error {
	return cc.listFor(c, "mentorId", cc.collabs.ListForMentor)
}

func (cc *CollaborationController) listFor(c echo.Context, param string, list func(context.Context, primitive.ObjectID, bool) ([]models.Collaboration, error)) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid " + param,
		})
	}

	includeCancelled := c.QueryParam("includeCancelled") == "true"
	collabs, err := list(ctx, id, includeCancelled)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Collaborations retrieved successfully",
		Data:    collabs,
	})
}

// MarkFeedback handles PATCH /collaborations/:id/feedback
func (cc *CollaborationController) MarkFeedback(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collabID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid collaboration ID",
		})
	}

	collab, err := cc.collabs.MarkFeedbackGiven(ctx, collabID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Feedback recorded",
		Data:    collab,
	})
}

// GetReceipt handles GET /collaborations/:id/receipt, returning the PDF bytes
func (cc *CollaborationController) GetReceipt(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	collabID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid collaboration ID",
		})
	}

	pdfBytes, err := cc.receipts.GenerateReceipt(ctx, collabID)
	if err != nil {
		return respondError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="receipt-`+collabID.Hex()+`.pdf"`)
	return c.Blob(http.StatusOK, "application/pdf", pdfBytes)
}
