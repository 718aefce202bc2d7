package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Nisha-Mashhood/connectsphere_backend/models"
)

// CollaborationService converts paid requests into collaborations and owns
// cancellation, refunds and the dashboard read queries.
type CollaborationService struct {
	Client   *mongo.Client
	DB       *mongo.Database
	Payments *PaymentService
	Contacts *ContactService
	SlotLock *SlotLockService
}

// NewCollaborationService creates a new collaboration service
func NewCollaborationService(client *mongo.Client, db *mongo.Database, payments *PaymentService, contacts *ContactService, slotLock *SlotLockService) *CollaborationService {
	return &CollaborationService{Client: client, DB: db, Payments: payments, Contacts: contacts, SlotLock: slotLock}
}

// ChargeIdempotencyKey derives a stable idempotency key for charging a
// request, so a retried payment call cannot double-charge
func ChargeIdempotencyKey(requestID primitive.ObjectID) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("charge:"+requestID.Hex())).String()
}

// RefundIdempotencyKey derives a stable idempotency key for refunding a
// collaboration, so refund retries after a gateway timeout are safe
func RefundIdempotencyKey(collabID primitive.ObjectID) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("refund:"+collabID.Hex())).String()
}

// ConvertOnPayment charges the user for an accepted request and, on success,
// replaces the request with a collaboration in one logical transaction. If a
// previous attempt already converted this request (retry after a partial
// failure), the existing collaboration is returned instead of charging again.
func (s *CollaborationService) ConvertOnPayment(ctx context.Context, requestID primitive.ObjectID, body models.PaymentBody) (*models.Collaboration, error) {
	// A retry after the request was already deleted must find the paid booking
	var existing models.Collaboration
	err := s.DB.Collection("collaborations").FindOne(ctx, bson.M{"sourceRequestId": requestID}).Decode(&existing)
	if err == nil {
		return &existing, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to check for existing collaboration: %w", err)
	}

	var request models.MentorRequest
	err = s.DB.Collection("mentorRequests").FindOne(ctx, bson.M{"_id": requestID}).Decode(&request)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("request %s: %w", requestID.Hex(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	if request.Status != models.RequestStatusAccepted {
		return nil, fmt.Errorf("request %s is %s, only accepted requests can be paid: %w", requestID.Hex(), request.Status, ErrInvalidState)
	}
	if body.Amount != request.Price {
		return nil, fmt.Errorf("payment amount %.2f does not match the agreed price %.2f: %w", body.Amount, request.Price, ErrValidation)
	}

	payment, err := s.Payments.Charge(request.UserID.Hex(), body.PaymentMethodID, body.Email, body.ReturnURL, body.Amount, ChargeIdempotencyKey(requestID))
	if err != nil {
		return nil, err
	}
	if !payment.Succeeded() {
		return nil, fmt.Errorf("charge %s ended in status %q: %w", payment.Reference, payment.Status, ErrPaymentFailure)
	}

	now := time.Now()
	endDate := now.AddDate(0, 0, request.TimePeriod)
	collab := models.Collaboration{
		ID:                   primitive.NewObjectID(),
		MentorID:             request.MentorID,
		UserID:               request.UserID,
		SourceRequestID:      request.ID,
		SelectedSlot:         request.SelectedSlot,
		Price:                request.Price,
		PaymentRef:           payment.Reference,
		StartDate:            now,
		EndDate:              &endDate,
		UnavailableDays:      []models.UnavailableDayRequest{},
		TemporarySlotChanges: []models.TemporarySlotChangeRequest{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if request.TimePeriod <= 0 {
		collab.EndDate = nil // open-ended engagement
	}

	if err := s.commitConversion(ctx, &collab, requestID); err != nil {
		return nil, err
	}

	s.SlotLock.InvalidateCache(ctx, request.MentorID)

	if err := s.Contacts.Bind(ctx, request.UserID, request.MentorID, collab.ID); err != nil {
		// The collaboration is already committed; contact binding is retried
		// rather than rolled back.
		log.Printf("Failed to bind contacts for collaboration %s: %v", collab.ID.Hex(), err)
	}

	return &collab, nil
}

// commitConversion inserts the collaboration and deletes the source request.
// Runs as a multi-document transaction on replica-set deployments; on
// standalone mongod it falls back to insert-then-delete, in that order, so a
// crash in between leaves a convertible duplicate rather than a lost paid
// booking (the sourceRequestId lookup above resolves it on retry).
func (s *CollaborationService) commitConversion(ctx context.Context, collab *models.Collaboration, requestID primitive.ObjectID) error {
	session, err := s.Client.StartSession()
	if err == nil {
		defer session.EndSession(ctx)
		_, txErr := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			if _, err := s.DB.Collection("collaborations").InsertOne(sc, collab); err != nil {
				return nil, err
			}
			if _, err := s.DB.Collection("mentorRequests").DeleteOne(sc, bson.M{"_id": requestID}); err != nil {
				return nil, err
			}
			return nil, nil
		})
		if txErr == nil {
			return nil
		}
		if !isTransactionUnsupported(txErr) {
			return fmt.Errorf("failed to convert request %s: %w", requestID.Hex(), txErr)
		}
	}

	if _, err := s.DB.Collection("collaborations").InsertOne(ctx, collab); err != nil {
		return fmt.Errorf("failed to create collaboration: %w", err)
	}
	if _, err := s.DB.Collection("mentorRequests").DeleteOne(ctx, bson.M{"_id": requestID}); err != nil {
		log.Printf("Collaboration %s created but source request %s not deleted: %v", collab.ID.Hex(), requestID.Hex(), err)
		return fmt.Errorf("failed to delete converted request: %w", err)
	}
	return nil
}

func isTransactionUnsupported(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Transaction numbers are only allowed") ||
		strings.Contains(msg, "IllegalOperation")
}

// CancelAndRefund marks the collaboration cancelled and refunds the given
// amount through the gateway. Cancellation is recorded first; if the refund
// then fails, the collaboration carries refundStatus "refund_pending" and the
// caller gets ErrRefundPending instead of a silent success.
func (s *CollaborationService) CancelAndRefund(ctx context.Context, collabID primitive.ObjectID, reason string, amount float64) (*models.Collaboration, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("cancellation reason is required: %w", ErrValidation)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("refund amount must be positive: %w", ErrValidation)
	}

	var collab models.Collaboration
	err := s.DB.Collection("collaborations").FindOneAndUpdate(ctx,
		bson.M{"_id": collabID, "isCancelled": false},
		bson.M{"$set": bson.M{
			"isCancelled":  true,
			"cancelReason": reason,
			"refundAmount": amount,
			"refundStatus": models.RefundStatusPending,
			"updatedAt":    time.Now(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&collab)
	if err == mongo.ErrNoDocuments {
		count, countErr := s.DB.Collection("collaborations").CountDocuments(ctx, bson.M{"_id": collabID})
		if countErr == nil && count > 0 {
			return nil, fmt.Errorf("collaboration %s is already cancelled: %w", collabID.Hex(), ErrInvalidState)
		}
		return nil, fmt.Errorf("collaboration %s: %w", collabID.Hex(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel collaboration: %w", err)
	}

	s.SlotLock.InvalidateCache(ctx, collab.MentorID)

	return s.settleRefund(ctx, &collab, amount)
}

// RetryRefund re-runs the refund for a cancelled collaboration stuck in
// refund_pending, reusing the original idempotency key
func (s *CollaborationService) RetryRefund(ctx context.Context, collabID primitive.ObjectID) (*models.Collaboration, error) {
	var collab models.Collaboration
	err := s.DB.Collection("collaborations").FindOne(ctx, bson.M{"_id": collabID}).Decode(&collab)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("collaboration %s: %w", collabID.Hex(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load collaboration: %w", err)
	}
	if !collab.IsCancelled || collab.RefundStatus != models.RefundStatusPending {
		return nil, fmt.Errorf("collaboration %s has no pending refund: %w", collabID.Hex(), ErrInvalidState)
	}
	return s.settleRefund(ctx, &collab, collab.RefundAmount)
}

func (s *CollaborationService) settleRefund(ctx context.Context, collab *models.Collaboration, amount float64) (*models.Collaboration, error) {
	refund, err := s.Payments.Refund(collab.PaymentRef, amount, RefundIdempotencyKey(collab.ID))
	if err != nil {
		log.Printf("Refund for collaboration %s failed, left in refund_pending: %v", collab.ID.Hex(), err)
		return collab, fmt.Errorf("collaboration %s cancelled but not refunded: %w", collab.ID.Hex(), ErrRefundPending)
	}

	update := bson.M{"$set": bson.M{"refundStatus": models.RefundStatusRefunded, "updatedAt": time.Now()}}
	if err := s.DB.Collection("collaborations").FindOneAndUpdate(ctx,
		bson.M{"_id": collab.ID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(collab); err != nil {
		// Gateway already refunded (idempotency key makes a retry safe), so
		// only the bookkeeping is stale.
		log.Printf("Refund %s settled at gateway but status update failed: %v", refund.Reference, err)
		return collab, fmt.Errorf("collaboration %s refunded but not settled: %w", collab.ID.Hex(), ErrRefundPending)
	}
	return collab, nil
}

// GetByID returns a collaboration regardless of cancellation state; cancelled
// engagements stay queryable for history and receipts
func (s *CollaborationService) GetByID(ctx context.Context, collabID primitive.ObjectID) (*models.Collaboration, error) {
	var collab models.Collaboration
	err := s.DB.Collection("collaborations").FindOne(ctx, bson.M{"_id": collabID}).Decode(&collab)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("collaboration %s: %w", collabID.Hex(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load collaboration: %w", err)
	}
	return &collab, nil
}

// ListForUser returns a user's collaborations, excluding cancelled ones unless
// includeCancelled is set
func (s *CollaborationService) ListForUser(ctx context.Context, userID primitive.ObjectID, includeCancelled bool) ([]models.Collaboration, error) {
	return s.list(ctx, bson.M{"userId": userID}, includeCancelled)
}

// ListForMentor returns a mentor's collaborations, excluding cancelled ones
// unless includeCancelled is set
func (s *CollaborationService) ListForMentor(ctx context.Context, mentorID primitive.ObjectID, includeCancelled bool) ([]models.Collaboration, error) {
	return s.list(ctx, bson.M{"mentorId": mentorID}, includeCancelled)
}

func (s *CollaborationService) list(ctx context.Context, filter bson.M, includeCancelled bool) ([]models.Collaboration, error) {
	if !includeCancelled {
		filter["isCancelled"] = false
	}
	cursor, err := s.DB.Collection("collaborations").Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query collaborations: %w", err)
	}
	collabs := []models.Collaboration{}
	if err = cursor.All(ctx, &collabs); err != nil {
		return nil, fmt.Errorf("failed to decode collaborations: %w", err)
	}
	return collabs, nil
}

// MarkFeedbackGiven flags that the user has left feedback for this engagement
func (s *CollaborationService) MarkFeedbackGiven(ctx context.Context, collabID primitive.ObjectID) (*models.Collaboration, error) {
	var collab models.Collaboration
	err := s.DB.Collection("collaborations").FindOneAndUpdate(ctx,
		bson.M{"_id": collabID},
		bson.M{"$set": bson.M{"feedbackGiven": true, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&collab)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("collaboration %s: %w", collabID.Hex(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update collaboration: %w", err)
	}
	return &collab, nil
}
