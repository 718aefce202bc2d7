package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Nisha-Mashhood/connectsphere_backend/models"
	"github.com/Nisha-Mashhood/connectsphere_backend/utils"
)

// RequestService owns the MentorRequest lifecycle: create, accept, reject,
// list, and delete while still pending. Conversion to a collaboration after
// payment lives in CollaborationService.
type RequestService struct {
	DB       *mongo.Database
	SlotLock *SlotLockService
	Locker   *MentorLocker
}

// NewRequestService creates a new request service
func NewRequestService(db *mongo.Database, slotLock *SlotLockService, locker *MentorLocker) *RequestService {
	return &RequestService{DB: db, SlotLock: slotLock, Locker: locker}
}

// CreateRequest records a new pending booking proposal. Overlap with the
// mentor's locked slots is not rejected here; the booking UI consults
// GET /locked-slots first, and the hard overlap check runs at accept time
// under the mentor lock.
func (s *RequestService) CreateRequest(ctx context.Context, body models.CreateRequestBody) (*models.MentorRequest, error) {
	mentorID, err := primitive.ObjectIDFromHex(body.MentorID)
	if err != nil {
		return nil, fmt.Errorf("invalid mentor id: %w", ErrValidation)
	}
	userID, err := primitive.ObjectIDFromHex(body.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", ErrValidation)
	}
	for _, slot := range body.SelectedSlot {
		if slot.Day == "" || len(slot.TimeSlots) == 0 {
			return nil, fmt.Errorf("selected slot needs a day and at least one time slot: %w", ErrValidation)
		}
	}

	count, err := s.DB.Collection("mentors").CountDocuments(ctx, bson.M{"_id": mentorID})
	if err != nil {
		return nil, fmt.Errorf("failed to look up mentor: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("mentor %s: %w", body.MentorID, ErrNotFound)
	}

	now := time.Now()
	request := models.MentorRequest{
		ID:           primitive.NewObjectID(),
		MentorID:     mentorID,
		UserID:       userID,
		SelectedSlot: body.SelectedSlot,
		Price:        body.Price,
		TimePeriod:   body.TimePeriod,
		Status:       models.RequestStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.DB.Collection("mentorRequests").InsertOne(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create mentor request: %w", err)
	}
	return &request, nil
}

// AcceptRequest moves a pending request to accepted. Runs under the mentor's
// advisory lock and re-checks the locked-slot set immediately before commit so
// two concurrent accepts for overlapping slots cannot both succeed.
func (s *RequestService) AcceptRequest(ctx context.Context, requestID primitive.ObjectID) (*models.MentorRequest, error) {
	var request models.MentorRequest
	err := s.DB.Collection("mentorRequests").FindOne(ctx, bson.M{"_id": requestID}).Decode(&request)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("request %s: %w", requestID.Hex(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	if request.Status != models.RequestStatusPending {
		return nil, fmt.Errorf("request %s is already %s: %w", requestID.Hex(), request.Status, ErrInvalidState)
	}

	release, err := s.Locker.Lock(ctx, request.MentorID)
	if err != nil {
		return nil, err
	}
	defer release()

	s.SlotLock.InvalidateCache(ctx, request.MentorID)
	locked, err := s.SlotLock.GetLockedSlots(ctx, request.MentorID)
	if err != nil {
		return nil, err
	}
	if Overlaps(request.SelectedSlot, locked) {
		return nil, fmt.Errorf("mentor %s: %w", request.MentorID.Hex(), ErrSlotTaken)
	}

	updated, err := s.transition(ctx, requestID, models.RequestStatusAccepted)
	if err != nil {
		return nil, err
	}
	s.SlotLock.InvalidateCache(ctx, request.MentorID)

	go s.notifyDecision(updated)
	return updated, nil
}

// RejectRequest moves a pending request to rejected. Rejected requests are
// terminal and stay queryable for history.
func (s *RequestService) RejectRequest(ctx context.Context, requestID primitive.ObjectID) (*models.MentorRequest, error) {
	updated, err := s.transition(ctx, requestID, models.RequestStatusRejected)
	if err != nil {
		return nil, err
	}
	go s.notifyDecision(updated)
	return updated, nil
}

// transition is the shared conditional update: it only matches while the
// request is still pending, so a lost race surfaces as a conflict instead of
// overwriting the first decision.
func (s *RequestService) transition(ctx context.Context, requestID primitive.ObjectID, status string) (*models.MentorRequest, error) {
	var updated models.MentorRequest
	err := s.DB.Collection("mentorRequests").FindOneAndUpdate(ctx,
		bson.M{"_id": requestID, "status": models.RequestStatusPending},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		count, countErr := s.DB.Collection("mentorRequests").CountDocuments(ctx, bson.M{"_id": requestID})
		if countErr == nil && count > 0 {
			return nil, fmt.Errorf("request %s already resolved: %w", requestID.Hex(), ErrInvalidState)
		}
		return nil, fmt.Errorf("request %s: %w", requestID.Hex(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update request: %w", err)
	}
	return &updated, nil
}

// ListForMentor returns all requests addressed to a mentor, newest first
func (s *RequestService) ListForMentor(ctx context.Context, mentorID primitive.ObjectID) ([]models.MentorRequest, error) {
	return s.list(ctx, bson.M{"mentorId": mentorID})
}

// ListForUser returns all requests a user has raised, newest first
func (s *RequestService) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.MentorRequest, error) {
	return s.list(ctx, bson.M{"userId": userID})
}

func (s *RequestService) list(ctx context.Context, filter bson.M) ([]models.MentorRequest, error) {
	cursor, err := s.DB.Collection("mentorRequests").Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	requests := []models.MentorRequest{}
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode requests: %w", err)
	}
	return requests, nil
}

// DeletePending lets the requesting user withdraw a proposal that has not been
// decided yet
func (s *RequestService) DeletePending(ctx context.Context, requestID, userID primitive.ObjectID) error {
	res, err := s.DB.Collection("mentorRequests").DeleteOne(ctx, bson.M{
		"_id":    requestID,
		"userId": userID,
		"status": models.RequestStatusPending,
	})
	if err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}
	if res.DeletedCount == 0 {
		count, countErr := s.DB.Collection("mentorRequests").CountDocuments(ctx, bson.M{"_id": requestID, "userId": userID})
		if countErr == nil && count > 0 {
			return fmt.Errorf("request %s already resolved: %w", requestID.Hex(), ErrInvalidState)
		}
		return fmt.Errorf("request %s: %w", requestID.Hex(), ErrNotFound)
	}
	return nil
}

// notifyDecision emails the requesting user about an accept or reject. Email
// delivery is fire-and-forget and never fails the transition.
func (s *RequestService) notifyDecision(request *models.MentorRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var user models.User
	if err := s.DB.Collection("users").FindOne(ctx, bson.M{"_id": request.UserID}).Decode(&user); err != nil {
		log.Printf("Failed to load user %s for decision email: %v", request.UserID.Hex(), err)
		return
	}

	subject := "Your mentorship request was " + request.Status
	body := fmt.Sprintf("Dear %s,\n\nYour mentorship request has been %s.\n\nBest regards,\nConnectSphere", user.FullName, request.Status)
	if err := utils.SendEmail(user.Email, subject, body); err != nil {
		log.Printf("Failed to send decision email to %s: %v", user.Email, err)
	}
}
