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

// ScheduleChangeService runs the two-party approval workflow for in-flight
// schedule changes: unavailable-day requests and temporary slot changes. Every
// sub-request moves pending -> approved | rejected, both terminal.
type ScheduleChangeService struct {
	DB       *mongo.Database
	SlotLock *SlotLockService
}

// NewScheduleChangeService creates a new schedule change service
func NewScheduleChangeService(db *mongo.Database, slotLock *SlotLockService) *ScheduleChangeService {
	return &ScheduleChangeService{DB: db, SlotLock: slotLock}
}

// SubmitUnavailableDays appends a pending unavailable-day request to the
// collaboration. The append is a $push, never a read-modify-write of the
// array, so concurrent submissions cannot lose each other.
func (s *ScheduleChangeService) SubmitUnavailableDays(ctx context.Context, collabID primitive.ObjectID, body models.UnavailableDaysBody) (*models.Collaboration, error) {
	requesterID, approvedByID, err := parseParties(body.RequesterID, body.ApprovedByID)
	if err != nil {
		return nil, err
	}
	for _, dr := range body.DatesAndReasons {
		if dr.Date.IsZero() || dr.Reason == "" {
			return nil, fmt.Errorf("each entry needs a date and a reason: %w", ErrValidation)
		}
	}

	seq, err := s.claimSeq(ctx, collabID)
	if err != nil {
		return nil, err
	}

	sub := models.UnavailableDayRequest{
		ID:              primitive.NewObjectID(),
		DatesAndReasons: body.DatesAndReasons,
		RequestedBy:     body.RequestedBy,
		RequesterID:     requesterID,
		ApprovedByID:    approvedByID,
		IsApproved:      models.ApprovalPending,
		Seq:             seq,
		CreatedAt:       time.Now(),
	}

	return s.push(ctx, collabID, "unavailableDays", sub)
}

// SubmitTemporarySlotChange appends a pending temporary-slot-change request to
// the collaboration
func (s *ScheduleChangeService) SubmitTemporarySlotChange(ctx context.Context, collabID primitive.ObjectID, body models.TemporarySlotChangeBody) (*models.Collaboration, error) {
	requesterID, approvedByID, err := parseParties(body.RequesterID, body.ApprovedByID)
	if err != nil {
		return nil, err
	}
	for _, dn := range body.DatesAndNewSlots {
		if dn.Date.IsZero() || len(dn.NewTimeSlots) == 0 {
			return nil, fmt.Errorf("each entry needs a date and at least one new time slot: %w", ErrValidation)
		}
	}

	seq, err := s.claimSeq(ctx, collabID)
	if err != nil {
		return nil, err
	}

	sub := models.TemporarySlotChangeRequest{
		ID:               primitive.NewObjectID(),
		DatesAndNewSlots: body.DatesAndNewSlots,
		RequestedBy:      body.RequestedBy,
		RequesterID:      requesterID,
		ApprovedByID:     approvedByID,
		IsApproved:       models.ApprovalPending,
		Seq:              seq,
		CreatedAt:        time.Now(),
	}

	return s.push(ctx, collabID, "temporarySlotChanges", sub)
}

// claimSeq hands out the next sub-request sequence number for the
// collaboration and doubles as the existence / not-cancelled check
func (s *ScheduleChangeService) claimSeq(ctx context.Context, collabID primitive.ObjectID) (int64, error) {
	var collab models.Collaboration
	err := s.DB.Collection("collaborations").FindOneAndUpdate(ctx,
		bson.M{"_id": collabID, "isCancelled": false},
		bson.M{"$inc": bson.M{"changeSeq": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&collab)
	if err == mongo.ErrNoDocuments {
		count, countErr := s.DB.Collection("collaborations").CountDocuments(ctx, bson.M{"_id": collabID})
		if countErr == nil && count > 0 {
			return 0, fmt.Errorf("collaboration %s is cancelled: %w", collabID.Hex(), ErrInvalidState)
		}
		return 0, fmt.Errorf("collaboration %s: %w", collabID.Hex(), ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to claim sequence number: %w", err)
	}
	return collab.ChangeSeq, nil
}

// push appends the sub-request. The filter re-checks isCancelled so a
// cancellation landing between claimSeq and the append cannot grow a cancelled
// collaboration's arrays.
func (s *ScheduleChangeService) push(ctx context.Context, collabID primitive.ObjectID, field string, sub interface{}) (*models.Collaboration, error) {
	var collab models.Collaboration
	err := s.DB.Collection("collaborations").FindOneAndUpdate(ctx,
		bson.M{"_id": collabID, "isCancelled": false},
		bson.M{
			"$push": bson.M{field: sub},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&collab)
	if err == mongo.ErrNoDocuments {
		count, countErr := s.DB.Collection("collaborations").CountDocuments(ctx, bson.M{"_id": collabID})
		if countErr == nil && count > 0 {
			return nil, fmt.Errorf("collaboration %s is cancelled: %w", collabID.Hex(), ErrInvalidState)
		}
		return nil, fmt.Errorf("collaboration %s: %w", collabID.Hex(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to append %s request: %w", field, err)
	}
	return &collab, nil
}

// Resolve decides a pending sub-request. The locate-and-update runs as one
// conditional write matching (collaboration, sub-request, isApproved=pending),
// so under concurrent calls exactly one resolution wins and the loser sees a
// conflict. Approving an unavailable-day request pushes the collaboration's
// end date forward by the number of distinct dates covered.
func (s *ScheduleChangeService) Resolve(ctx context.Context, collabID, requestID primitive.ObjectID, decision, requestType string) (*models.Collaboration, error) {
	if decision != models.ApprovalApproved && decision != models.ApprovalRejected {
		return nil, fmt.Errorf("decision must be approved or rejected: %w", ErrValidation)
	}

	var field string
	switch requestType {
	case models.ChangeTypeUnavailable:
		field = "unavailableDays"
	case models.ChangeTypeTimeSlot:
		field = "temporarySlotChanges"
	default:
		return nil, fmt.Errorf("unknown request type %q: %w", requestType, ErrValidation)
	}

	now := time.Now()
	var collab models.Collaboration
	err := s.DB.Collection("collaborations").FindOneAndUpdate(ctx,
		bson.M{
			"_id": collabID,
			field: bson.M{"$elemMatch": bson.M{
				"_id":        requestID,
				"isApproved": models.ApprovalPending,
			}},
		},
		bson.M{"$set": bson.M{
			field + ".$.isApproved": decision,
			field + ".$.resolvedAt": now,
			"updatedAt":             now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&collab)
	if err == mongo.ErrNoDocuments {
		return nil, s.explainResolveMiss(ctx, collabID, requestID, field)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s request: %w", field, err)
	}

	if requestType == models.ChangeTypeUnavailable && decision == models.ApprovalApproved {
		extended, err := s.extendEndDate(ctx, &collab, requestID)
		if err != nil {
			return nil, err
		}
		collab = *extended
	}

	s.SlotLock.InvalidateCache(ctx, collab.MentorID)
	go s.notifyResolution(&collab, requestID, field, decision)

	return &collab, nil
}

// explainResolveMiss turns a matched-nothing conditional update into the right
// error: the collaboration or sub-request may not exist, or a concurrent
// caller already resolved it
func (s *ScheduleChangeService) explainResolveMiss(ctx context.Context, collabID, requestID primitive.ObjectID, field string) error {
	count, err := s.DB.Collection("collaborations").CountDocuments(ctx, bson.M{"_id": collabID})
	if err != nil {
		return fmt.Errorf("failed to inspect collaboration: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("collaboration %s: %w", collabID.Hex(), ErrNotFound)
	}

	count, err = s.DB.Collection("collaborations").CountDocuments(ctx, bson.M{
		"_id":          collabID,
		field + "._id": requestID,
	})
	if err != nil {
		return fmt.Errorf("failed to inspect sub-request: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%s request %s: %w", field, requestID.Hex(), ErrNotFound)
	}
	return fmt.Errorf("%s request %s already resolved: %w", field, requestID.Hex(), ErrConflict)
}

// extendEndDate moves the end date forward by the number of distinct dates in
// the approved unavailable-day request. Mentor unavailability lengthens the
// engagement rather than shortening it; open-ended collaborations have nothing
// to extend.
func (s *ScheduleChangeService) extendEndDate(ctx context.Context, collab *models.Collaboration, requestID primitive.ObjectID) (*models.Collaboration, error) {
	var sub *models.UnavailableDayRequest
	for i := range collab.UnavailableDays {
		if collab.UnavailableDays[i].ID == requestID {
			sub = &collab.UnavailableDays[i]
			break
		}
	}
	if sub == nil {
		return nil, fmt.Errorf("unavailableDays request %s: %w", requestID.Hex(), ErrNotFound)
	}

	days := CountDistinctDates(sub.DatesAndReasons)
	if days == 0 {
		return collab, nil
	}

	// Approvals of other sub-requests may move the end date between our read
	// and write, so the update matches the end date it read and retries on a
	// miss. The sub-request claim above guarantees at most one extension per
	// sub-request.
	for {
		if collab.EndDate == nil {
			return collab, nil
		}
		newEnd := collab.EndDate.AddDate(0, 0, days)

		var updated models.Collaboration
		err := s.DB.Collection("collaborations").FindOneAndUpdate(ctx,
			bson.M{"_id": collab.ID, "endDate": *collab.EndDate},
			bson.M{"$set": bson.M{"endDate": newEnd, "updatedAt": time.Now()}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&updated)
		if err == nil {
			return &updated, nil
		}
		if err != mongo.ErrNoDocuments {
			return nil, fmt.Errorf("failed to extend end date: %w", err)
		}

		var current models.Collaboration
		if err := s.DB.Collection("collaborations").FindOne(ctx, bson.M{"_id": collab.ID}).Decode(&current); err != nil {
			return nil, fmt.Errorf("failed to reload collaboration for end-date extension: %w", err)
		}
		collab = &current
	}
}

// CountDistinctDates counts calendar days covered by an unavailable-day
// request, collapsing duplicate dates
func CountDistinctDates(entries []models.DateAndReason) int {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Date.IsZero() {
			continue
		}
		seen[e.Date.Format("2006-01-02")] = struct{}{}
	}
	return len(seen)
}

func parseParties(requesterID, approvedByID string) (primitive.ObjectID, primitive.ObjectID, error) {
	reqID, err := primitive.ObjectIDFromHex(requesterID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, fmt.Errorf("invalid requester id: %w", ErrValidation)
	}
	appID, err := primitive.ObjectIDFromHex(approvedByID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, fmt.Errorf("invalid approver id: %w", ErrValidation)
	}
	return reqID, appID, nil
}

// notifyResolution emails the party that raised the sub-request once the
// counterparty decides it
func (s *ScheduleChangeService) notifyResolution(collab *models.Collaboration, requestID primitive.ObjectID, field, decision string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var requesterID primitive.ObjectID
	var role models.RequesterRole
	switch field {
	case "unavailableDays":
		for _, sub := range collab.UnavailableDays {
			if sub.ID == requestID {
				requesterID = sub.RequesterID
				role = sub.RequestedBy
			}
		}
	case "temporarySlotChanges":
		for _, sub := range collab.TemporarySlotChanges {
			if sub.ID == requestID {
				requesterID = sub.RequesterID
				role = sub.RequestedBy
			}
		}
	}
	if requesterID.IsZero() {
		return
	}

	var user models.User
	if err := s.DB.Collection("users").FindOne(ctx, bson.M{"_id": requesterID}).Decode(&user); err != nil {
		log.Printf("Failed to load %s %s for resolution email: %v", role, requesterID.Hex(), err)
		return
	}

	kind := "schedule change"
	if field == "unavailableDays" {
		kind = "unavailable days"
	}
	subject := fmt.Sprintf("Your %s request was %s", kind, decision)
	body := fmt.Sprintf("Dear %s,\n\nYour %s request for this collaboration has been %s.\n\nBest regards,\nConnectSphere", user.FullName, kind, decision)
	if err := utils.SendEmail(user.Email, subject, body); err != nil {
		log.Printf("Failed to send resolution email to %s: %v", user.Email, err)
	}
}
