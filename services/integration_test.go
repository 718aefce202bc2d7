package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Nisha-Mashhood/connectsphere_backend/models"
)

// connectTestDB connects to the MongoDB named by MONGODB_URI and hands back a
// dropped-clean test database. Tests are skipped when no instance is
// configured.
func connectTestDB(t *testing.T) (*mongo.Client, *mongo.Database) {
	t.Helper()

	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("Skipping integration test: MONGODB_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database("connectsphere_test")
	require.NoError(t, db.Drop(ctx))

	t.Cleanup(func() {
		client.Disconnect(context.Background())
	})
	return client, db
}

func seedMentor(t *testing.T, db *mongo.Database) (mentorID, mentorUserID primitive.ObjectID) {
	t.Helper()
	ctx := context.Background()

	mentorUserID = primitive.NewObjectID()
	_, err := db.Collection("users").InsertOne(ctx, models.User{
		ID: mentorUserID, Email: "mentor@example.com", FullName: "Marco Silva", UserType: "mentor", IsActive: true,
	})
	require.NoError(t, err)

	mentorID = primitive.NewObjectID()
	_, err = db.Collection("mentors").InsertOne(ctx, models.Mentor{
		ID: mentorID, UserID: mentorUserID, Specialization: "Go backend", IsApproved: true,
	})
	require.NoError(t, err)
	return mentorID, mentorUserID
}

func seedUser(t *testing.T, db *mongo.Database) primitive.ObjectID {
	t.Helper()
	userID := primitive.NewObjectID()
	_, err := db.Collection("users").InsertOne(context.Background(), models.User{
		ID: userID, Email: "student@example.com", FullName: "Asha Nair", UserType: "user", IsActive: true,
	})
	require.NoError(t, err)
	return userID
}

func succeedingGateway(t *testing.T) *PaymentService {
	return newGatewayStub(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/payment/charge":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": true,
				"data":   map[string]interface{}{"reference": "ch_ok", "chargeStatus": "succeeded"},
			})
		case "/payment/refund":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": true,
				"data":   map[string]interface{}{"reference": "re_ok", "refundStatus": "refunded"},
			})
		default:
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": true,
				"data":   map[string]interface{}{"chargeStatus": "succeeded"},
			})
		}
	})
}

func failingRefundGateway(t *testing.T) *PaymentService {
	return newGatewayStub(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/payment/charge":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": true,
				"data":   map[string]interface{}{"reference": "ch_ok", "chargeStatus": "succeeded"},
			})
		default:
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": false,
				"code":   "gateway_unavailable",
			})
		}
	})
}

func newServices(client *mongo.Client, db *mongo.Database, gateway *PaymentService) (*RequestService, *CollaborationService, *ScheduleChangeService, *SlotLockService) {
	slotLock := NewSlotLockService(db, nil)
	locker := NewMentorLocker(nil)
	contacts := NewContactService(db)

	requests := NewRequestService(db, slotLock, locker)
	collabs := NewCollaborationService(client, db, gateway, contacts, slotLock)
	changes := NewScheduleChangeService(db, slotLock)
	return requests, collabs, changes, slotLock
}

func monSlot() models.SlotList {
	return models.SlotList{{Day: "Monday", TimeSlots: []string{"10:00-11:00"}}}
}

// convertTestCollaboration walks a request through create, accept and payment
func convertTestCollaboration(t *testing.T, requests *RequestService, collabs *CollaborationService, mentorID, userID primitive.ObjectID) *models.Collaboration {
	t.Helper()
	ctx := context.Background()

	req, err := requests.CreateRequest(ctx, models.CreateRequestBody{
		MentorID: mentorID.Hex(), UserID: userID.Hex(),
		SelectedSlot: monSlot(), Price: 100, TimePeriod: 30,
	})
	require.NoError(t, err)
	_, err = requests.AcceptRequest(ctx, req.ID)
	require.NoError(t, err)

	collab, err := collabs.ConvertOnPayment(ctx, req.ID, models.PaymentBody{
		PaymentMethodID: "pm_1", Amount: 100, RequestID: req.ID.Hex(), Email: "student@example.com",
	})
	require.NoError(t, err)
	return collab
}

func TestRequestLifecycleAndLockedSlots(t *testing.T) {
	client, db := connectTestDB(t)
	mentorID, _ := seedMentor(t, db)
	userID := seedUser(t, db)
	requests, _, _, slotLock := newServices(client, db, succeedingGateway(t))
	ctx := context.Background()

	req, err := requests.CreateRequest(ctx, models.CreateRequestBody{
		MentorID: mentorID.Hex(), UserID: userID.Hex(),
		SelectedSlot: monSlot(), Price: 100, TimePeriod: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, req.Status)

	// Pending requests do not lock slots
	locked, err := slotLock.GetLockedSlots(ctx, mentorID)
	require.NoError(t, err)
	assert.Empty(t, locked)

	accepted, err := requests.AcceptRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusAccepted, accepted.Status)

	// Accepted-but-unpaid requests do
	locked, err = slotLock.GetLockedSlots(ctx, mentorID)
	require.NoError(t, err)
	require.Len(t, locked, 1)
	assert.Equal(t, "Monday", locked[0].Day)
	assert.Equal(t, []string{"10:00-11:00"}, locked[0].TimeSlots)

	// Accepting twice is a state error
	_, err = requests.AcceptRequest(ctx, req.ID)
	assert.True(t, errors.Is(err, ErrInvalidState))

	// A second request for the same window cannot be accepted
	req2, err := requests.CreateRequest(ctx, models.CreateRequestBody{
		MentorID: mentorID.Hex(), UserID: userID.Hex(),
		SelectedSlot: monSlot(), Price: 100, TimePeriod: 30,
	})
	require.NoError(t, err)
	_, err = requests.AcceptRequest(ctx, req2.ID)
	assert.True(t, errors.Is(err, ErrSlotTaken))

	// Unknown mentor
	_, err = slotLock.GetLockedSlots(ctx, primitive.NewObjectID())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestConvertOnPayment(t *testing.T) {
	client, db := connectTestDB(t)
	mentorID, _ := seedMentor(t, db)
	userID := seedUser(t, db)
	requests, collabs, _, slotLock := newServices(client, db, succeedingGateway(t))
	contacts := NewContactService(db)
	ctx := context.Background()

	req, err := requests.CreateRequest(ctx, models.CreateRequestBody{
		MentorID: mentorID.Hex(), UserID: userID.Hex(),
		SelectedSlot: monSlot(), Price: 100, TimePeriod: 30,
	})
	require.NoError(t, err)

	// Only accepted requests convert
	_, err = collabs.ConvertOnPayment(ctx, req.ID, models.PaymentBody{
		PaymentMethodID: "pm_1", Amount: 100, RequestID: req.ID.Hex(), Email: "student@example.com",
	})
	assert.True(t, errors.Is(err, ErrInvalidState))

	_, err = requests.AcceptRequest(ctx, req.ID)
	require.NoError(t, err)

	// The charged amount must match the agreed price
	_, err = collabs.ConvertOnPayment(ctx, req.ID, models.PaymentBody{
		PaymentMethodID: "pm_1", Amount: 60, RequestID: req.ID.Hex(), Email: "student@example.com",
	})
	assert.True(t, errors.Is(err, ErrValidation))

	collab, err := collabs.ConvertOnPayment(ctx, req.ID, models.PaymentBody{
		PaymentMethodID: "pm_1", Amount: 100, RequestID: req.ID.Hex(), Email: "student@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, mentorID, collab.MentorID)
	assert.Equal(t, userID, collab.UserID)
	assert.Equal(t, req.SelectedSlot, collab.SelectedSlot)
	assert.Equal(t, "ch_ok", collab.PaymentRef)
	require.NotNil(t, collab.EndDate)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), *collab.EndDate, time.Minute)

	// The source request is gone from both dashboards
	forMentor, err := requests.ListForMentor(ctx, mentorID)
	require.NoError(t, err)
	assert.Empty(t, forMentor)
	forUser, err := requests.ListForUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, forUser)

	// Exactly one collaboration exists and it still locks the slot
	active, err := collabs.ListForMentor(ctx, mentorID, false)
	require.NoError(t, err)
	require.Len(t, active, 1)

	locked, err := slotLock.GetLockedSlots(ctx, mentorID)
	require.NoError(t, err)
	require.Len(t, locked, 1)

	// Chat routing exists in both directions
	userContacts, err := contacts.ListForOwner(ctx, userID)
	require.NoError(t, err)
	require.Len(t, userContacts, 1)
	assert.Equal(t, mentorID, userContacts[0].PeerID)
	assert.Equal(t, collab.ID, userContacts[0].CollaborationID)

	mentorContacts, err := contacts.ListForOwner(ctx, mentorID)
	require.NoError(t, err)
	require.Len(t, mentorContacts, 1)
	assert.Equal(t, userID, mentorContacts[0].PeerID)

	// A retried payment resolves to the same collaboration
	again, err := collabs.ConvertOnPayment(ctx, req.ID, models.PaymentBody{
		PaymentMethodID: "pm_1", Amount: 100, RequestID: req.ID.Hex(), Email: "student@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, collab.ID, again.ID)
}

func TestScheduleChangeWorkflow(t *testing.T) {
	client, db := connectTestDB(t)
	mentorID, mentorUserID := seedMentor(t, db)
	userID := seedUser(t, db)
	requests, collabs, changes, _ := newServices(client, db, succeedingGateway(t))
	ctx := context.Background()

	collab := convertTestCollaboration(t, requests, collabs, mentorID, userID)
	originalEnd := *collab.EndDate

	datesAndReasons := []models.DateAndReason{
		{Date: day("2025-03-01"), Reason: "conference"},
		{Date: day("2025-03-02"), Reason: "conference"},
		{Date: day("2025-03-03"), Reason: "conference"},
	}
	updated, err := changes.SubmitUnavailableDays(ctx, collab.ID, models.UnavailableDaysBody{
		DatesAndReasons: datesAndReasons,
		RequestedBy:     models.RoleMentor,
		RequesterID:     mentorUserID.Hex(),
		ApprovedByID:    userID.Hex(),
	})
	require.NoError(t, err)
	require.Len(t, updated.UnavailableDays, 1)
	sub := updated.UnavailableDays[0]
	assert.Equal(t, models.ApprovalPending, sub.IsApproved)
	assert.EqualValues(t, 1, sub.Seq)

	// Approval extends the end date by the number of covered days
	resolved, err := changes.Resolve(ctx, collab.ID, sub.ID, models.ApprovalApproved, models.ChangeTypeUnavailable)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, resolved.UnavailableDays[0].IsApproved)
	require.NotNil(t, resolved.EndDate)
	assert.WithinDuration(t, originalEnd.AddDate(0, 0, 3), *resolved.EndDate, time.Second)

	// Resolving again is a conflict and the stored decision stays put
	_, err = changes.Resolve(ctx, collab.ID, sub.ID, models.ApprovalRejected, models.ChangeTypeUnavailable)
	assert.True(t, errors.Is(err, ErrConflict))
	reloaded, err := collabs.GetByID(ctx, collab.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, reloaded.UnavailableDays[0].IsApproved)

	// Temporary slot changes never move the end date
	updated, err = changes.SubmitTemporarySlotChange(ctx, collab.ID, models.TemporarySlotChangeBody{
		DatesAndNewSlots: []models.DateAndNewSlots{
			{Date: day("2025-03-10"), NewTimeSlots: []string{"16:00-17:00"}},
		},
		RequestedBy:  models.RoleUser,
		RequesterID:  userID.Hex(),
		ApprovedByID: mentorUserID.Hex(),
	})
	require.NoError(t, err)
	require.Len(t, updated.TemporarySlotChanges, 1)
	assert.EqualValues(t, 2, updated.TemporarySlotChanges[0].Seq)

	endBefore := *reloaded.EndDate
	resolved, err = changes.Resolve(ctx, collab.ID, updated.TemporarySlotChanges[0].ID, models.ApprovalApproved, models.ChangeTypeTimeSlot)
	require.NoError(t, err)
	assert.Equal(t, endBefore.Unix(), resolved.EndDate.Unix())

	// Unknown sub-request
	_, err = changes.Resolve(ctx, collab.ID, primitive.NewObjectID(), models.ApprovalApproved, models.ChangeTypeUnavailable)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestConcurrentResolve(t *testing.T) {
	client, db := connectTestDB(t)
	mentorID, mentorUserID := seedMentor(t, db)
	userID := seedUser(t, db)
	requests, collabs, changes, _ := newServices(client, db, succeedingGateway(t))
	ctx := context.Background()

	collab := convertTestCollaboration(t, requests, collabs, mentorID, userID)

	updated, err := changes.SubmitUnavailableDays(ctx, collab.ID, models.UnavailableDaysBody{
		DatesAndReasons: []models.DateAndReason{{Date: day("2025-04-01"), Reason: "away"}},
		RequestedBy:     models.RoleMentor,
		RequesterID:     mentorUserID.Hex(),
		ApprovedByID:    userID.Hex(),
	})
	require.NoError(t, err)
	subID := updated.UnavailableDays[0].ID

	decisions := []string{models.ApprovalApproved, models.ApprovalRejected}
	errs := make([]error, len(decisions))
	var wg sync.WaitGroup
	for i, decision := range decisions {
		wg.Add(1)
		go func(i int, decision string) {
			defer wg.Done()
			_, errs[i] = changes.Resolve(ctx, collab.ID, subID, decision, models.ChangeTypeUnavailable)
		}(i, decision)
	}
	wg.Wait()

	succeeded := 0
	for _, e := range errs {
		if e == nil {
			succeeded++
		} else {
			assert.True(t, errors.Is(e, ErrConflict), "loser must observe a conflict, got: %v", e)
		}
	}
	assert.Equal(t, 1, succeeded)
}

// Two different pending sub-requests approved at the same time must both land
// their extensions: a 3-day and a 5-day unavailability move the end date by 8
// days total, never by just the last writer's share.
func TestConcurrentApprovalsBothExtendEndDate(t *testing.T) {
	client, db := connectTestDB(t)
	mentorID, mentorUserID := seedMentor(t, db)
	userID := seedUser(t, db)
	requests, collabs, changes, _ := newServices(client, db, succeedingGateway(t))
	ctx := context.Background()

	collab := convertTestCollaboration(t, requests, collabs, mentorID, userID)
	originalEnd := *collab.EndDate

	submit := func(dates ...string) primitive.ObjectID {
		entries := make([]models.DateAndReason, len(dates))
		for i, d := range dates {
			entries[i] = models.DateAndReason{Date: day(d), Reason: "away"}
		}
		updated, err := changes.SubmitUnavailableDays(ctx, collab.ID, models.UnavailableDaysBody{
			DatesAndReasons: entries,
			RequestedBy:     models.RoleMentor,
			RequesterID:     mentorUserID.Hex(),
			ApprovedByID:    userID.Hex(),
		})
		require.NoError(t, err)
		return updated.UnavailableDays[len(updated.UnavailableDays)-1].ID
	}

	threeDays := submit("2025-05-01", "2025-05-02", "2025-05-03")
	fiveDays := submit("2025-06-01", "2025-06-02", "2025-06-03", "2025-06-04", "2025-06-05")

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, subID := range []primitive.ObjectID{threeDays, fiveDays} {
		wg.Add(1)
		go func(i int, subID primitive.ObjectID) {
			defer wg.Done()
			_, errs[i] = changes.Resolve(ctx, collab.ID, subID, models.ApprovalApproved, models.ChangeTypeUnavailable)
		}(i, subID)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	reloaded, err := collabs.GetByID(ctx, collab.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.EndDate)
	assert.WithinDuration(t, originalEnd.AddDate(0, 0, 8), *reloaded.EndDate, time.Second)
}

func TestCancelAndRefund(t *testing.T) {
	client, db := connectTestDB(t)
	mentorID, mentorUserID := seedMentor(t, db)
	userID := seedUser(t, db)
	requests, collabs, changes, slotLock := newServices(client, db, succeedingGateway(t))
	ctx := context.Background()

	collab := convertTestCollaboration(t, requests, collabs, mentorID, userID)

	// Validation failures
	_, err := collabs.CancelAndRefund(ctx, collab.ID, "  ", 50)
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = collabs.CancelAndRefund(ctx, collab.ID, "changed plans", 0)
	assert.True(t, errors.Is(err, ErrValidation))

	cancelled, err := collabs.CancelAndRefund(ctx, collab.ID, "changed plans", 50)
	require.NoError(t, err)
	assert.True(t, cancelled.IsCancelled)
	assert.Equal(t, models.RefundStatusRefunded, cancelled.RefundStatus)

	// Gone from active dashboards and from the locked-slot view
	active, err := collabs.ListForUser(ctx, userID, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	locked, err := slotLock.GetLockedSlots(ctx, mentorID)
	require.NoError(t, err)
	assert.Empty(t, locked)

	// Still queryable for history
	all, err := collabs.ListForUser(ctx, userID, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// Cancelling twice is a state error
	_, err = collabs.CancelAndRefund(ctx, collab.ID, "again", 50)
	assert.True(t, errors.Is(err, ErrInvalidState))

	// Cancelled collaborations accept no new schedule changes
	_, err = changes.SubmitUnavailableDays(ctx, collab.ID, models.UnavailableDaysBody{
		DatesAndReasons: []models.DateAndReason{{Date: day("2025-07-01"), Reason: "away"}},
		RequestedBy:     models.RoleMentor,
		RequesterID:     mentorUserID.Hex(),
		ApprovedByID:    userID.Hex(),
	})
	assert.True(t, errors.Is(err, ErrInvalidState))
}

func TestCancelWithRefundFailure(t *testing.T) {
	client, db := connectTestDB(t)
	mentorID, _ := seedMentor(t, db)
	userID := seedUser(t, db)
	requests, collabs, _, _ := newServices(client, db, failingRefundGateway(t))
	ctx := context.Background()

	collab := convertTestCollaboration(t, requests, collabs, mentorID, userID)

	// Cancellation sticks, but the failed refund is surfaced, not swallowed
	stuck, err := collabs.CancelAndRefund(ctx, collab.ID, "changed plans", 50)
	assert.True(t, errors.Is(err, ErrRefundPending))
	require.NotNil(t, stuck)
	assert.True(t, stuck.IsCancelled)
	assert.Equal(t, models.RefundStatusPending, stuck.RefundStatus)

	reloaded, err := collabs.GetByID(ctx, collab.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsCancelled)
	assert.Equal(t, models.RefundStatusPending, reloaded.RefundStatus)
}
