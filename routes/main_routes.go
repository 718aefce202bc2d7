package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Nisha-Mashhood/connectsphere_backend/controllers"
	"github.com/Nisha-Mashhood/connectsphere_backend/middleware"
	"github.com/Nisha-Mashhood/connectsphere_backend/services"
)

// SetupRoutes wires the scheduling core's services and registers all API
// routes
func SetupRoutes(e *echo.Echo, client *mongo.Client, db *mongo.Database, rdb *redis.Client) {
	slotLock := services.NewSlotLockService(db, rdb)
	locker := services.NewMentorLocker(rdb)
	payments := services.NewPaymentService()
	contacts := services.NewContactService(db)

	requests := services.NewRequestService(db, slotLock, locker)
	collabs := services.NewCollaborationService(client, db, payments, contacts, slotLock)
	changes := services.NewScheduleChangeService(db, slotLock)
	receipts := services.NewReceiptService(collabs, payments)

	slotController := controllers.NewSlotController(slotLock)
	requestController := controllers.NewRequestController(requests)
	collaborationController := controllers.NewCollaborationController(collabs, receipts)
	scheduleChangeController := controllers.NewScheduleChangeController(changes)
	contactController := controllers.NewContactController(contacts)

	RegisterRequestRoutes(e, requestController, slotController)
	RegisterCollaborationRoutes(e, collaborationController, scheduleChangeController, contactController)
}

// RegisterRequestRoutes sets up booking-request and locked-slot routes
func RegisterRequestRoutes(e *echo.Echo, rc *controllers.RequestController, sc *controllers.SlotController) {
	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	r.POST("/requests", rc.CreateRequest)
	r.GET("/requests", rc.GetRequests)
	r.PATCH("/requests/:id/accept", rc.AcceptRequest, middleware.RequireUserType("mentor", "admin"))
	r.PATCH("/requests/:id/reject", rc.RejectRequest, middleware.RequireUserType("mentor", "admin"))
	r.DELETE("/requests/:id", rc.DeleteRequest)

	r.GET("/locked-slots/:mentorId", sc.GetLockedSlots)
}

// RegisterCollaborationRoutes sets up payment, collaboration, schedule-change
// and contact routes
func RegisterCollaborationRoutes(e *echo.Echo, cc *controllers.CollaborationController, scc *controllers.ScheduleChangeController, cnc *controllers.ContactController) {
	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())

	r.POST("/payment", cc.ProcessPayment)
	r.GET("/contacts", cnc.ListContacts)

	r.GET("/collaborations/:id", cc.GetCollaboration)
	r.GET("/collaborations/user/:userId", cc.GetUserCollaborations)
	r.GET("/collaborations/mentor/:mentorId", cc.GetMentorCollaborations)
	r.PATCH("/collaborations/:id/cancel", cc.CancelCollaboration)
	r.POST("/collaborations/:id/refund-retry", cc.RetryRefund)
	r.PATCH("/collaborations/:id/feedback", cc.MarkFeedback)
	r.GET("/collaborations/:id/receipt", cc.GetReceipt)

	r.PATCH("/collaborations/:id/unavailable-days", scc.SubmitUnavailableDays)
	r.PATCH("/collaborations/:id/temporary-slots", scc.SubmitTemporarySlotChange)
	r.PATCH("/collaborations/:id/approve", scc.ResolveScheduleChange)
}
