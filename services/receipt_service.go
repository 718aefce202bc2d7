package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jung-kurt/gofpdf"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Nisha-Mashhood/connectsphere_backend/models"
)

// ReceiptService renders a PDF receipt for a collaboration from its stored
// payment snapshot plus the parties' identities
type ReceiptService struct {
	Collabs  *CollaborationService
	Payments *PaymentService
}

// NewReceiptService creates a new receipt service
func NewReceiptService(collabs *CollaborationService, payments *PaymentService) *ReceiptService {
	return &ReceiptService{Collabs: collabs, Payments: payments}
}

// GenerateReceipt returns the receipt PDF as a byte stream. Works for
// cancelled collaborations too, since receipts are part of history.
func (s *ReceiptService) GenerateReceipt(ctx context.Context, collabID primitive.ObjectID) ([]byte, error) {
	collab, err := s.Collabs.GetByID(ctx, collabID)
	if err != nil {
		return nil, err
	}

	var user, mentorUser models.User
	if err := s.Collabs.DB.Collection("users").FindOne(ctx, bson.M{"_id": collab.UserID}).Decode(&user); err != nil {
		user.FullName = collab.UserID.Hex()
	}
	var mentor models.Mentor
	if err := s.Collabs.DB.Collection("mentors").FindOne(ctx, bson.M{"_id": collab.MentorID}).Decode(&mentor); err == nil {
		if err := s.Collabs.DB.Collection("users").FindOne(ctx, bson.M{"_id": mentor.UserID}).Decode(&mentorUser); err != nil {
			mentorUser.FullName = collab.MentorID.Hex()
		}
	} else {
		mentorUser.FullName = collab.MentorID.Hex()
	}

	paymentStatus := "captured"
	if collab.PaymentRef != "" {
		if status, err := s.Payments.GetPaymentStatus(collab.PaymentRef); err == nil {
			paymentStatus = status
		} else {
			log.Printf("Could not refresh payment status for %s, using stored snapshot: %v", collab.PaymentRef, err)
		}
	}

	return renderReceipt(collab, user.FullName, mentorUser.FullName, paymentStatus)
}

func renderReceipt(collab *models.Collaboration, userName, mentorName, paymentStatus string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, "ConnectSphere - Mentorship Receipt")
	pdf.Ln(16)

	pdf.SetFont("Helvetica", "", 11)
	row := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(55, 8, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, value, "", 1, "L", false, 0, "")
	}

	row("Receipt for", userName)
	row("Mentor", mentorName)
	row("Collaboration ID", collab.ID.Hex())
	row("Start date", collab.StartDate.Format("02 Jan 2006"))
	if collab.EndDate != nil {
		row("End date", collab.EndDate.Format("02 Jan 2006"))
	} else {
		row("End date", "open-ended")
	}
	row("Amount paid", fmt.Sprintf("USD %.2f", collab.Price))
	if collab.PaymentRef != "" {
		row("Payment reference", collab.PaymentRef)
	}
	row("Payment status", paymentStatus)

	for _, slot := range collab.SelectedSlot {
		row("Weekly slot", fmt.Sprintf("%s: %v", slot.Day, slot.TimeSlots))
	}

	if collab.IsCancelled {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 8, "CANCELLED", "", 1, "L", false, 0, "")
		row("Reason", collab.CancelReason)
		row("Refund amount", fmt.Sprintf("USD %.2f", collab.RefundAmount))
		row("Refund status", collab.RefundStatus)
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 6, "Generated "+time.Now().Format("02 Jan 2006 15:04"), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
