package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Nisha-Mashhood/connectsphere_backend/models"
)

func TestRenderReceipt(t *testing.T) {
	end := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	collab := &models.Collaboration{
		ID:         primitive.NewObjectID(),
		MentorID:   primitive.NewObjectID(),
		UserID:     primitive.NewObjectID(),
		Price:      150,
		PaymentRef: "ch_123",
		StartDate:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    &end,
		SelectedSlot: models.SlotList{
			{Day: "Monday", TimeSlots: []string{"10:00-11:00"}},
		},
	}

	pdfBytes, err := renderReceipt(collab, "Asha Nair", "Marco Silva", "succeeded")
	require.NoError(t, err)
	require.NotEmpty(t, pdfBytes)
	assert.Equal(t, "%PDF", string(pdfBytes[:4]))
}

func TestRenderReceiptCancelled(t *testing.T) {
	collab := &models.Collaboration{
		ID:           primitive.NewObjectID(),
		MentorID:     primitive.NewObjectID(),
		UserID:       primitive.NewObjectID(),
		Price:        80,
		StartDate:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		IsCancelled:  true,
		CancelReason: "mentor unavailable",
		RefundAmount: 80,
		RefundStatus: models.RefundStatusPending,
	}

	pdfBytes, err := renderReceipt(collab, "Asha Nair", "Marco Silva", "succeeded")
	require.NoError(t, err)
	assert.NotEmpty(t, pdfBytes)
}
