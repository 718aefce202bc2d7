package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestSlotListUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    SlotList
		wantErr bool
	}{
		{
			name:  "array form",
			input: `[{"day":"Monday","timeSlots":["10:00-11:00"]},{"day":"Friday","timeSlots":["14:00-15:00"]}]`,
			want: SlotList{
				{Day: "Monday", TimeSlots: []string{"10:00-11:00"}},
				{Day: "Friday", TimeSlots: []string{"14:00-15:00"}},
			},
		},
		{
			name:  "legacy single object form",
			input: `{"day":"Monday","timeSlots":["10:00-11:00"]}`,
			want:  SlotList{{Day: "Monday", TimeSlots: []string{"10:00-11:00"}}},
		},
		{
			name:  "empty array",
			input: `[]`,
			want:  SlotList{},
		},
		{
			name:    "scalar is rejected",
			input:   `"Monday"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got SlotList
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlotListUnmarshalBSON(t *testing.T) {
	type doc struct {
		SelectedSlot SlotList `bson:"selectedSlot"`
	}

	t.Run("array form", func(t *testing.T) {
		raw, err := bson.Marshal(bson.M{"selectedSlot": bson.A{
			bson.M{"day": "Monday", "timeSlots": bson.A{"10:00-11:00"}},
		}})
		require.NoError(t, err)

		var got doc
		require.NoError(t, bson.Unmarshal(raw, &got))
		assert.Equal(t, SlotList{{Day: "Monday", TimeSlots: []string{"10:00-11:00"}}}, got.SelectedSlot)
	})

	t.Run("legacy embedded document form", func(t *testing.T) {
		raw, err := bson.Marshal(bson.M{"selectedSlot": bson.M{
			"day": "Friday", "timeSlots": bson.A{"14:00-15:00", "15:00-16:00"},
		}})
		require.NoError(t, err)

		var got doc
		require.NoError(t, bson.Unmarshal(raw, &got))
		assert.Equal(t, SlotList{{Day: "Friday", TimeSlots: []string{"14:00-15:00", "15:00-16:00"}}}, got.SelectedSlot)
	})

	t.Run("null", func(t *testing.T) {
		raw, err := bson.Marshal(bson.M{"selectedSlot": nil})
		require.NoError(t, err)

		var got doc
		require.NoError(t, bson.Unmarshal(raw, &got))
		assert.Nil(t, got.SelectedSlot)
	})
}

func TestRequesterRole(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleMentor.Valid())
	assert.False(t, RequesterRole("admin").Valid())

	assert.Equal(t, RoleMentor, RoleUser.Counterpart())
	assert.Equal(t, RoleUser, RoleMentor.Counterpart())
}
