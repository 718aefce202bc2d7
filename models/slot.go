package models

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Slot is a single weekly booking window: a day label plus its time slots
type Slot struct {
	Day       string   `json:"day" bson:"day"`
	TimeSlots []string `json:"timeSlots" bson:"timeSlots"`
}

// SlotList is the canonical slot shape. Older documents stored selectedSlot as a
// single embedded object instead of an array, so decoding accepts both and
// normalizes to the array form.
type SlotList []Slot

// UnmarshalJSON accepts either a single slot object or an array of slots
func (s *SlotList) UnmarshalJSON(data []byte) error {
	var many []Slot
	if err := json.Unmarshal(data, &many); err == nil {
		*s = SlotList(many)
		return nil
	}

	var single Slot
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("selectedSlot must be a slot object or an array of slots: %w", err)
	}
	*s = SlotList{single}
	return nil
}

// UnmarshalBSONValue accepts the legacy embedded-document shape as well as the
// canonical array shape
func (s *SlotList) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}

	switch t {
	case bson.TypeArray:
		var many []Slot
		if err := raw.Unmarshal(&many); err != nil {
			return err
		}
		*s = SlotList(many)
		return nil
	case bson.TypeEmbeddedDocument:
		var single Slot
		if err := raw.Unmarshal(&single); err != nil {
			return err
		}
		*s = SlotList{single}
		return nil
	case bson.TypeNull:
		*s = nil
		return nil
	}

	return fmt.Errorf("cannot decode BSON %s into slot list", t)
}

// LockedSlot is a derived view of a mentor's occupied windows. It is recomputed
// on every query and never persisted.
type LockedSlot struct {
	Day       string   `json:"day"`
	TimeSlots []string `json:"timeSlots"`
}
