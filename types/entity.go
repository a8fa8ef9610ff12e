package types

import "time"

// Entity is the base type for all Udhaar records with timestamps.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity creates a new Entity with current timestamps.
func NewEntity() Entity {
	return NewEntityAt(time.Now())
}

// NewEntityAt creates an Entity stamped with t (normalized to UTC).
func NewEntityAt(t time.Time) Entity {
	t = t.UTC()
	return Entity{
		CreatedAt: t,
		UpdatedAt: t,
	}
}

// Touch updates the UpdatedAt timestamp to t.
func (e *Entity) Touch(t time.Time) {
	e.UpdatedAt = t.UTC()
}
