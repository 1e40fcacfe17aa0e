package domain

import (
	"encoding/json"
	"time"
)

// Priority ranks a todo item. Stored as text.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// DefaultPriority is assigned when a create request omits priority.
const DefaultPriority = PriorityMedium

// Valid reports whether p is one of the enumerated priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Todo is the single persisted entity. Rows are hard-deleted, so the
// struct deliberately does not embed gorm.Model and its DeletedAt column.
type Todo struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	Title       string    `gorm:"not null;index"`
	Description *string   `gorm:"type:text"`
	Completed   bool      `gorm:"not null;default:false"`
	Priority    Priority  `gorm:"type:varchar(16);not null;default:'medium'"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName pins the table name regardless of the naming strategy.
func (Todo) TableName() string {
	return "todos"
}

// NullableString is a partial-update field that can be absent, null, or a
// string. Set is true whenever the key was present, including as null.
type NullableString struct {
	Set   bool
	Value *string
}

// NewNullableString returns a present field holding v; nil means null.
func NewNullableString(v *string) NullableString {
	return NullableString{Set: true, Value: v}
}

// UnmarshalJSON is only invoked when the key is present, so it always marks
// the field as set.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// TodoChanges carries a partial update. Nil fields, and a Description that
// is not Set, are left untouched.
type TodoChanges struct {
	Title       *string
	Description NullableString
	Completed   *bool
	Priority    *Priority
}

// Empty reports whether no field is set.
func (c TodoChanges) Empty() bool {
	return c.Title == nil && !c.Description.Set && c.Completed == nil && c.Priority == nil
}
