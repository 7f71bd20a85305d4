package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Priority levels for an incident.
type Priority string

const (
	PriorityAlta  Priority = "Alta"
	PriorityMedia Priority = "Media"
	PriorityBaja  Priority = "Baja"
)

// DefaultPriority applies when the creator does not pick one.
const DefaultPriority = PriorityMedia

func (p Priority) Valid() bool {
	switch p {
	case PriorityAlta, PriorityMedia, PriorityBaja:
		return true
	}
	return false
}

// Status is the incident lifecycle state.
type Status string

const (
	StatusPendiente  Status = "Pendiente"
	StatusEnProgreso Status = "En Progreso"
	StatusResuelto   Status = "Resuelto"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendiente, StatusEnProgreso, StatusResuelto:
		return true
	}
	return false
}

// CanTransitionTo enforces the forward-only lifecycle:
// Pendiente → En Progreso → Resuelto, with Pendiente → Resuelto allowed.
// Setting the current value again is a no-op; reversing is rejected.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusPendiente:
		return next == StatusEnProgreso || next == StatusResuelto
	case StatusEnProgreso:
		return next == StatusResuelto
	}
	return false
}

// Attachment is the wire descriptor for a stored file.
type Attachment struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// Incident is a support ticket. Office, name, and email are copied from the
// creator's identity at creation time — never from client input.
type Incident struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"not null" json:"description"`
	Office      string    `gorm:"type:varchar(50);not null;index" json:"office"`
	Name        string    `gorm:"not null" json:"name"`
	Email       string    `gorm:"not null" json:"email"`
	Priority    Priority  `gorm:"type:varchar(10);not null;default:'Media'" json:"priority"`
	Status      Status    `gorm:"type:varchar(20);not null;default:'Pendiente'" json:"status"`
	// Files is an ordered list of attachment descriptors stored as JSONB.
	// Every entry must correspond to an object in the attachment store.
	Files datatypes.JSONSlice[Attachment] `gorm:"type:jsonb;not null;default:'[]'" json:"files"`
	// Version guards concurrent mutations (optimistic lock).
	Version   int       `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FindFile returns the index of the attachment with the given public_id,
// or -1 when absent.
func (i *Incident) FindFile(publicID string) int {
	for idx, f := range i.Files {
		if f.PublicID == publicID {
			return idx
		}
	}
	return -1
}
