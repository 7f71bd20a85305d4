package model

import (
	"time"

	"github.com/google/uuid"
)

// Role governs field-level write permissions and visibility scope.
// Kept as a closed type — role checks go through these constants, never
// ad hoc string literals.
type Role string

const (
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
	RoleTecnico Role = "tecnico"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleTecnico:
		return true
	}
	return false
}

// Offices is the fixed enumeration of organizational locations. Non-admin
// visibility is scoped to the caller's office.
var Offices = []string{"Malaga", "El Palo", "Fuengirola"}

func ValidOffice(office string) bool {
	for _, o := range Offices {
		if o == office {
			return true
		}
	}
	return false
}

// User stores helpdesk accounts with role-based access.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name         string    `gorm:"not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         Role      `gorm:"type:varchar(20);not null;default:'user'"`
	Office       string    `gorm:"type:varchar(50);not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
