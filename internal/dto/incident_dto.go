package dto

import "helpdesk/internal/model"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CreateIncidentRequest arrives as multipart form fields; files travel
// separately under the "files" field.
type CreateIncidentRequest struct {
	Title       string `form:"title"       json:"title"`
	Description string `form:"description" json:"description"`
	Priority    string `form:"priority"    json:"priority"`
}

// UpdateIncidentRequest is a partial patch: nil fields stay untouched.
type UpdateIncidentRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
}

// HasStatus reports whether the patch attempts a status change.
func (r UpdateIncidentRequest) HasStatus() bool { return r.Status != nil }

type RemoveFileRequest struct {
	PublicID string `json:"public_id" validate:"required"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type IncidentResponse struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Office      string             `json:"office"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Priority    string             `json:"priority"`
	Status      string             `json:"status"`
	Files       []model.Attachment `json:"files"`
	CreatedAt   string             `json:"createdAt"`
}
