package models

import "time"

type Course struct {
	ID              int64     `json:"id"`
	CoachID         int64     `json:"coach_id"`
	Title           string    `json:"title"`
	Description     *string   `json:"description,omitempty"`
	Price           float64   `json:"price"`
	ApprovalStatus  string    `json:"approval_status"`
	AdminNotes      *string   `json:"admin_notes,omitempty"`
	RejectionReason *string   `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
