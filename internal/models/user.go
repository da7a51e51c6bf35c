package models

import "time"

const (
	RoleStudent = "student"
	RoleCoach   = "coach"
	RoleAdmin   = "admin"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	FullName     *string   `json:"full_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Actor identifies the authenticated caller of a scheduling operation.
// Handlers build it from the token claims; services never read ambient
// request state.
type Actor struct {
	ID   int64
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsCoach() bool {
	return a.Role == RoleCoach
}

func (a Actor) IsStudent() bool {
	return a.Role == RoleStudent
}
