package models

import "time"

// UserRole represents a user's role in the platform
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleProctor UserRole = "proctor"
	RoleAdmin   UserRole = "admin"
)

// User mirrors the identity provider's view of a user. The exam service
// never writes users; identity lives in Casdoor and is materialized from
// token claims.
type User struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Role      UserRole  `json:"role"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanManageExams reports whether the user may create blueprints and exams
func (u *User) CanManageExams() bool {
	return u.Role == RoleTeacher || u.Role == RoleAdmin
}
