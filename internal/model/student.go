package model

import "time"

type Student struct {
	ID           string    `json:"id"`
	ParentID     string    `json:"parent_id"`
	UserID       *string   `json:"user_id"`
	StudentName  string    `json:"student_name"`
	StudentEmail string    `json:"student_email"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Linked reports whether an account has claimed the student record.
func (s *Student) Linked() bool {
	return s.UserID != nil && *s.UserID != ""
}
