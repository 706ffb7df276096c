package model

import (
	"github.com/google/uuid"
)

// UserRole is one organizational role. A user may hold several.
type UserRole string

const (
	UserRoleEmployee  UserRole = "employee"
	UserRoleManager   UserRole = "manager"
	UserRoleDirector  UserRole = "director"
	UserRoleExecutive UserRole = "executive"
	UserRoleAuditor   UserRole = "auditor"
	UserRoleAdmin     UserRole = "admin"
)

// User is the minimal identity record the workflow needs for display purposes.
// Authentication itself is handled upstream and yields an opaque user id.
type User struct {
	BaseModel
	Email string `gorm:"type:varchar(255);column:email;not null;uniqueIndex" json:"email"`
}

func (u *User) TableName() string {
	return "users"
}

// UserRoleAssignment grants one role to one user.
type UserRoleAssignment struct {
	BaseModel
	UserID uuid.UUID `gorm:"type:uuid;column:user_id;not null;index" json:"userId"`
	Role   UserRole  `gorm:"type:varchar(20);column:role;not null" json:"role"`
}

func (a *UserRoleAssignment) TableName() string {
	return "user_role_assignments"
}
