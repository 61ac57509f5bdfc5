package models

import (
	"time"
)

// UserRole defines allowed roles in the system
type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
)

func (r UserRole) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

type User struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36" bson:"_id"`
	Name         string    `json:"name" gorm:"not null" bson:"name"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null" bson:"email"`
	PasswordHash string    `json:"-" gorm:"not null" bson:"password_hash"`
	Role         UserRole  `json:"role" gorm:"not null;default:'customer'" bson:"role"`
	PhoneNumber  string    `json:"phone_number" bson:"phone_number"`
	Address      string    `json:"address" bson:"address"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
