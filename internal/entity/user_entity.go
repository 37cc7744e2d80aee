// FILE: internal/entity/user_entity.go
package entity

import (
	"time"
)

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type User struct {
	Id        string
	Email     string
	Role      UserRole
	Credits   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}
