package model

import (
	"medsys/shared/model"
	"time"
)

const (
	TableName  = "users"
	EntityName = "user"

	FieldID        = "id"
	FieldUsername  = "username"
	FieldEmail     = "email"
	FieldPassword  = "password"
	FieldRole      = "role"
	FieldFullName  = "full_name"
	FieldLastLogin = "last_login"
	FieldActive    = "active"
)

type User struct {
	ID        string     `db:"id"`
	Username  string     `db:"username"`
	Email     string     `db:"email"`
	Password  string     `db:"password"`
	Role      string     `db:"role"`
	FullName  *string    `db:"full_name"`
	LastLogin *time.Time `db:"last_login"`
	Active    bool       `db:"active"`
	model.Metadata
}
