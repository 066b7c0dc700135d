package models

import (
	"github.com/uptrace/bun"
)

type Role string

const (
	RoleHR   Role = "HR"
	RoleUser Role = "USER"
)

// MLUserID is the reserved principal id the ML pipeline authenticates as.
// Only this principal may call the visit-ingestion endpoints.
const MLUserID int64 = -1

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID             int64  `bun:"id,pk,autoincrement" json:"id"`
	Login          string `bun:"login,unique,notnull" json:"login"`
	Role           Role   `bun:"role,notnull,default:'USER'" json:"role"`
	Salt           string `bun:"salt,notnull" json:"-"`
	HashedPassword string `bun:"hashed_password,nullzero" json:"-"`
}
