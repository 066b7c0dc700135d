package models

import (
	"github.com/uptrace/bun"
)

type Department struct {
	bun.BaseModel `bun:"table:departments"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,unique,notnull" json:"name"`
}

type Position struct {
	bun.BaseModel `bun:"table:positions"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,unique,notnull" json:"name"`
}

type Employee struct {
	bun.BaseModel `bun:"table:employees"`

	ID           int64  `bun:"id,pk,autoincrement" json:"id"`
	Name         string `bun:"name,notnull" json:"name"`
	Surname      string `bun:"surname,notnull" json:"surname"`
	Patronymic   string `bun:"patronymic,nullzero" json:"patronymic,omitempty"`
	DepartmentID int64  `bun:"department_id,nullzero" json:"department_id,omitempty"`
	PositionID   int64  `bun:"position_id,nullzero" json:"position_id,omitempty"`

	Department *Department      `bun:"rel:belongs-to,join:department_id=id" json:"department,omitempty"`
	Position   *Position        `bun:"rel:belongs-to,join:position_id=id" json:"position,omitempty"`
	Photos     []*EmployeePhoto `bun:"rel:has-many,join:id=employee_id" json:"photos,omitempty"`
}

type EmployeePhoto struct {
	bun.BaseModel `bun:"table:employee_photos"`

	ID         int64  `bun:"id,pk,autoincrement" json:"id"`
	EmployeeID int64  `bun:"employee_id,notnull" json:"employee_id"`
	Photo      string `bun:"photo,notnull" json:"path"`
}
