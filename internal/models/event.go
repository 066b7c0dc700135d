package models

import (
	"time"

	"github.com/uptrace/bun"
)

// IntervalLength is the fixed size of a visit-detection time bucket.
const IntervalLength = 5 * time.Minute

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Name          string    `bun:"name,notnull" json:"name"`
	StartDatetime time.Time `bun:"start_datetime,notnull" json:"start_datetime"`
	EndDatetime   time.Time `bun:"end_datetime,notnull" json:"end_datetime"`
	Video         string    `bun:"video,nullzero" json:"video,omitempty"`

	Participants []*PlannedParticipant `bun:"rel:has-many,join:id=event_id" json:"participants,omitempty"`
	Intervals    []*VisitInterval      `bun:"rel:has-many,join:id=event_id" json:"intervals,omitempty"`
}

// PlannedParticipant links an employee expected to attend an event.
// Actual attendance is tracked separately through VisitInterval.
type PlannedParticipant struct {
	bun.BaseModel `bun:"table:planned_participants"`

	ID         int64 `bun:"id,pk,autoincrement" json:"id"`
	EventID    int64 `bun:"event_id,notnull,unique:planned_event_employee" json:"event_id"`
	EmployeeID int64 `bun:"employee_id,notnull,unique:planned_event_employee" json:"employee_id"`

	Employee *Employee `bun:"rel:belongs-to,join:employee_id=id" json:"employee,omitempty"`
}

// VisitInterval is a five-minute bucket of detections within an event,
// indexed by Order starting at 0. Unique per (event_id, "order").
type VisitInterval struct {
	bun.BaseModel `bun:"table:visit_intervals"`

	ID                   int64     `bun:"id,pk,autoincrement" json:"id"`
	EventID              int64     `bun:"event_id,notnull,unique:interval_event_order" json:"event_id"`
	Order                int       `bun:"\"order\",notnull,unique:interval_event_order" json:"order"`
	StartDatetime        time.Time `bun:"start_datetime,notnull" json:"start_datetime"`
	EndDatetime          time.Time `bun:"end_datetime,notnull" json:"end_datetime"`
	MaxUnregistered      int       `bun:"max_unregistered,notnull,default:0" json:"max_unregistered"`
	MaxUnregisteredPhoto string    `bun:"max_unregistered_photo,nullzero" json:"max_unregistered_photo,omitempty"`

	Employees []*IntervalEmployee `bun:"rel:has-many,join:id=interval_id" json:"employees,omitempty"`
}

// IntervalEmployee records the first sighting of an employee inside one
// interval. Unique per (interval_id, employee_id); later sightings of the
// same employee in the same interval are dropped.
type IntervalEmployee struct {
	bun.BaseModel `bun:"table:interval_employees"`

	ID                int64     `bun:"id,pk,autoincrement" json:"id"`
	IntervalID        int64     `bun:"interval_id,notnull,unique:interval_employee" json:"interval_id"`
	EmployeeID        int64     `bun:"employee_id,notnull,unique:interval_employee" json:"employee_id"`
	Photo             string    `bun:"photo,nullzero" json:"photo,omitempty"`
	FirstSpotDatetime time.Time `bun:"first_spot_datetime,notnull" json:"first_spot_datetime"`

	Employee *Employee `bun:"rel:belongs-to,join:employee_id=id" json:"employee,omitempty"`
}
