package classroom

import "time"

type Status string

const (
	StatusActive       Status = "active"
	StatusDisconnected Status = "disconnected"
)

// Classroom is a room with one scanning station bound to it by device ID.
type Classroom struct {
	ID         string
	Name       string
	Building   int
	DeviceID   string
	Status     Status
	LastSeenAt *time.Time
	CreatedAt  time.Time
}
