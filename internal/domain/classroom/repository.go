package classroom

import (
	"context"
	"time"
)

type ClassroomRepository interface {
	GetByID(ctx context.Context, id string) (Classroom, error)
	GetByDeviceID(ctx context.Context, deviceID string) (Classroom, error)
	List(ctx context.Context) ([]Classroom, error)
	Create(ctx context.Context, newClassroom Classroom) (Classroom, error)

	// TouchDevice marks the station as active and records when it was last seen.
	TouchDevice(ctx context.Context, deviceID string, at time.Time) error

	// MarkDisconnected flags active stations not seen since before.
	MarkDisconnected(ctx context.Context, before time.Time) (int64, error)
}
