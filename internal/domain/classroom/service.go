package classroom

import (
	"context"
	"time"
)

type ClassroomService interface {
	CreateClassroom(ctx context.Context, req CreateClassroomRequest) (ClassroomResponse, error)
	ListClassrooms(ctx context.Context) ([]ClassroomResponse, error)

	// MarkStaleDevices flags stations that have not scanned since before
	MarkStaleDevices(ctx context.Context, before time.Time) (int64, error)
}
