package classroom

import (
	"context"
	"strings"
	"time"

	"github.com/aulaiot/attendance-backend/internal/domain/classroom"
)

type ClassroomServiceImpl struct {
	classroom.ClassroomRepository
}

// CreateClassroom implements classroom.ClassroomService.
func (s *ClassroomServiceImpl) CreateClassroom(ctx context.Context, req classroom.CreateClassroomRequest) (classroom.ClassroomResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.DeviceID = strings.TrimSpace(req.DeviceID)
	if err := req.Validate(); err != nil {
		return classroom.ClassroomResponse{}, err
	}

	created, err := s.ClassroomRepository.Create(ctx, classroom.Classroom{
		Name:     req.Name,
		Building: req.Building,
		DeviceID: req.DeviceID,
		Status:   classroom.StatusDisconnected,
	})
	if err != nil {
		return classroom.ClassroomResponse{}, err
	}
	return mapClassroomToResponse(created), nil
}

// ListClassrooms implements classroom.ClassroomService.
func (s *ClassroomServiceImpl) ListClassrooms(ctx context.Context) ([]classroom.ClassroomResponse, error) {
	classrooms, err := s.ClassroomRepository.List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]classroom.ClassroomResponse, 0, len(classrooms))
	for _, c := range classrooms {
		responses = append(responses, mapClassroomToResponse(c))
	}
	return responses, nil
}

// MarkStaleDevices implements classroom.ClassroomService.
func (s *ClassroomServiceImpl) MarkStaleDevices(ctx context.Context, before time.Time) (int64, error) {
	return s.ClassroomRepository.MarkDisconnected(ctx, before)
}

func mapClassroomToResponse(c classroom.Classroom) classroom.ClassroomResponse {
	resp := classroom.ClassroomResponse{
		ID:        c.ID,
		Name:      c.Name,
		Building:  c.Building,
		DeviceID:  c.DeviceID,
		Status:    string(c.Status),
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
	if c.LastSeenAt != nil {
		lastSeen := c.LastSeenAt.Format(time.RFC3339)
		resp.LastSeenAt = &lastSeen
	}
	return resp
}

func NewClassroomService(classroomRepo classroom.ClassroomRepository) classroom.ClassroomService {
	return &ClassroomServiceImpl{
		ClassroomRepository: classroomRepo,
	}
}
