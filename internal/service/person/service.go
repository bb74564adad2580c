package person

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aulaiot/attendance-backend/internal/domain/classroom"
	"github.com/aulaiot/attendance-backend/internal/domain/person"
	"github.com/aulaiot/attendance-backend/internal/pkg/qrtoken"
	authService "github.com/aulaiot/attendance-backend/internal/service/auth"
)

type PersonServiceImpl struct {
	person.PersonRepository
	classroom.ClassroomRepository
}

// CreatePerson implements person.PersonService.
func (s *PersonServiceImpl) CreatePerson(ctx context.Context, req person.CreatePersonRequest) (person.PersonResponse, error) {
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &email
	}
	if err := req.Validate(); err != nil {
		return person.PersonResponse{}, err
	}

	if req.ClassroomID != nil {
		if _, err := s.ClassroomRepository.GetByID(ctx, *req.ClassroomID); err != nil {
			return person.PersonResponse{}, err
		}
	}

	newPerson := person.Person{
		Identity:    req.Identity,
		Name:        strings.TrimSpace(req.Name),
		Role:        person.Role(req.Role),
		ClassroomID: req.ClassroomID,
		Email:       req.Email,
		Active:      true,
	}
	if req.Password != nil {
		hash, err := authService.HashPassword(*req.Password)
		if err != nil {
			return person.PersonResponse{}, fmt.Errorf("failed to hash password: %w", err)
		}
		newPerson.PasswordHash = &hash
	}

	created, err := s.PersonRepository.Create(ctx, newPerson)
	if err != nil {
		return person.PersonResponse{}, err
	}
	return mapPersonToResponse(created), nil
}

// GetPerson implements person.PersonService.
func (s *PersonServiceImpl) GetPerson(ctx context.Context, id string) (person.PersonResponse, error) {
	p, err := s.PersonRepository.GetByID(ctx, id)
	if err != nil {
		return person.PersonResponse{}, err
	}
	return mapPersonToResponse(p), nil
}

// ListPersons implements person.PersonService.
func (s *PersonServiceImpl) ListPersons(ctx context.Context, filter person.PersonFilter) (person.ListPersonResponse, error) {
	if err := filter.Validate(); err != nil {
		return person.ListPersonResponse{}, err
	}

	persons, total, err := s.PersonRepository.List(ctx, filter)
	if err != nil {
		return person.ListPersonResponse{}, err
	}

	responses := make([]person.PersonResponse, 0, len(persons))
	for _, p := range persons {
		responses = append(responses, mapPersonToResponse(p))
	}

	showing := fmt.Sprintf("%d-%d of %d", (filter.Page-1)*filter.Limit+1, min(filter.Page*filter.Limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return person.ListPersonResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
		Showing:    showing,
		Persons:    responses,
	}, nil
}

// UpdatePerson implements person.PersonService. The merged person must still
// satisfy the role rules a new person is created under.
func (s *PersonServiceImpl) UpdatePerson(ctx context.Context, req person.UpdatePersonRequest) (person.PersonResponse, error) {
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &email
	}
	if err := req.Validate(); err != nil {
		return person.PersonResponse{}, err
	}

	current, err := s.PersonRepository.GetByID(ctx, req.ID)
	if err != nil {
		return person.PersonResponse{}, err
	}

	if req.Identity != nil {
		current.Identity = person.NormalizeIdentity(*req.Identity)
	}
	if req.Name != nil {
		current.Name = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		current.Role = person.Role(*req.Role)
	}
	if req.ClassroomID != nil {
		if _, err := s.ClassroomRepository.GetByID(ctx, *req.ClassroomID); err != nil {
			return person.PersonResponse{}, err
		}
		current.ClassroomID = req.ClassroomID
	}
	if req.Email != nil {
		current.Email = req.Email
	}
	if req.Password != nil {
		hash, err := authService.HashPassword(*req.Password)
		if err != nil {
			return person.PersonResponse{}, fmt.Errorf("failed to hash password: %w", err)
		}
		current.PasswordHash = &hash
	}

	if err := current.Validate(); err != nil {
		return person.PersonResponse{}, err
	}

	updated, err := s.PersonRepository.Update(ctx, current)
	if err != nil {
		return person.PersonResponse{}, err
	}
	return mapPersonToResponse(updated), nil
}

// DeactivatePerson implements person.PersonService.
func (s *PersonServiceImpl) DeactivatePerson(ctx context.Context, id string) error {
	return s.PersonRepository.SetActive(ctx, id, false)
}

// GetBadge implements person.PersonService.
func (s *PersonServiceImpl) GetBadge(ctx context.Context, id string, size int) (person.Badge, error) {
	p, err := s.PersonRepository.GetByID(ctx, id)
	if err != nil {
		return person.Badge{}, err
	}
	if _, err := person.ParseScanRole(p.Role); err != nil {
		return person.Badge{}, err
	}

	payload := qrtoken.Encode(p.Identity, p.Name)
	png, err := qrtoken.PNG(payload, size)
	if err != nil {
		return person.Badge{}, fmt.Errorf("failed to render badge: %w", err)
	}
	return person.Badge{Payload: payload, PNG: png}, nil
}

func mapPersonToResponse(p person.Person) person.PersonResponse {
	return person.PersonResponse{
		ID:          p.ID,
		Identity:    p.Identity,
		Name:        p.Name,
		Role:        string(p.Role),
		ClassroomID: p.ClassroomID,
		Email:       p.Email,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}

func NewPersonService(personRepo person.PersonRepository, classroomRepo classroom.ClassroomRepository) person.PersonService {
	return &PersonServiceImpl{
		PersonRepository:    personRepo,
		ClassroomRepository: classroomRepo,
	}
}
