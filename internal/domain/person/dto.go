package person

import "github.com/aulaiot/attendance-backend/internal/pkg/validator"

type CreatePersonRequest struct {
	Identity    string  `json:"identity" validate:"required,identity"`
	Name        string  `json:"name" validate:"notblank,max=255"`
	Role        string  `json:"role" validate:"required,oneof=student teacher administrator"`
	ClassroomID *string `json:"classroom_id,omitempty" validate:"omitempty,max=36"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Password    *string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
}

func (r *CreatePersonRequest) Validate() error {
	if err := validator.Struct(r); err != nil {
		return err
	}

	var errs validator.ValidationErrors
	role := Role(r.Role)
	if role == RoleStudent && r.ClassroomID == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "classroom_id",
			Message: "classroom_id is required for students",
		})
	}
	if role != RoleStudent && (r.Email == nil || r.Password == nil) {
		errs = append(errs, validator.ValidationError{
			Field:   "email",
			Message: "email and password are required for staff accounts",
		})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// UpdatePersonRequest is a partial update. Nil fields are left unchanged.
type UpdatePersonRequest struct {
	ID          string  `json:"-"`
	Identity    *string `json:"identity,omitempty" validate:"omitempty,identity"`
	Name        *string `json:"name,omitempty" validate:"omitempty,notblank,max=255"`
	Role        *string `json:"role,omitempty" validate:"omitempty,oneof=student teacher administrator"`
	ClassroomID *string `json:"classroom_id,omitempty" validate:"omitempty,max=36"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Password    *string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
}

func (r *UpdatePersonRequest) Validate() error {
	if err := validator.Struct(r); err != nil {
		return err
	}
	if r.Identity == nil && r.Name == nil && r.Role == nil && r.ClassroomID == nil && r.Email == nil && r.Password == nil {
		return validator.ValidationErrors{{
			Field:   "body",
			Message: "at least one field must be provided",
		}}
	}
	return nil
}

// Validate checks the role invariants a stored person must always satisfy.
func (p *Person) Validate() error {
	var errs validator.ValidationErrors
	if p.Role == RoleStudent && p.ClassroomID == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "classroom_id",
			Message: "classroom_id is required for students",
		})
	}
	if p.Role != RoleStudent && (p.Email == nil || p.PasswordHash == nil) {
		errs = append(errs, validator.ValidationError{
			Field:   "email",
			Message: "email and password are required for staff accounts",
		})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type PersonFilter struct {
	Role        *string `json:"role,omitempty"`
	ClassroomID *string `json:"classroom_id,omitempty"`
	Search      *string `json:"search,omitempty"` // name or identity
	Active      *bool   `json:"active,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (f *PersonFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Page == 0 {
		f.Page = 1
	}

	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 1000 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 1000",
		})
	}

	if f.Role != nil && !Role(*f.Role).IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "role",
			Message: "role must be one of: student, teacher, administrator",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ListPersonResponse struct {
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
	Showing    string           `json:"showing"`
	Persons    []PersonResponse `json:"persons"`
}

type PersonResponse struct {
	ID          string  `json:"id"`
	Identity    string  `json:"identity"`
	Name        string  `json:"name"`
	Role        string  `json:"role"`
	ClassroomID *string `json:"classroom_id,omitempty"`
	Email       *string `json:"email,omitempty"`
	Active      bool    `json:"active"`
	CreatedAt   string  `json:"created_at"`
}

// Badge is the QR code a person scans at the station.
type Badge struct {
	Payload string
	PNG     []byte
}
