package classroom

import "github.com/aulaiot/attendance-backend/internal/pkg/validator"

type CreateClassroomRequest struct {
	Name     string `json:"name" validate:"notblank,max=100"`
	Building int    `json:"building" validate:"gte=0"`
	DeviceID string `json:"device_id" validate:"notblank,max=50"`
}

func (r *CreateClassroomRequest) Validate() error {
	return validator.Struct(r)
}

type ClassroomResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Building   int     `json:"building"`
	DeviceID   string  `json:"device_id"`
	Status     string  `json:"status"`
	LastSeenAt *string `json:"last_seen_at,omitempty"`
	CreatedAt  string  `json:"created_at"`
}
