package person

import (
	"strings"
	"time"
)

type Role string

const (
	RoleStudent       Role = "student"
	RoleTeacher       Role = "teacher"
	RoleAdministrator Role = "administrator"
)

// ScanRole is the subset of roles allowed to submit attendance scans.
type ScanRole int

const (
	ScanStudent ScanRole = iota + 1
	ScanTeacher
)

func (r ScanRole) String() string {
	switch r {
	case ScanStudent:
		return string(RoleStudent)
	case ScanTeacher:
		return string(RoleTeacher)
	default:
		return "unknown"
	}
}

// ParseScanRole rejects every role except student and teacher.
func ParseScanRole(role Role) (ScanRole, error) {
	switch role {
	case RoleStudent:
		return ScanStudent, nil
	case RoleTeacher:
		return ScanTeacher, nil
	default:
		return 0, ErrRoleNotPermitted
	}
}

func (r Role) IsValid() bool {
	return r == RoleStudent || r == RoleTeacher || r == RoleAdministrator
}

type Person struct {
	ID           string
	Identity     string
	Name         string
	Role         Role
	ClassroomID  *string
	Email        *string
	PasswordHash *string
	Active       bool
	CreatedAt    time.Time
}

// IsTeacher checks if person is a teacher
func (p *Person) IsTeacher() bool {
	return p.Role == RoleTeacher
}

// IsAdministrator checks if person is an administrator
func (p *Person) IsAdministrator() bool {
	return p.Role == RoleAdministrator
}

// Classroom returns the assigned classroom or an empty string.
func (p *Person) Classroom() string {
	if p.ClassroomID == nil {
		return ""
	}
	return *p.ClassroomID
}

// NormalizeIdentity canonicalizes a national ID: the last hyphen segment loses
// its leading zeros ("V-00123" -> "V-123"). Identities must be stored and
// looked up in this form.
func NormalizeIdentity(identity string) string {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return identity
	}
	parts := strings.Split(identity, "-")
	last := strings.TrimLeft(parts[len(parts)-1], "0")
	if last == "" && parts[len(parts)-1] != "" {
		last = "0"
	}
	parts[len(parts)-1] = last
	return strings.Join(parts, "-")
}
