package person

import "errors"

var (
	ErrPersonNotFound   = errors.New("person not found")
	ErrRoleNotPermitted = errors.New("role is not permitted to register attendance")
	ErrIdentityExists   = errors.New("identity already registered")
	ErrEmailExists      = errors.New("email already registered")
)
