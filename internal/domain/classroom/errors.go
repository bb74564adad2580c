package classroom

import "errors"

var (
	ErrClassroomNotFound   = errors.New("classroom not found")
	ErrDeviceNotRegistered = errors.New("device is not registered to any classroom")
	ErrDeviceExists        = errors.New("device is already bound to a classroom")
)
