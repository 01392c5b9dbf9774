package tracer

import "errors"

var (
	ErrUnsupportedDevice    = errors.New("tracer: device does not support ray tracing")
	ErrNotInitialized       = errors.New("tracer: not initialized")
	ErrNoAccelerator        = errors.New("tracer: acceleration structure not available")
	ErrInvalidFrameSize     = errors.New("tracer: invalid frame size")
	ErrInvalidCamera        = errors.New("tracer: invalid camera")
	ErrInvalidTransition    = errors.New("tracer: invalid frame state transition")
	ErrEmptyMaterials       = errors.New("tracer: empty material list")
	ErrEmptyMaterialIndices = errors.New("tracer: empty material index list")
)
