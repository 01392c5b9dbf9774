package device

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
)

type DeviceType uint8

// Supported device types.
const (
	CpuDevice   DeviceType = 1 << iota
	GpuDevice              = 1 << iota
	OtherDevice            = 1 << iota
	AllDevices             = 0xFF
)

var (
	ErrOutOfResources = errors.New("device: out of resources")
	ErrNoWorkers      = errors.New("device: no compute workers available")
)

func (dt DeviceType) String() string {
	switch dt {
	case CpuDevice:
		return "CPU"
	case GpuDevice:
		return "GPU"
	case OtherDevice:
		return "Other"
	}
	return fmt.Sprintf("DeviceType(%d)", uint8(dt))
}

// A compute device that dispatches kernels over a 2D grid using a pool of
// goroutines and tracks the memory allocated by its buffers.
type Device struct {
	Name string
	Type DeviceType

	// Number of goroutines used for kernel dispatch.
	Workers int

	// The max number of bytes that may be allocated by buffers attached to
	// this device. A zero value disables the limit.
	MaxBufferBytes int64

	mu        sync.Mutex
	allocated int64
}

// Create a CPU device using the given number of workers. A non-positive
// worker count selects the number of CPUs.
func NewCPU(workers int) *Device {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Device{
		Name:    fmt.Sprintf("CPU (%d workers)", workers),
		Type:    CpuDevice,
		Workers: workers,
	}
}

// Implements Stringer.
func (d *Device) String() string {
	limit := "unlimited"
	if d.MaxBufferBytes > 0 {
		limit = fmt.Sprintf("%d bytes", d.MaxBufferBytes)
	}
	return fmt.Sprintf("Name: %s\nType: %s\nSpecs: %d workers, buffer limit %s", d.Name, d.Type, d.Workers, limit)
}

// Returns true if the device can execute kernels.
func (d *Device) IsSupported() bool {
	return d != nil && d.Workers > 0
}

// Get the number of bytes currently allocated by device buffers.
func (d *Device) Allocated() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocated
}

// Account for a change in allocated bytes. Growing past the device limit
// fails without modifying the current allocation.
func (d *Device) reserve(delta int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if delta > 0 && d.MaxBufferBytes > 0 && d.allocated+delta > d.MaxBufferBytes {
		return ErrOutOfResources
	}
	d.allocated += delta
	return nil
}

// List the devices available on this system that match the type mask and
// whose name contains matchName.
func SelectDevices(typeMask DeviceType, matchName string) []*Device {
	serial := NewCPU(1)
	serial.Name = "CPU serial"

	list := make([]*Device, 0)
	for _, d := range []*Device{NewCPU(0), serial} {
		if d.Type&typeMask != d.Type {
			continue
		}
		if matchName != "" && !strings.Contains(d.Name, matchName) {
			continue
		}
		list = append(list, d)
	}
	return list
}
