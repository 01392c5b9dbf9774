package device

import (
	"fmt"
	"unsafe"
)

// A typed device buffer. Buffers grow but never shrink; whenever the
// requested length exceeds the current capacity a fresh backing array is
// allocated and the previous contents are discarded. Slices obtained before
// a reallocation keep referencing the previous generation.
type Buffer[T any] struct {
	device *Device
	name   string
	data   []T
}

// Create an empty buffer attached to a device.
func NewBuffer[T any](d *Device, name string) *Buffer[T] {
	return &Buffer[T]{
		device: d,
		name:   name,
	}
}

// Get the buffer name.
func (b *Buffer[T]) Name() string {
	return b.name
}

// Get buffer contents.
func (b *Buffer[T]) Data() []T {
	return b.data
}

// Get the number of usable elements.
func (b *Buffer[T]) Len() int {
	return len(b.data)
}

// Get the number of allocated elements.
func (b *Buffer[T]) Cap() int {
	return cap(b.data)
}

// Get allocated size in bytes.
func (b *Buffer[T]) Size() int {
	var zero T
	return cap(b.data) * int(unsafe.Sizeof(zero))
}

// Ensure the buffer holds at least n elements. Returns true if the buffer
// was reallocated. If the allocation would exceed the device limits the
// buffer keeps its previous allocation and contents.
func (b *Buffer[T]) Grow(n int) (bool, error) {
	if n < 0 {
		return false, fmt.Errorf("device (%s): invalid length %d for buffer %s", b.device.Name, n, b.name)
	}
	if n <= cap(b.data) {
		b.data = b.data[:n]
		return false, nil
	}

	var zero T
	elemSize := int64(unsafe.Sizeof(zero))
	if err := b.device.reserve(int64(n-cap(b.data)) * elemSize); err != nil {
		return false, fmt.Errorf("device (%s): could not allocate buffer %s with %d elements: %w", b.device.Name, b.name, n, err)
	}

	b.data = make([]T, n)
	return true, nil
}

// Release the buffer allocation.
func (b *Buffer[T]) Release() {
	if b.data == nil {
		return
	}

	var zero T
	_ = b.device.reserve(-int64(cap(b.data)) * int64(unsafe.Sizeof(zero)))
	b.data = nil
}
