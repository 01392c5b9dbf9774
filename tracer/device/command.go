package device

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrAlreadyCommitted = errors.New("device: command buffer already committed")

// The execution time of an encoded command.
type Timing struct {
	Name     string
	Duration time.Duration
}

type command struct {
	name string

	// Either a grid kernel or a host function (e.g. an accelerator query).
	w, h   int
	kernel Kernel
	fn     func(ctx context.Context) error
}

// A CommandBuffer records a linear sequence of commands that are submitted
// together. Commands execute strictly in encoding order; each grid command
// is dispatched in parallel across the device workers.
type CommandBuffer struct {
	device   *Device
	commands []command

	committed bool
	done      chan struct{}
	timings   []Timing
	err       error
}

// Create a new command buffer for this device.
func (d *Device) CommandBuffer() *CommandBuffer {
	return &CommandBuffer{device: d}
}

// Encode a kernel dispatch over a w x h grid.
func (cb *CommandBuffer) Encode(name string, w, h int, kernel Kernel) {
	cb.commands = append(cb.commands, command{name: name, w: w, h: h, kernel: kernel})
}

// Encode a host function.
func (cb *CommandBuffer) EncodeFunc(name string, fn func(ctx context.Context) error) {
	cb.commands = append(cb.commands, command{name: name, fn: fn})
}

// Get the number of encoded commands.
func (cb *CommandBuffer) Len() int {
	return len(cb.commands)
}

// Submit the encoded commands for asynchronous execution. Execution stops at
// the first failing command or when ctx is cancelled.
func (cb *CommandBuffer) Commit(ctx context.Context) error {
	if cb.committed {
		return ErrAlreadyCommitted
	}
	cb.committed = true
	cb.done = make(chan struct{})

	go func() {
		defer close(cb.done)
		for _, cmd := range cb.commands {
			if err := ctx.Err(); err != nil {
				cb.err = err
				return
			}

			var elapsed time.Duration
			var err error
			if cmd.fn != nil {
				tick := time.Now()
				err = cmd.fn(ctx)
				elapsed = time.Since(tick)
			} else {
				elapsed, err = cb.device.Exec2D(ctx, cmd.w, cmd.h, cmd.kernel)
			}

			cb.timings = append(cb.timings, Timing{Name: cmd.name, Duration: elapsed})
			if err != nil {
				cb.err = fmt.Errorf("device (%s): command %q failed: %w", cb.device.Name, cmd.name, err)
				return
			}
		}
	}()

	return nil
}

// Block until a committed command buffer completes and return the timings
// of the executed commands together with the first error encountered.
func (cb *CommandBuffer) Wait() ([]Timing, error) {
	if !cb.committed {
		return nil, errors.New("device: command buffer not committed")
	}
	<-cb.done
	return cb.timings, cb.err
}
