package device

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
)

func TestSelectDevices(t *testing.T) {
	devices := SelectDevices(AllDevices, "")
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices; got %d", len(devices))
	}

	devices = SelectDevices(CpuDevice, "serial")
	if len(devices) != 1 || devices[0].Workers != 1 {
		t.Fatalf("expected the serial cpu device; got %v", devices)
	}

	if devices = SelectDevices(GpuDevice, ""); len(devices) != 0 {
		t.Fatalf("expected no gpu devices; got %d", len(devices))
	}
}

func TestBufferGrow(t *testing.T) {
	dev := NewCPU(2)
	buf := NewBuffer[float32](dev, "test")
	defer buf.Release()

	type spec struct {
		n          int
		expRealloc bool
		expCap     int
	}

	specs := []spec{
		{128, true, 128},
		{64, false, 128},
		{128, false, 128},
		{256, true, 256},
		{0, false, 256},
	}

	for specIndex, s := range specs {
		realloc, err := buf.Grow(s.n)
		if err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}
		if realloc != s.expRealloc {
			t.Fatalf("[spec %d] expected realloc to be %t; got %t", specIndex, s.expRealloc, realloc)
		}
		if buf.Len() != s.n || buf.Cap() != s.expCap {
			t.Fatalf("[spec %d] expected len %d and cap %d; got %d and %d", specIndex, s.n, s.expCap, buf.Len(), buf.Cap())
		}
	}

	if exp := int64(256 * 4); dev.Allocated() != exp {
		t.Fatalf("expected device to track %d allocated bytes; got %d", exp, dev.Allocated())
	}
}

func TestBufferReallocationDoesNotTouchPreviousGeneration(t *testing.T) {
	dev := NewCPU(1)
	buf := NewBuffer[int32](dev, "test")
	buf.Grow(4)

	prev := buf.Data()
	for i := range prev {
		prev[i] = int32(i + 1)
	}

	buf.Grow(8)
	for i := range buf.Data() {
		buf.Data()[i] = -1
	}

	for i, v := range prev {
		if v != int32(i+1) {
			t.Fatalf("expected previous generation to be untouched; got %v", prev)
		}
	}
}

func TestBufferOutOfResources(t *testing.T) {
	dev := NewCPU(1)
	dev.MaxBufferBytes = 64

	buf := NewBuffer[float32](dev, "limited")
	if _, err := buf.Grow(16); err != nil {
		t.Fatal(err)
	}
	buf.Data()[0] = 42

	_, err := buf.Grow(17)
	if !errors.Is(err, ErrOutOfResources) {
		t.Fatalf("expected ErrOutOfResources; got %v", err)
	}
	if buf.Len() != 16 || buf.Data()[0] != 42 {
		t.Fatal("expected failed allocation to leave the buffer untouched")
	}

	buf.Release()
	if dev.Allocated() != 0 {
		t.Fatalf("expected release to return all bytes; got %d", dev.Allocated())
	}
}

func TestExec2DVisitsEachCellOnce(t *testing.T) {
	dev := NewCPU(3)
	w, h := 17, 11
	visits := make([]int32, w*h)

	_, err := dev.Exec2D(context.Background(), w, h, func(x, y int) {
		atomic.AddInt32(&visits[y*w+x], 1)
	})
	if err != nil {
		t.Fatal(err)
	}

	for i, v := range visits {
		if v != 1 {
			t.Fatalf("expected cell %d to be visited once; got %d", i, v)
		}
	}

	var count int32
	if _, err = dev.Exec1D(context.Background(), 1000, func(int) { atomic.AddInt32(&count, 1) }); err != nil {
		t.Fatal(err)
	}
	if count != 1000 {
		t.Fatalf("expected 1000 invocations; got %d", count)
	}
}

func TestExecWithoutWorkers(t *testing.T) {
	dev := &Device{Name: "broken"}
	if _, err := dev.Exec2D(context.Background(), 1, 1, func(int, int) {}); err != ErrNoWorkers {
		t.Fatalf("expected ErrNoWorkers; got %v", err)
	}
}

func TestCommandBufferOrdering(t *testing.T) {
	dev := NewCPU(4)
	cb := dev.CommandBuffer()

	var order []string
	grid := make([]int, 16)
	cb.Encode("fill", 4, 4, func(x, y int) { grid[y*4+x] = x + y })
	cb.EncodeFunc("check", func(context.Context) error {
		order = append(order, "check")
		if grid[15] != 6 {
			return errors.New("grid not filled")
		}
		return nil
	})
	cb.EncodeFunc("last", func(context.Context) error {
		order = append(order, "last")
		return nil
	})

	if err := cb.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}
	timings, err := cb.Wait()
	if err != nil {
		t.Fatal(err)
	}

	if len(timings) != 3 || timings[0].Name != "fill" {
		t.Fatalf("expected 3 timings starting with fill; got %v", timings)
	}
	if strings.Join(order, ",") != "check,last" {
		t.Fatalf("expected commands to run in order; got %v", order)
	}
	if err = cb.Commit(context.Background()); err != ErrAlreadyCommitted {
		t.Fatalf("expected ErrAlreadyCommitted; got %v", err)
	}
}

func TestCommandBufferStopsOnError(t *testing.T) {
	dev := NewCPU(1)
	cb := dev.CommandBuffer()

	expErr := errors.New("boom")
	ran := false
	cb.EncodeFunc("fail", func(context.Context) error { return expErr })
	cb.EncodeFunc("skipped", func(context.Context) error { ran = true; return nil })

	cb.Commit(context.Background())
	timings, err := cb.Wait()
	if !errors.Is(err, expErr) {
		t.Fatalf("expected wrapped boom error; got %v", err)
	}
	if ran || len(timings) != 1 {
		t.Fatal("expected execution to stop at the first failing command")
	}
}

func TestCommandBufferCancellation(t *testing.T) {
	dev := NewCPU(1)
	cb := dev.CommandBuffer()
	cb.Encode("noop", 1, 1, func(int, int) {})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cb.Commit(ctx)
	if _, err := cb.Wait(); err != context.Canceled {
		t.Fatalf("expected context.Canceled; got %v", err)
	}
}
