package device

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// A kernel processes a single cell of a 2D grid.
type Kernel func(x, y int)

// Run kernel over a w x h grid. Rows are split into bands processed in
// parallel by the device workers; cells within a stage carry no ordering
// guarantees.
func (d *Device) Exec2D(ctx context.Context, w, h int, kernel Kernel) (time.Duration, error) {
	if !d.IsSupported() {
		return 0, ErrNoWorkers
	}

	tick := time.Now()
	if w <= 0 || h <= 0 {
		return 0, ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.Workers)

	bandH := (h + d.Workers - 1) / d.Workers
	for y0 := 0; y0 < h; y0 += bandH {
		y1 := y0 + bandH
		if y1 > h {
			y1 = h
		}
		g.Go(func() error {
			for y := y0; y < y1; y++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				for x := 0; x < w; x++ {
					kernel(x, y)
				}
			}
			return nil
		})
	}

	err := g.Wait()
	return time.Since(tick), err
}

// Run kernel over a 1D range split into one chunk per worker.
func (d *Device) Exec1D(ctx context.Context, n int, kernel func(i int)) (time.Duration, error) {
	if !d.IsSupported() {
		return 0, ErrNoWorkers
	}

	tick := time.Now()
	if n <= 0 {
		return 0, ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	chunk := (n + d.Workers - 1) / d.Workers
	for i0 := 0; i0 < n; i0 += chunk {
		i1 := i0 + chunk
		if i1 > n {
			i1 = n
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := i0; i < i1; i++ {
				kernel(i)
			}
			return nil
		})
	}

	err := g.Wait()
	return time.Since(tick), err
}
