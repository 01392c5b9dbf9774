package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/achilleasa/tiletrace/accel"
	"github.com/achilleasa/tiletrace/asset/scene/reader"
	"github.com/achilleasa/tiletrace/config"
	"github.com/achilleasa/tiletrace/renderer"
	"github.com/achilleasa/tiletrace/tracer"
	"github.com/achilleasa/tiletrace/tracer/device"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
	"golang.org/x/image/bmp"
)

// Render a still frame.
func RenderFrame(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing scene file argument")
	}

	cfg, err := loadRenderConfig(ctx)
	if err != nil {
		return err
	}

	opts, err := renderer.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	var tracerOpts []tracer.Option
	switch ctx.String("accelerator") {
	case "", "bvh":
	case "none":
		logger.Warning("rendering without an acceleration structure; all rays will miss")
		tracerOpts = append(tracerOpts, tracer.WithAccelerator(accel.Null{}))
	default:
		return fmt.Errorf("unsupported accelerator %q", ctx.String("accelerator"))
	}

	sc, err := reader.ReadScene(ctx.Args().First())
	if err != nil {
		return err
	}

	dev := device.NewCPU(cfg.Device.Workers)
	dev.MaxBufferBytes = cfg.Device.MaxBufferBytes
	logger.Infof("using device:\n%s", dev)

	r, err := renderer.NewProgressive(sc, dev, opts, tracerOpts...)
	if err != nil {
		return err
	}
	defer r.Close()

	renderCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = r.Render(renderCtx)
	if errors.Is(err, renderer.ErrInterrupted) {
		logger.Warning("render interrupted; writing partial frame")
	} else if err != nil {
		return err
	}

	displayFrameStats(r.Stats())

	return writeFrame(r.Frame(), ctx.String("out"))
}

// Load the render settings and apply any command line overrides.
func loadRenderConfig(ctx *cli.Context) (config.Render, error) {
	cfg := config.Default()
	if path := ctx.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}

	if ctx.IsSet("width") {
		cfg.Width = ctx.Int("width")
	}
	if ctx.IsSet("height") {
		cfg.Height = ctx.Int("height")
	}
	if ctx.IsSet("passes") {
		cfg.Passes = ctx.Int("passes")
	}
	if ctx.IsSet("exposure") {
		cfg.ToneMapping.Exposure = float32(ctx.Float64("exposure"))
	}
	if ctx.IsSet("tone-map") {
		cfg.ToneMapping.Operator = ctx.String("tone-map")
	}
	if ctx.IsSet("no-adaptive") {
		cfg.Sampler.Adaptive = !ctx.Bool("no-adaptive")
	}
	if ctx.IsSet("no-shadows") {
		cfg.Shadows = !ctx.Bool("no-shadows")
	}
	if ctx.IsSet("workers") {
		cfg.Device.Workers = ctx.Int("workers")
	}
	if ctx.IsSet("seed") {
		cfg.Sampler.Seed = uint64(ctx.Int64("seed"))
	}

	return cfg, cfg.Validate()
}

func writeFrame(frame image.Image, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err = encodeFrame(f, frame, filepath.Ext(filename)); err != nil {
		return err
	}

	logger.Noticef("wrote frame to %s", filename)
	return nil
}

// Encode the frame in the format selected by ext and close the target.
func encodeFrame(out io.WriteCloser, frame image.Image, ext string) error {
	var err error
	switch strings.ToLower(ext) {
	case ".bmp":
		err = bmp.Encode(out, frame)
	default:
		err = png.Encode(out, frame)
	}
	if err != nil {
		_ = out.Close()
		return fmt.Errorf("could not encode frame: %w", err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("could not write frame: %w", err)
	}
	return nil
}

func displayFrameStats(stats renderer.FrameStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Stage", "Calls", "Render time"})
	for _, stage := range stats.Stages {
		table.Append([]string{
			stage.Name,
			fmt.Sprintf("%d", stage.Calls),
			stage.RenderTime.String(),
		})
	}
	table.SetFooter([]string{"", "TOTAL", stats.RenderTime.String()})
	table.Render()

	logger.Noticef(
		"rendered %d passes (%d traced samples); %d/%d tiles converged; samples per pixel min %d, max %d, avg %.1f\n%s",
		stats.Passes, stats.Traces, stats.ConvergedTiles, stats.TotalTiles,
		stats.MinSamples, stats.MaxSamples, stats.AverageSamples,
		buf.String(),
	)
}
