package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/achilleasa/tiletrace/asset/scene"
	"github.com/achilleasa/tiletrace/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "tiletrace"
	app.Usage = "render scenes using variance-guided adaptive ray tracing"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "log level (debug, info, notice, warning, error)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "compile text scene representation into a binary compressed format",
			Description: `
Parse a scene definition from a wavefront obj file or a yaml scene description
and package the flattened geometry, materials, lights and camera into a zip
archive which can be supplied as an argument to the render command.`,
			ArgsUsage: "scene_file1.obj scene_file2.yaml ...",
			Action:    cmd.CompileScene,
		},
		{
			Name:      "scene-info",
			Usage:     "print scene statistics",
			ArgsUsage: "scene_file",
			Action:    cmd.ShowSceneInfo,
		},
		{
			Name:   "list-devices",
			Usage:  "list available compute devices",
			Action: cmd.ListDevices,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "match",
					Usage: "only list devices whose name contains this value",
				},
			},
		},
		{
			Name:  "render",
			Usage: "render a single frame",
			Description: fmt.Sprintf(`
Render a scene progressively until every tile converges or the pass limit is
reached. The scene argument may be a .obj, .yaml or compiled .zip file or one
of the built-in scenes: %s{%s}.

Settings are read from the optional config file; command line flags override
them.`, scene.BuiltinPrefix, strings.Join(scene.BuiltinNames(), ",")),
			ArgsUsage: "scene_file",
			Action:    cmd.RenderFrame,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "config, c",
					Usage: "yaml file with render settings",
				},
				cli.IntFlag{
					Name:  "width",
					Value: 512,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 512,
					Usage: "frame height",
				},
				cli.IntFlag{
					Name:  "passes",
					Value: 64,
					Usage: "max number of passes; 0 renders until all tiles converge",
				},
				cli.Float64Flag{
					Name:  "exposure",
					Value: 1.0,
					Usage: "camera exposure for tone-mapping",
				},
				cli.StringFlag{
					Name:  "tone-map",
					Value: "reinhard",
					Usage: "tone mapping operator (none, reinhard, aces, uncharted2)",
				},
				cli.BoolFlag{
					Name:  "no-adaptive",
					Usage: "sample every tile on every pass",
				},
				cli.BoolFlag{
					Name:  "no-shadows",
					Usage: "disable shadow rays",
				},
				cli.IntFlag{
					Name:  "workers",
					Usage: "number of device workers; 0 uses all CPUs",
				},
				cli.Int64Flag{
					Name:  "seed",
					Value: 1,
					Usage: "seed for the sub-pixel jitter",
				},
				cli.StringFlag{
					Name:  "accelerator",
					Value: "bvh",
					Usage: "ray intersection accelerator (bvh, none)",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame (.png or .bmp)",
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
