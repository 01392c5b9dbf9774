package cmd

import (
	"errors"
	"strings"

	"github.com/achilleasa/tiletrace/asset/scene"
	"github.com/achilleasa/tiletrace/asset/scene/reader"
	"github.com/urfave/cli"
)

// Display scene info.
func ShowSceneInfo(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing scene file; use " + scene.BuiltinPrefix + "{" + strings.Join(scene.BuiltinNames(), ",") + "} for a built-in scene")
	}

	sc, err := reader.ReadScene(ctx.Args().First())
	if err != nil {
		return err
	}

	logger.Noticef("scene information:\n%s", sc.Stats())
	return nil
}
