package reader

import (
	"fmt"
	"strings"

	"github.com/achilleasa/tiletrace/asset"
	"github.com/achilleasa/tiletrace/asset/scene"
)

// The Reader interface is implemented by all scene readers.
type Reader interface {
	// Read scene definition from a resource.
	Read(*asset.Resource) (*scene.Scene, error)
}

// Read scene from a file, URL or builtin scene reference ("builtin:cornell").
func ReadScene(filename string) (*scene.Scene, error) {
	if strings.HasPrefix(filename, scene.BuiltinPrefix) {
		return scene.Builtin(strings.TrimPrefix(filename, scene.BuiltinPrefix))
	}

	res, err := asset.NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	reader, err := readerFor(res)
	if err != nil {
		return nil, err
	}
	return reader.Read(res)
}

// Select reader based on the resource extension.
func readerFor(res *asset.Resource) (Reader, error) {
	switch res.Ext() {
	case ".obj":
		return newWavefrontReader(), nil
	case ".yaml", ".yml":
		return newYamlSceneReader(), nil
	case ".zip":
		return newZipSceneReader(), nil
	}
	return nil, fmt.Errorf("readScene: unsupported file format %q", res.Ext())
}
