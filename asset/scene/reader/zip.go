package reader

import (
	"archive/zip"
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"time"

	"github.com/achilleasa/tiletrace/asset"
	"github.com/achilleasa/tiletrace/asset/scene"
	"github.com/achilleasa/tiletrace/log"
	"github.com/pkg/errors"
)

type zipSceneReader struct {
	logger log.Logger
}

// Create a new zip scene reader
func newZipSceneReader() *zipSceneReader {
	return &zipSceneReader{
		logger: log.New("zip reader"),
	}
}

// Read scene definition from zip file.
func (p *zipSceneReader) Read(sceneRes *asset.Resource) (*scene.Scene, error) {
	p.logger.Noticef(`parsing compiled scene from "%s"`, sceneRes.Path())
	start := time.Now()

	// zip package requires a reader implementing ReaderAt. To work around
	// this requirement we read the entire zip file into memory.
	data, err := io.ReadAll(sceneRes)
	if err != nil {
		return nil, errors.Wrapf(err, "zipSceneReader: could not read %s", sceneRes.Path())
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrapf(err, "zipSceneReader: %s", sceneRes.Path())
	}

	var sc *scene.Scene
	for _, f := range zr.File {
		if f.Name != scene.CompiledDataFile {
			p.logger.Warningf("unknown file %s in scene zip file; skipping", f.Name)
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		sc = &scene.Scene{}
		err = gob.NewDecoder(rc).Decode(sc)
		rc.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "zipSceneReader: failed to load %s", f.Name)
		}
	}

	if sc == nil {
		return nil, fmt.Errorf("zipSceneReader: %s does not contain %s", sceneRes.Path(), scene.CompiledDataFile)
	}

	p.logger.Noticef("loaded scene in %d ms", time.Since(start).Nanoseconds()/1000000)
	return sc, nil
}
