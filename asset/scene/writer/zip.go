package writer

import (
	"archive/zip"
	"encoding/gob"
	"io"
	"os"
	"time"

	"github.com/achilleasa/tiletrace/asset/scene"
	"github.com/achilleasa/tiletrace/log"
	"github.com/pkg/errors"
)

type zipSceneWriter struct {
	logger    log.Logger
	sceneFile string
}

// Create a new zip scene writer
func newZipSceneWriter(sceneFile string) *zipSceneWriter {
	return &zipSceneWriter{
		logger:    log.New("zip writer"),
		sceneFile: sceneFile,
	}
}

// Write scene definition to zip file.
func (w *zipSceneWriter) Write(sc *scene.Scene) error {
	w.logger.Noticef("writing compressed scene to %s", w.sceneFile)
	start := time.Now()

	zipFile, err := os.Create(w.sceneFile)
	if err != nil {
		return errors.Wrap(err, "zipSceneWriter")
	}
	if err = encodeAndClose(sc, zipFile); err != nil {
		return err
	}

	w.logger.Noticef("compressed scene in %d ms", time.Since(start).Nanoseconds()/1000000)
	return nil
}

// Encode the scene and close the target. The close error is reported when
// encoding succeeds as it may carry a failed flush.
func encodeAndClose(sc *scene.Scene, out io.WriteCloser) error {
	if err := Encode(sc, out); err != nil {
		_ = out.Close()
		return err
	}
	return errors.Wrap(out.Close(), "zipSceneWriter")
}

// Encode a scene as a zip archive into the supplied writer.
func Encode(sc *scene.Scene, out io.Writer) error {
	zw := zip.NewWriter(out)

	cw, err := zw.Create(scene.CompiledDataFile)
	if err != nil {
		return errors.Wrap(err, "zipSceneWriter")
	}
	if err = gob.NewEncoder(cw).Encode(sc); err != nil {
		return errors.Wrap(err, "zipSceneWriter: could not encode scene")
	}

	return errors.Wrap(zw.Close(), "zipSceneWriter")
}
