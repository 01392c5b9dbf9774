package writer

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/achilleasa/tiletrace/asset/scene"
)

type closeRecorder struct {
	bytes.Buffer
	closed   int
	closeErr error
}

func (c *closeRecorder) Close() error {
	c.closed++
	return c.closeErr
}

func TestEncodeAndClose(t *testing.T) {
	sc, err := scene.Builtin("triangle")
	if err != nil {
		t.Fatal(err)
	}

	errFlush := errors.New("flush failed")

	type spec struct {
		closeErr error
		expErr   error
	}

	specs := []spec{
		{nil, nil},
		{errFlush, errFlush},
	}

	for specIndex, s := range specs {
		out := &closeRecorder{closeErr: s.closeErr}
		err := encodeAndClose(sc, out)
		if !errors.Is(err, s.expErr) || (s.expErr == nil && err != nil) {
			t.Errorf("[spec %d] expected error %v; got %v", specIndex, s.expErr, err)
		}
		if out.closed != 1 {
			t.Errorf("[spec %d] expected target to be closed once; got %d", specIndex, out.closed)
		}

		zr, err := zip.NewReader(bytes.NewReader(out.Bytes()), int64(out.Len()))
		if err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}
		if len(zr.File) != 1 || zr.File[0].Name != scene.CompiledDataFile {
			t.Errorf("[spec %d] expected a single %s entry", specIndex, scene.CompiledDataFile)
		}
	}
}
