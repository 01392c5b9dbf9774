package cmd

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"
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

func TestEncodeFrame(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 4, 2))
	errFlush := errors.New("flush failed")

	type spec struct {
		ext      string
		closeErr error
		decode   func(*bytes.Buffer) (image.Image, error)
	}

	decodePNG := func(b *bytes.Buffer) (image.Image, error) { return png.Decode(b) }
	decodeBMP := func(b *bytes.Buffer) (image.Image, error) { return bmp.Decode(b) }

	specs := []spec{
		{".png", nil, decodePNG},
		{".BMP", nil, decodeBMP},
		{"", nil, decodePNG},
		{".png", errFlush, decodePNG},
	}

	for specIndex, s := range specs {
		out := &closeRecorder{closeErr: s.closeErr}
		err := encodeFrame(out, frame, s.ext)
		if !errors.Is(err, s.closeErr) || (s.closeErr == nil && err != nil) {
			t.Errorf("[spec %d] expected error %v; got %v", specIndex, s.closeErr, err)
		}
		if out.closed != 1 {
			t.Errorf("[spec %d] expected target to be closed once; got %d", specIndex, out.closed)
		}

		img, err := s.decode(&out.Buffer)
		if err != nil {
			t.Errorf("[spec %d] could not decode frame: %v", specIndex, err)
			continue
		}
		if img.Bounds() != frame.Bounds() {
			t.Errorf("[spec %d] expected bounds %v; got %v", specIndex, frame.Bounds(), img.Bounds())
		}
	}
}
