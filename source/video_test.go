/*
NAME
  video_test.go

DESCRIPTION
  video_test.go provides testing for OpenVideo's extension dispatch and
  the videoSource wrapper in video.go.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starvane/skystack/internal/pixel"
)

func TestOpenVideoRejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("not a real container"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := OpenVideo(path); err == nil {
		t.Fatal("OpenVideo: expected error for unsupported extension, got nil")
	}
}

type fakeBackend struct {
	w, h  int
	fmt   pixel.Format
	count int
}

func (f *fakeBackend) Count() int              { return f.count }
func (f *fakeBackend) Format() pixel.Format     { return f.fmt }
func (f *fakeBackend) Dims() (int, int)         { return f.w, f.h }
func (f *fakeBackend) ImageAt(i int) (*pixel.Image, error) {
	return pixel.New(f.w, f.h, f.fmt), nil
}

func TestVideoSourceMetadataUsesDimsWithoutDecoding(t *testing.T) {
	backend := &fakeBackend{w: 640, h: 480, fmt: pixel.MONO16, count: 3}
	v := &videoSource{backend: backend, seq: newSequence(backend.Count())}
	if err := v.SeekStart(); err != nil {
		t.Fatalf("SeekStart: %v", err)
	}
	md, err := v.MetadataAtCurrent()
	if err != nil {
		t.Fatalf("MetadataAtCurrent: %v", err)
	}
	if md.Width != 640 || md.Height != 480 || md.Format != pixel.MONO16 {
		t.Errorf("MetadataAtCurrent() = %+v, want {640 480 MONO16}", md)
	}
}
