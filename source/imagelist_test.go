/*
NAME
  imagelist_test.go

DESCRIPTION
  imagelist_test.go provides testing for OpenImageList in imagelist.go,
  using small BMP files written to a temporary directory.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package source

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/starvane/skystack/container/bmp"
	"github.com/starvane/skystack/internal/pixel"
)

func writeTestBMP(t *testing.T, path string, fill byte) {
	t.Helper()
	im := pixel.New(2, 2, pixel.PAL8)
	for i := range im.Pix {
		im.Pix[i] = fill
	}
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, im); err != nil {
		t.Fatalf("bmp.Encode: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestOpenImageListOrdersAndDecodes(t *testing.T) {
	dir := t.TempDir()
	writeTestBMP(t, filepath.Join(dir, "b.bmp"), 2)
	writeTestBMP(t, filepath.Join(dir, "a.bmp"), 1)
	if err := os.WriteFile(filepath.Join(dir, "ignore.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	src, err := OpenImageList(dir)
	if err != nil {
		t.Fatalf("OpenImageList: %v", err)
	}
	if got := src.Count(); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}
	im, err := src.ImageAt(0)
	if err != nil {
		t.Fatalf("ImageAt(0): %v", err)
	}
	if im.Pix[0] != 1 {
		t.Errorf("ImageAt(0) pixel = %d, want 1 (a.bmp should sort first)", im.Pix[0])
	}
}

func TestOpenImageListRejectsEmptyDir(t *testing.T) {
	dir := t.TempDir()
	if _, err := OpenImageList(dir); err == nil {
		t.Fatal("OpenImageList: expected error for empty directory, got nil")
	}
}
