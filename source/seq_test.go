/*
NAME
  seq_test.go

DESCRIPTION
  seq_test.go provides testing for the sequence cursor/active-flag
  bookkeeping in seq.go.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package source

import (
	"errors"
	"testing"

	"github.com/starvane/skystack/internal/ioerr"
)

func TestSequenceSeekStartAndNext(t *testing.T) {
	s := newSequence(3)
	if err := s.SeekStart(); err != nil {
		t.Fatalf("SeekStart: %v", err)
	}
	if got := s.CurrentIndex(); got != 0 {
		t.Fatalf("CurrentIndex() = %d, want 0", got)
	}
	if err := s.SeekNext(); err != nil {
		t.Fatalf("SeekNext: %v", err)
	}
	if got := s.CurrentIndex(); got != 1 {
		t.Fatalf("CurrentIndex() = %d, want 1", got)
	}
	if err := s.SeekNext(); err != nil {
		t.Fatalf("SeekNext: %v", err)
	}
	if err := s.SeekNext(); !errors.Is(err, ioerr.ErrNoMoreImages) {
		t.Fatalf("SeekNext() at end = %v, want ErrNoMoreImages", err)
	}
}

func TestSequenceSkipsInactiveFrames(t *testing.T) {
	s := newSequence(4)
	s.SetActive(1, false)
	s.SetActive(2, false)
	if err := s.SeekStart(); err != nil {
		t.Fatalf("SeekStart: %v", err)
	}
	if got := s.CurrentIndex(); got != 0 {
		t.Fatalf("CurrentIndex() = %d, want 0", got)
	}
	if err := s.SeekNext(); err != nil {
		t.Fatalf("SeekNext: %v", err)
	}
	if got := s.CurrentIndex(); got != 3 {
		t.Fatalf("CurrentIndex() after skipping inactive frames = %d, want 3", got)
	}
	if got := s.ActiveCount(); got != 2 {
		t.Fatalf("ActiveCount() = %d, want 2", got)
	}
	if got := s.CurrentActiveIndex(); got != 1 {
		t.Fatalf("CurrentActiveIndex() = %d, want 1", got)
	}
}
