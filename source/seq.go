/*
NAME
  seq.go

DESCRIPTION
  seq.go implements the active-flag/cursor bookkeeping shared by every
  ImageSource implementation, so video and image-list sources don't
  duplicate seek/active-subset logic.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

package source

import "github.com/starvane/skystack/internal/ioerr"

// sequence tracks which of n frames are active and the current cursor.
type sequence struct {
	active []bool
	cur    int // absolute index of the current frame, or n if exhausted.
}

func newSequence(n int) sequence {
	active := make([]bool, n)
	for i := range active {
		active[i] = true
	}
	return sequence{active: active, cur: n}
}

func (s *sequence) Count() int { return len(s.active) }

func (s *sequence) ActiveCount() int {
	n := 0
	for _, a := range s.active {
		if a {
			n++
		}
	}
	return n
}

func (s *sequence) SetActive(i int, active bool) {
	if i >= 0 && i < len(s.active) {
		s.active[i] = active
	}
}

func (s *sequence) CurrentIndex() int { return s.cur }

func (s *sequence) CurrentActiveIndex() int {
	n := 0
	for i := 0; i < s.cur && i < len(s.active); i++ {
		if s.active[i] {
			n++
		}
	}
	return n
}

func (s *sequence) SeekStart() error {
	s.cur = -1
	return s.SeekNext()
}

func (s *sequence) SeekNext() error {
	for i := s.cur + 1; i < len(s.active); i++ {
		if s.active[i] {
			s.cur = i
			return nil
		}
	}
	s.cur = len(s.active)
	return ioerr.ErrNoMoreImages
}
