/*
NAME
  imgcache.go

DESCRIPTION
  imgcache.go provides a bounded, keyed cache of decoded frames, keyed by
  frame index and pixel format. No stage or source of this module uses it:
  each stage decodes the frames it visits through its ImageSource.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

// Package imgcache bounds the working set of decoded-and-converted frames
// held in memory at once.
package imgcache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starvane/skystack/internal/pixel"
)

// Key identifies a cached frame: which source frame index, converted to
// which pixel format.
type Key struct {
	Frame  int
	Format pixel.Format
}

// Cache is a fixed-capacity, least-recently-used cache of decoded images.
type Cache struct {
	lru *lru.Cache[Key, *pixel.Image]
}

// New builds a Cache holding at most capacity images. capacity must be
// positive.
func New(capacity int) (*Cache, error) {
	c, err := lru.New[Key, *pixel.Image](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Get returns the cached image for key, if present.
func (c *Cache) Get(key Key) (*pixel.Image, bool) {
	return c.lru.Get(key)
}

// Put stores im under key, evicting the least-recently-used entry if the
// cache is at capacity.
func (c *Cache) Put(key Key, im *pixel.Image) {
	c.lru.Add(key, im)
}

// Len returns the number of images currently cached.
func (c *Cache) Len() int { return c.lru.Len() }

// Purge empties the cache.
func (c *Cache) Purge() { c.lru.Purge() }
