/*
NAME
  ioerr.go

DESCRIPTION
  ioerr.go defines the closed error classification used across the
  stacking pipeline's container readers and stages, plus the two sentinel
  errors every pipeline step must recognize.

AUTHORS
  skystack contributors

LICENSE
  Licensed under the MIT License. See LICENSE for details.
*/

// Package ioerr provides the pipeline's shared error type: a closed set of
// error codes wrapped with github.com/pkg/errors context, plus the
// sentinels pipeline steps check for with errors.Is.
package ioerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code classifies an Error. The set is closed: callers switch on Code
// exhaustively rather than matching error strings.
type Code int

const (
	// CodeUnknown is never returned; its presence catches zero-value Errors.
	CodeUnknown Code = iota
	// CodeOutOfMemory marks an allocation the pipeline refused because the
	// requested size was implausible (e.g. derived from a corrupt header).
	CodeOutOfMemory
	// CodeCannotOpenFile marks a failure to open, create, or write a file,
	// as opposed to a failure to parse one that did open.
	CodeCannotOpenFile
	// CodeUnsupportedFileFormat marks a path whose extension or top-level
	// container isn't one the pipeline dispatches on.
	CodeUnsupportedFileFormat
	// CodeMalformedFile marks a generic (format-independent) truncation or
	// structural inconsistency, for code that runs before format dispatch.
	CodeMalformedFile
	// CodeMalformedBMP marks a BMP file whose header, palette, or row data
	// is missing, truncated, or internally inconsistent.
	CodeMalformedBMP
	// CodeUnsupportedBMP marks a structurally valid BMP using a header
	// size, compression, or bit depth this reader doesn't implement.
	CodeUnsupportedBMP
	// CodeTIFFIncompleteHeader marks a TIFF file header, IFD, or strip
	// table that is missing or ends before it is fully read.
	CodeTIFFIncompleteHeader
	// CodeTIFFUnknownVersion marks a TIFF magic version other than the
	// classic (42) format.
	CodeTIFFUnknownVersion
	// CodeTIFFIncompleteField marks an IFD tag whose value runs past the
	// end of the file.
	CodeTIFFIncompleteField
	// CodeTIFFMixedChannelBitDepths marks a TIFF whose BitsPerSample
	// entries disagree across channels.
	CodeTIFFMixedChannelBitDepths
	// CodeTIFFCompressed marks a TIFF using a Compression tag value other
	// than uncompressed.
	CodeTIFFCompressed
	// CodeTIFFUnsupportedPlanarConfig marks a TIFF whose PlanarConfiguration
	// is not chunky (1).
	CodeTIFFUnsupportedPlanarConfig
	// CodeTIFFIncompletePixelData marks strip data that ends before the
	// strip byte counts promise.
	CodeTIFFIncompletePixelData
	// CodeAVIMalformed marks an AVI RIFF structure, chunk, or index that is
	// missing, truncated, or internally inconsistent.
	CodeAVIMalformed
	// CodeAVIUnsupported marks a structurally valid AVI using a
	// compression, bit count, or index layout this reader doesn't handle.
	CodeAVIUnsupported
	// CodeSERMalformed marks a SER file whose header or frame data is
	// missing, truncated, or internally inconsistent.
	CodeSERMalformed
	// CodeSERUnsupported marks a structurally valid SER using a bit depth
	// or color_id this reader doesn't handle.
	CodeSERUnsupported
	// CodeInvalidDimensions marks a container reporting non-positive or
	// implausibly large width/height.
	CodeInvalidDimensions
	// CodeInvalidParameters marks an out-of-range index or argument passed
	// to a container or source accessor.
	CodeInvalidParameters
	// CodeNoPalette marks an 8-bit paletted image missing its palette.
	CodeNoPalette
	// CodeUnsupportedPixelFormat marks a pixel format or sample/bit-depth
	// combination the reader or stage doesn't recognize.
	CodeUnsupportedPixelFormat
	// CodeNoValidMatch marks a block match or point-placement search that
	// found no admissible candidate.
	CodeNoValidMatch
)

func (c Code) String() string {
	switch c {
	case CodeOutOfMemory:
		return "out of memory"
	case CodeCannotOpenFile:
		return "cannot open file"
	case CodeUnsupportedFileFormat:
		return "unsupported file format"
	case CodeMalformedFile:
		return "malformed file"
	case CodeMalformedBMP:
		return "malformed BMP"
	case CodeUnsupportedBMP:
		return "unsupported BMP"
	case CodeTIFFIncompleteHeader:
		return "TIFF incomplete header"
	case CodeTIFFUnknownVersion:
		return "TIFF unknown version"
	case CodeTIFFIncompleteField:
		return "TIFF incomplete field"
	case CodeTIFFMixedChannelBitDepths:
		return "TIFF mixed channel bit depths"
	case CodeTIFFCompressed:
		return "TIFF compressed"
	case CodeTIFFUnsupportedPlanarConfig:
		return "TIFF unsupported planar config"
	case CodeTIFFIncompletePixelData:
		return "TIFF incomplete pixel data"
	case CodeAVIMalformed:
		return "AVI malformed"
	case CodeAVIUnsupported:
		return "AVI unsupported"
	case CodeSERMalformed:
		return "SER malformed"
	case CodeSERUnsupported:
		return "SER unsupported"
	case CodeInvalidDimensions:
		return "invalid dimensions"
	case CodeInvalidParameters:
		return "invalid parameters"
	case CodeNoPalette:
		return "no palette"
	case CodeUnsupportedPixelFormat:
		return "unsupported pixel format"
	case CodeNoValidMatch:
		return "no valid match"
	default:
		return "unknown"
	}
}

// Error pairs a Code with a wrapped cause, so callers can both switch on
// Code and unwrap to the underlying I/O or parse error.
type Error struct {
	Code  Code
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.cause)
}

// Unwrap allows errors.Is/errors.As (and github.com/pkg/errors.Cause) to
// see through to the wrapped cause.
func (e *Error) Unwrap() error { return e.cause }

// New builds an *Error of the given code with a formatted message.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, cause: errors.Errorf(format, args...)}
}

// Wrap builds an *Error of the given code around an existing error.
func Wrap(code Code, err error, msg string) *Error {
	return &Error{Code: code, cause: errors.Wrap(err, msg)}
}

// ErrLastStep is returned by a stage's Step once the stage has processed
// its last active frame; the stage is then complete and its results valid.
var ErrLastStep = errors.New("ioerr: last step in pipeline")

// ErrNoMoreImages is returned by a source when its image sequence is
// exhausted; the pipeline treats it as a normal end-of-run, not a failure.
var ErrNoMoreImages = errors.New("ioerr: no more images")
