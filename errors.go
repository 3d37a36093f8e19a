package mapcompare

import "errors"

var (
	// ErrEmptySelection is returned by Activate when no target layers are given.
	ErrEmptySelection = errors.New("mapcompare: empty layer selection")
	// ErrMaskCreation is returned when the mask or background layer has an
	// invalid data source.
	ErrMaskCreation = errors.New("mapcompare: mask layer creation failed")
	// ErrUnknownTreeNodeKind aborts a layer tree walk that meets a node which
	// is neither a group nor a leaf.
	ErrUnknownTreeNodeKind = errors.New("mapcompare: unknown layer tree node kind")
	// ErrMissingSecondaryViewport is returned when the viewport factory did
	// not yield a usable secondary viewport.
	ErrMissingSecondaryViewport = errors.New("mapcompare: missing secondary viewport")
	// ErrInvalidSettings wraps every Settings validation failure.
	ErrInvalidSettings = errors.New("mapcompare: invalid settings")

	ErrNoRepository = errors.New("mapcompare: no layer repository")
	ErrNoViewport   = errors.New("mapcompare: no primary viewport")
)
