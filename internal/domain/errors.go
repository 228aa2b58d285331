package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrTransport          = errors.New("transport error")
	ErrIncompleteSnapshot = errors.New("incomplete snapshot: stream ended before end-of-snapshot sentinel")
	ErrAborted            = errors.New("aborted")
	ErrNotInitialized     = errors.New("not initialized")
	ErrInitInProgress     = errors.New("initialization already in progress")
	ErrUnknownSport       = errors.New("unknown sport")
	ErrUnsupportedMode    = errors.New("unsupported mode")
	ErrNoWatermark        = errors.New("no snapshot watermark")
)
