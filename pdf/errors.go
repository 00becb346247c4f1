package pdf

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreadableDocument is returned when the input cannot be opened or parsed as a PDF.
	ErrUnreadableDocument = errors.New("unreadable document")

	// ErrWriteFailure is returned when an output artifact cannot be persisted.
	ErrWriteFailure = errors.New("write failure")

	// ErrImageDecode is returned when an embedded image cannot be decoded to pixels.
	ErrImageDecode = errors.New("image decode failure")

	// ErrUnsupportedImage marks images using an encoding or color space we cannot decode.
	// It is a kind of ErrImageDecode.
	ErrUnsupportedImage = fmt.Errorf("%w: unsupported encoding", ErrImageDecode)

	// ErrImageNotFound is returned when a page has no image with the requested name.
	ErrImageNotFound = errors.New("image not found")

	// ErrInvalidOptions is returned by Options.Validate.
	ErrInvalidOptions = errors.New("invalid options")
)

// DocumentError ties a document level failure to the file it happened on.
type DocumentError struct {
	Kind error // ErrUnreadableDocument or ErrWriteFailure
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, e.Err)
}

// Unwrap exposes both the error kind and the underlying cause to errors.Is.
func (e *DocumentError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// ImageError identifies the embedded image a decode or transcode failure belongs to.
type ImageError struct {
	Page  int
	Name  string
	ObjNr int
	Err   error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("page %d image %s (obj %d): %v", e.Page, e.Name, e.ObjNr, e.Err)
}

func (e *ImageError) Unwrap() error {
	return e.Err
}

func unreadable(path string, err error) error {
	return &DocumentError{Kind: ErrUnreadableDocument, Path: path, Err: err}
}

func writeFailure(path string, err error) error {
	return &DocumentError{Kind: ErrWriteFailure, Path: path, Err: err}
}
