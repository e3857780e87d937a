package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrFileNotFound      = errors.New("file not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrExtraction        = errors.New("extraction failure")
	ErrClassification    = errors.New("classification failure")
	ErrInvalidInput      = errors.New("invalid input")
	ErrTemporary         = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

type ClassificationStage string

const (
	StageZeroShot    ClassificationStage = "zero_shot"
	StageStatistical ClassificationStage = "statistical"
)

// ClassificationError names the classifier stage that failed. It matches
// ErrClassification and the underlying cause through errors.Is.
type ClassificationError struct {
	Stage ClassificationStage
	Err   error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failure at %s stage: %v", e.Stage, e.Err)
}

func (e *ClassificationError) Unwrap() []error {
	return []error{ErrClassification, e.Err}
}

// EmptyContentError reports a document from which neither extraction nor
// OCR recovered any text. Partial carries the file info and the empty
// content; entities and classification were not run.
type EmptyContentError struct {
	Partial *ProcessResult
}

func (e *EmptyContentError) Error() string {
	return fmt.Sprintf("no text recovered from %s", e.Partial.FileInfo.Path)
}

func (e *EmptyContentError) Unwrap() error {
	return ErrInvalidInput
}
