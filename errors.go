package ragd

import (
	"errors"

	"github.com/teilomillet/ragd/rag"
)

// PipelineError is the classified pipeline error carried across package
// boundaries.
type PipelineError = rag.Error

// ErrorKind classifies a pipeline failure.
type ErrorKind = rag.ErrorKind

// Error kinds
const (
	KindInternal        = rag.KindInternal
	KindValidation      = rag.KindValidation
	KindNotFound        = rag.KindNotFound
	KindExternalService = rag.KindExternalService
	KindDatabase        = rag.KindDatabase
	KindFileProcessing  = rag.KindFileProcessing
)

// ErrCollectionNotFound reports a missing vector store collection.
var ErrCollectionNotFound = rag.ErrCollectionNotFound

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return rag.IsKind(err, kind)
}

// IsCollectionNotFound reports whether err means the collection is
// missing rather than the store being unreachable.
func IsCollectionNotFound(err error) bool {
	return errors.Is(err, rag.ErrCollectionNotFound)
}
