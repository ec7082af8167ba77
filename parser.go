package ragd

import (
	"github.com/teilomillet/ragd/rag"
)

// Document represents a parsed document with its content and metadata.
type Document = rag.Document

// Parser extracts text from a file on disk.
type Parser = rag.Parser

// ParserManager routes files to registered parsers by file type.
type ParserManager = rag.ParserManager

// NewParserManager creates a manager with the default PDF and text
// parsers registered.
func NewParserManager() *ParserManager {
	return rag.NewParserManager()
}
