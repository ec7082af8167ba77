package rag

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	// MaxFileSize caps how large an uploaded file may be before parsing.
	MaxFileSize = 50 << 20
	// MaxTextSize caps how much extracted text a single document may yield.
	MaxTextSize = 1 << 20
)

// Document is a parsed file: its extracted text plus metadata about where
// it came from.
type Document struct {
	Content  string
	Metadata map[string]string
}

// Parser extracts text from a file on disk.
type Parser interface {
	Parse(filePath string) (Document, error)
}

// ParserManager routes files to a registered Parser based on file type.
// Custom parsers and detectors can be plugged in for additional formats.
type ParserManager struct {
	fileTypeDetector func(string) string
	parsers          map[string]Parser
}

// NewParserManager creates a manager with parsers for PDF and common
// text-based formats registered.
func NewParserManager() *ParserManager {
	pm := &ParserManager{
		fileTypeDetector: defaultFileTypeDetector,
		parsers:          make(map[string]Parser),
	}
	pm.parsers["pdf"] = NewPDFParser()
	pm.parsers["text"] = NewTextParser()
	return pm
}

// Parse extracts the text of the file at filePath. Errors carry the
// file-processing kind so HTTP handlers map them to a client error.
func (pm *ParserManager) Parse(filePath string) (Document, error) {
	GlobalLogger.Debug("parsing file", "path", filePath)

	info, err := os.Stat(filePath)
	if err != nil {
		return Document{}, FileError(filepath.Base(filePath), err)
	}
	if info.Size() > MaxFileSize {
		return Document{}, FileError(filepath.Base(filePath),
			fmt.Errorf("file size %d exceeds limit of %d bytes", info.Size(), MaxFileSize))
	}

	fileType := pm.fileTypeDetector(filePath)
	parser, ok := pm.parsers[fileType]
	if !ok {
		return Document{}, FileError(filepath.Base(filePath),
			fmt.Errorf("unsupported file type %q", strings.ToLower(filepath.Ext(filePath))))
	}

	doc, err := parser.Parse(filePath)
	if err != nil {
		GlobalLogger.Error("failed to parse document", "path", filePath, "error", err)
		return Document{}, FileError(filepath.Base(filePath), err)
	}
	if len(doc.Content) > MaxTextSize {
		return Document{}, FileError(filepath.Base(filePath),
			fmt.Errorf("extracted text %d exceeds limit of %d bytes", len(doc.Content), MaxTextSize))
	}
	GlobalLogger.Debug("parsed document", "path", filePath, "type", fileType, "bytes", len(doc.Content))
	return doc, nil
}

// SetFileTypeDetector replaces extension-based detection with a custom one.
func (pm *ParserManager) SetFileTypeDetector(detector func(string) string) {
	pm.fileTypeDetector = detector
}

// AddParser registers a parser for a file type.
func (pm *ParserManager) AddParser(fileType string, parser Parser) {
	pm.parsers[fileType] = parser
}

var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".py": true, ".js": true,
	".json": true, ".csv": true, ".html": true, ".xml": true,
	".rst": true, ".tex": true,
}

func defaultFileTypeDetector(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch {
	case ext == ".pdf":
		return "pdf"
	case textExtensions[ext]:
		return "text"
	default:
		return "unknown"
	}
}

// PDFParser extracts plain text from PDF files page by page.
type PDFParser struct{}

func NewPDFParser() *PDFParser { return &PDFParser{} }

func (p *PDFParser) Parse(filePath string) (Document, error) {
	content, err := p.extractText(filePath)
	if err != nil {
		return Document{}, fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return Document{}, fmt.Errorf("no extractable text in PDF")
	}
	return Document{
		Content: content,
		Metadata: map[string]string{
			"file_type": "pdf",
			"file_path": filePath,
		},
	}, nil
}

func (p *PDFParser) extractText(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("stat file: %w", err)
	}

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return "", fmt.Errorf("read PDF: %w", err)
	}

	var text strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract text from page %d: %w", i, err)
		}
		text.WriteString(content)
		text.WriteString("\n\n")
	}
	return text.String(), nil
}

// TextParser reads text-based files, decoding Latin-1 when the bytes are
// not valid UTF-8.
type TextParser struct{}

func NewTextParser() *TextParser { return &TextParser{} }

func (p *TextParser) Parse(filePath string) (Document, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return Document{}, fmt.Errorf("read file: %w", err)
	}
	content := string(raw)
	if !utf8.ValidString(content) {
		content = decodeLatin1(raw)
	}
	return Document{
		Content: content,
		Metadata: map[string]string{
			"file_type": "text",
			"file_path": filePath,
		},
	}, nil
}

func decodeLatin1(raw []byte) string {
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}
