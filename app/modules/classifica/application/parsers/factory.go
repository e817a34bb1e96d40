package parsers

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrUnsupportedFormat is returned for binary formats no tokenizer reads.
var ErrUnsupportedFormat = errors.New("unsupported file type")

// TokenizerFactory picks a tokenizer for a source.
type TokenizerFactory interface {
	GetTokenizer(fileName, contentType string, data []byte) (Tokenizer, error)
}

// Factory creates the appropriate tokenizer from the file extension, the
// declared content type, and finally the content itself. Extensions are
// unreliable for fetched pages (".php", none at all), so unknown ones fall
// through to the other checks.
type Factory struct{}

// NewFactory creates a new tokenizer factory
func NewFactory() *Factory {
	return &Factory{}
}

// GetTokenizer returns the tokenizer for the given source.
func (f *Factory) GetTokenizer(fileName, contentType string, data []byte) (Tokenizer, error) {
	switch ext := strings.ToLower(path.Ext(fileName)); ext {
	case ".csv":
		return CSVTokenizer{}, nil
	case ".xlsx", ".xlsm":
		return XLSXTokenizer{}, nil
	case ".html", ".htm":
		return HTMLTokenizer{ContentType: contentType}, nil
	case ".xls", ".pdf", ".doc", ".docx", ".ods":
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch mediaType {
	case "text/csv":
		return CSVTokenizer{}, nil
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return XLSXTokenizer{}, nil
	case "text/html", "application/xhtml+xml":
		return HTMLTokenizer{ContentType: contentType}, nil
	}

	if looksLikeMarkup(data) {
		return HTMLTokenizer{ContentType: contentType}, nil
	}
	return TextTokenizer{}, nil
}
