package docs

import (
	"bytes"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// extractText pulls plain text out of an uploaded file based on its
// extension. HTML goes through readability so navigation and boilerplate do
// not end up in the index.
func extractText(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md":
		return string(data), nil
	case ".html", ".htm":
		article, err := readability.FromReader(bytes.NewReader(data), &url.URL{})
		if err != nil {
			return "", fmt.Errorf("parse html: %w", err)
		}
		return article.TextContent, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}
