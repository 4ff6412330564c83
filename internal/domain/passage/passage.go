// Package passage holds the reading passage value the CLI speaks.
package passage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrEmpty is returned for input with no readable text.
var ErrEmpty = errors.New("passage is empty")

// Passage is a reading passage. Its ID keys bookmarks and history.
type Passage struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// FromFile reads a plain-text passage. The ID is the file name without
// its extension.
func FromFile(path string) (Passage, error) {
	f, err := os.Open(path)
	if err != nil {
		return Passage{}, fmt.Errorf("open passage: %w", err)
	}
	defer f.Close()

	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return FromReader(id, f)
}

// FromReader reads a passage from r. The first non-blank line becomes
// the title; the whole text, title included, is the content.
func FromReader(id string, r io.Reader) (Passage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Passage{}, fmt.Errorf("read passage: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return Passage{}, ErrEmpty
	}

	return Passage{
		ID:      id,
		Title:   firstLine(content),
		Content: content,
	}, nil
}

func firstLine(text string) string {
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line
		}
	}
	return ""
}
