// Package categorize assigns categories to rows by subject keywords.
package categorize

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hermitpopcorn/negi-ms/internal/domain"
	"github.com/hermitpopcorn/negi-ms/internal/logger"
)

// Map holds keyword to category pairs in file order.
type Map struct {
	keys  []string
	label map[string]string
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{label: make(map[string]string)}
}

// Set adds or replaces a keyword. A replaced keyword keeps its position.
func (m *Map) Set(keyword, category string) {
	if _, ok := m.label[keyword]; !ok {
		m.keys = append(m.keys, keyword)
	}
	m.label[keyword] = category
}

// Len is the number of keywords.
func (m *Map) Len() int {
	return len(m.keys)
}

// Each visits keywords in insertion order.
func (m *Map) Each(fn func(keyword, category string)) {
	for _, k := range m.keys {
		fn(k, m.label[k])
	}
}

// Parse reads "keyword,category" lines. Blank lines are ignored and lines
// that do not have exactly two fields are skipped with a warning.
func Parse(r io.Reader, log zerolog.Logger) (*Map, error) {
	m := NewMap()
	scanner := bufio.NewScanner(r)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) != 2 {
			log.Warn().Int("line", lineNum).Int("fields", len(parts)).Msg("Skipping category line with unexpected number of items")
			continue
		}
		m.Set(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read category map: %w", err)
	}
	return m, nil
}

// LoadFile parses the category file at path.
func LoadFile(ctx context.Context, path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open category map: %w", err)
	}
	defer f.Close()

	m, err := Parse(f, logger.FromContext(ctx))
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)
	log.Debug().Int("keywords", m.Len()).Str("path", path).Msg("Loaded category map")
	return m, nil
}

// Match returns the uncategorized rows with a subject that at least one
// keyword matched, each carrying its new category. When several keywords
// match, the last one in file order wins.
func Match(rows []domain.Row, m *Map) []domain.Row {
	var out []domain.Row
	for _, r := range rows {
		if r.Subject == "" || r.Category != "" {
			continue
		}
		m.Each(func(keyword, category string) {
			if strings.Contains(r.Subject, keyword) {
				r.Category = category
			}
		})
		if r.Category != "" {
			out = append(out, r)
		}
	}
	return out
}
