package catalog

import (
	"slices"
	"strings"
)

// Category MIME lists used by the file_type search filter.
var categoryTypes = map[string][]string{
	"documents": {"application/pdf", "text/markdown", "application/msword"},
	"videos":    {"video/mp4", "video/avi", "video/mkv"},
	"images":    {"image/jpeg", "image/png", "image/gif"},
	"audio":     {"audio/mp3", "audio/wav", "audio/flac"},
}

var (
	defaultSuggestions = []string{"react", "machine learning", "typescript", "python", "javascript"}
	commonSuggestions  = []string{"react", "python", "javascript", "machine learning", "typescript"}
)

const maxSuggestions = 5

// Query filters a search. Zero values disable the corresponding filter.
type Query struct {
	Text     string
	FileType string // documents, videos, images, audio; "all" or unknown disables
	SizeMin  int64
	SizeMax  int64
}

// Search returns the files matching q in catalog order.
func (s *Store) Search(q Query) []File {
	text := strings.ToLower(q.Text)
	types, filterType := categoryTypes[q.FileType]

	var results []File
	for _, f := range s.Files() {
		if text != "" && !matchesText(f, text) {
			continue
		}
		if filterType && !slices.Contains(types, f.Type) {
			continue
		}
		if q.SizeMin > 0 && f.Size < q.SizeMin {
			continue
		}
		if q.SizeMax > 0 && f.Size > q.SizeMax {
			continue
		}
		results = append(results, f)
	}
	if results == nil {
		results = []File{}
	}
	return results
}

func matchesText(f File, lower string) bool {
	if strings.Contains(strings.ToLower(f.Name), lower) {
		return true
	}
	for _, tag := range f.Tags {
		if strings.Contains(strings.ToLower(tag), lower) {
			return true
		}
	}
	return false
}

// Suggestions returns up to five completions for q: matching tags first, in
// catalog order, then matching entries from the common list.
func (s *Store) Suggestions(q string) []string {
	if q == "" {
		return slices.Clone(defaultSuggestions)
	}

	lower := strings.ToLower(q)
	suggestions := []string{}
	for _, f := range s.Files() {
		for _, tag := range f.Tags {
			if strings.Contains(strings.ToLower(tag), lower) && !slices.Contains(suggestions, tag) {
				suggestions = append(suggestions, tag)
			}
		}
	}
	for _, c := range commonSuggestions {
		if strings.Contains(c, lower) && !slices.Contains(suggestions, c) {
			suggestions = append(suggestions, c)
		}
	}

	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}
