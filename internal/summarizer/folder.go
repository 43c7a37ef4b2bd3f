package summarizer

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"verbum/internal/hierarchy"
)

// maxRepresentativeDocs caps how many document titles feed a folder summary.
const maxRepresentativeDocs = 5

// FolderSummarizer turns a folder's contents into the short descriptive text
// used as the embedding input for that folder.
type FolderSummarizer struct {
	walker *hierarchy.Walker
	logger *slog.Logger
}

// NewFolderSummarizer creates a summarizer over the given walker.
func NewFolderSummarizer(walker *hierarchy.Walker, logger *slog.Logger) *FolderSummarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &FolderSummarizer{walker: walker, logger: logger}
}

// Summarize builds the descriptive text for a folder: its name as a knowledge
// domain, immediate subdomains, and up to five representative document titles
// gathered from anywhere beneath it. An empty string means the folder has no
// usable content (unlistable, or neither subdomains nor documents) and cannot
// be embedded.
func (s *FolderSummarizer) Summarize(folderRel string) string {
	parts := []string{"Knowledge domain: " + folderRel}

	subfolders, err := s.walker.Subfolders(folderRel)
	if err != nil {
		s.logger.Warn("cannot summarize folder", "path", folderRel, "error", err)
		return ""
	}
	if len(subfolders) > 0 {
		parts = append(parts, "Subdomains: "+strings.Join(subfolders, ", "))
	}

	docs := s.representativeTitles(folderRel)
	if len(docs) > 0 {
		parts = append(parts, "Representative topics: "+strings.Join(docs, ", "))
	}

	if len(subfolders) == 0 && len(docs) == 0 {
		return ""
	}
	return strings.Join(parts, " ")
}

func (s *FolderSummarizer) representativeTitles(folderRel string) []string {
	var docs []string
	root := s.walker.Abs(folderRel)
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if len(docs) >= maxRepresentativeDocs {
			return filepath.SkipAll
		}
		if hierarchy.IsDocument(d.Name()) {
			docs = append(docs, cleanTitle(d.Name()))
		}
		return nil
	})
	return docs
}

// cleanTitle strips the extension and turns underscores and hyphens into
// spaces so file names read like topics.
func cleanTitle(name string) string {
	title := strings.TrimSuffix(name, filepath.Ext(name))
	title = strings.ReplaceAll(title, "_", " ")
	title = strings.ReplaceAll(title, "-", " ")
	return title
}
