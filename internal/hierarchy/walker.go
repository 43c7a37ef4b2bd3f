package hierarchy

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"verbum/internal/domain"
)

// documentExtensions classifies which files count as documents in the tree.
var documentExtensions = map[string]bool{
	".pdf": true,
	".txt": true,
	".md":  true,
}

// IsDocument reports whether a file name is treated as a document.
func IsDocument(name string) bool {
	return documentExtensions[strings.ToLower(filepath.Ext(name))]
}

// Walker builds browsable views of the indexed folder tree. Paths handed out
// are always relative to the root; two folders with the same relative path
// are the same identity.
type Walker struct {
	root   string
	logger *slog.Logger
}

// NewWalker creates a walker over the given root directory.
func NewWalker(root string, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{root: root, logger: logger}
}

// Root returns the indexed root directory.
func (w *Walker) Root() string { return w.root }

// Abs resolves a relative identity to an absolute path under the root.
func (w *Walker) Abs(rel string) string { return filepath.Join(w.root, rel) }

// TopLevelFolders lists non-hidden directories directly under the root, in
// directory-listing order. An unreadable root yields an empty list.
func (w *Walker) TopLevelFolders() []string {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		w.logger.Error("cannot list root", "root", w.root, "error", err)
		return nil
	}
	var folders []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			folders = append(folders, e.Name())
		}
	}
	return folders
}

// FolderContents returns the sorted immediate contents of a folder as tagged
// nodes, recursing into subfolders. Dotfiles are skipped. Errors yield an
// empty slice.
func (w *Walker) FolderContents(rel string) []domain.Node {
	full := w.Abs(rel)
	entries, err := os.ReadDir(full)
	if err != nil {
		w.logger.Warn("cannot list folder", "path", rel, "error", err)
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var contents []domain.Node
	for _, name := range names {
		if strings.HasPrefix(name, ".") {
			continue
		}
		childRel := filepath.Join(rel, name)
		info, err := os.Stat(filepath.Join(full, name))
		if err != nil {
			continue
		}
		if info.IsDir() {
			contents = append(contents, domain.Node{
				Name:     name,
				Type:     domain.NodeFolder,
				Path:     childRel,
				Children: w.FolderContents(childRel),
			})
		} else {
			contents = append(contents, domain.Node{
				Name: name,
				Type: domain.NodeDocument,
				Path: childRel,
			})
		}
	}
	return contents
}

// Hierarchy builds the full tree rooted at a synthetic "root" folder node.
func (w *Walker) Hierarchy() domain.Node {
	root := domain.Node{Name: "root", Type: domain.NodeFolder, Path: ""}
	for _, folder := range w.TopLevelFolders() {
		root.Children = append(root.Children, domain.Node{
			Name:     folder,
			Type:     domain.NodeFolder,
			Path:     folder,
			Children: w.FolderContents(folder),
		})
	}
	return root
}

// Subfolders lists immediate non-hidden subdirectories of a folder.
func (w *Walker) Subfolders(rel string) ([]string, error) {
	entries, err := os.ReadDir(w.Abs(rel))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, e.Name())
		}
	}
	return out, nil
}
