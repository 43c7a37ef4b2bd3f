package docquery

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verbum/internal/extract"
	"verbum/internal/hierarchy"
)

type stubCompleter struct {
	gotSystem string
	gotUser   string
	answer    string
}

func (s *stubCompleter) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	s.gotSystem = systemPrompt
	s.gotUser = userPrompt
	return s.answer, nil
}

func newRootWithDoc(t *testing.T, content string) *hierarchy.Walker {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "math"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "math", "notes.txt"), []byte(content), 0o644))
	return hierarchy.NewWalker(root, nil)
}

func TestQuery(t *testing.T) {
	t.Run("builds the prompt from document text", func(t *testing.T) {
		walker := newRootWithDoc(t, "Calculus studies change.")
		completer := &stubCompleter{answer: "It studies change."}
		svc := NewService(walker, extract.New(), completer, nil)

		answer, err := svc.Query(context.Background(), filepath.Join("math", "notes.txt"), "What is calculus?")
		require.NoError(t, err)
		assert.Equal(t, "It studies change.", answer)
		assert.Contains(t, completer.gotSystem, "explaining concepts from documents")
		assert.Contains(t, completer.gotUser, "Calculus studies change.")
		assert.Contains(t, completer.gotUser, "Question: What is calculus?")
	})

	t.Run("long documents are truncated", func(t *testing.T) {
		walker := newRootWithDoc(t, strings.Repeat("a", 10000))
		completer := &stubCompleter{answer: "ok"}
		svc := NewService(walker, extract.New(), completer, nil)

		_, err := svc.Query(context.Background(), filepath.Join("math", "notes.txt"), "q")
		require.NoError(t, err)
		assert.Less(t, len(completer.gotUser), 5000)
	})

	t.Run("truncation never splits a rune", func(t *testing.T) {
		// é is two bytes; an odd-length ASCII prefix puts the cut point in
		// the middle of one of them.
		content := strings.Repeat("a", maxContextChars-1) + strings.Repeat("é", 50)
		walker := newRootWithDoc(t, content)
		completer := &stubCompleter{answer: "ok"}
		svc := NewService(walker, extract.New(), completer, nil)

		_, err := svc.Query(context.Background(), filepath.Join("math", "notes.txt"), "q")
		require.NoError(t, err)
		assert.True(t, utf8.ValidString(completer.gotUser))
	})

	t.Run("nil completer reports not configured", func(t *testing.T) {
		walker := newRootWithDoc(t, "text")
		svc := NewService(walker, extract.New(), nil, nil)
		_, err := svc.Query(context.Background(), filepath.Join("math", "notes.txt"), "q")
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("missing document fails with context", func(t *testing.T) {
		walker := newRootWithDoc(t, "text")
		svc := NewService(walker, extract.New(), &stubCompleter{}, nil)
		_, err := svc.Query(context.Background(), "math/missing.txt", "q")
		assert.ErrorContains(t, err, "missing.txt")
	})
}

func TestPreview(t *testing.T) {
	walker := newRootWithDoc(t, "Calculus studies change.")
	svc := NewService(walker, extract.New(), nil, nil)

	preview, err := svc.Preview(filepath.Join("math", "notes.txt"), 8)
	require.NoError(t, err)
	assert.Equal(t, "Calculus", preview)
}
