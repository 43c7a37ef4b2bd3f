package docquery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"verbum/internal/domain"
	"verbum/internal/hierarchy"
)

// ErrNotConfigured means no completion provider is available to answer with.
var ErrNotConfigured = errors.New("completion provider not configured")

const systemPrompt = "You are a helpful assistant explaining concepts from documents."

// maxContextChars bounds how much document text goes into the prompt.
const maxContextChars = 4000

// Service answers natural-language questions about a stored document by
// feeding its extracted text to the completion provider.
type Service struct {
	walker    *hierarchy.Walker
	extractor domain.Extractor
	completer domain.Completer
	logger    *slog.Logger
}

// NewService wires a document query service. completer may be nil when no
// provider is configured; queries then fail with ErrNotConfigured.
func NewService(walker *hierarchy.Walker, extractor domain.Extractor, completer domain.Completer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{walker: walker, extractor: extractor, completer: completer, logger: logger}
}

// Preview returns the first maxChars of a document's extracted text.
func (s *Service) Preview(docRel string, maxChars int) (string, error) {
	return s.extractor.Preview(s.walker.Abs(docRel), maxChars)
}

// Query extracts the document's text, truncates it to the context limit and
// asks the completion provider the given question.
func (s *Service) Query(ctx context.Context, docRel, question string) (string, error) {
	if s.completer == nil {
		return "", ErrNotConfigured
	}
	text, err := s.extractor.Text(s.walker.Abs(docRel))
	if err != nil {
		s.logger.Warn("document extraction failed", "path", docRel, "error", err)
		return "", fmt.Errorf("extract %s: %w", docRel, err)
	}
	text = truncate(text, maxContextChars)
	prompt := fmt.Sprintf("Based on this document content:\n\n%s...\n\nQuestion: %s", text, question)
	answer, err := s.completer.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		s.logger.Warn("completion failed", "path", docRel, "error", err)
		return "", fmt.Errorf("answer query for %s: %w", docRel, err)
	}
	return answer, nil
}

// truncate cuts text to at most limit bytes without splitting a rune.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}
