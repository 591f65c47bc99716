package processing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/dharsanguruparan/doctranslate/internal/artifact"
	"github.com/dharsanguruparan/doctranslate/internal/translator"
)

// SingleFile translates one non-archive document.
type SingleFile struct {
	pipeline
	outputs artifact.Store
}

// NewSingleFile constructs a SingleFile processor writing into outputs.
func NewSingleFile(tr translator.Translator, outputs artifact.Store, logger *slog.Logger) *SingleFile {
	return &SingleFile{pipeline: newPipeline(tr, logger), outputs: outputs}
}

// Process extracts, translates and stores the document, returning the output
// location. Nothing is written when extraction or translation fails.
func (s *SingleFile) Process(ctx context.Context, data []byte, originalName, lang string) (string, error) {
	text, err := s.translateDocument(ctx, originalName, data, lang)
	if err != nil {
		return "", err
	}
	name := TranslatedName(originalName)
	loc, err := s.outputs.Put(ctx, name, strings.NewReader(text), int64(len(text)))
	if err != nil {
		return "", fmt.Errorf("store %s: %w", name, err)
	}
	s.logger.Info("document translated", "source", originalName, "output", loc, "size", humanize.Bytes(uint64(len(text))))
	return loc, nil
}
