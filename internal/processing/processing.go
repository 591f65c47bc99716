// Package processing turns one uploaded artifact into a translated artifact.
// SingleFile handles plain documents and Archive handles ZIP bundles; both
// share the same extract-then-translate step.
package processing

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/dharsanguruparan/doctranslate/internal/extract"
	"github.com/dharsanguruparan/doctranslate/internal/translator"
)

const translatedSuffix = "_translated"

// TranslatedName derives "<basename>_translated<ext>" from name.
func TranslatedName(name string) string {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + translatedSuffix + ext
}

// entryName applies TranslatedName to an archive entry while keeping its
// directory inside the archive. Absolute and parent references are dropped.
func entryName(name string) string {
	clean := strings.TrimPrefix(path.Clean("/"+name), "/")
	dir := path.Dir(clean)
	out := TranslatedName(path.Base(clean))
	if dir == "." {
		return out
	}
	return dir + "/" + out
}

type pipeline struct {
	translator translator.Translator
	logger     *slog.Logger
}

func newPipeline(tr translator.Translator, logger *slog.Logger) pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return pipeline{translator: tr, logger: logger}
}

// translateDocument extracts name's text and translates it. Documents whose
// text is only whitespace are returned unchanged without calling the backend,
// so they complete even while the backend is unreachable.
func (p pipeline) translateDocument(ctx context.Context, name string, data []byte, lang string) (string, error) {
	doc, err := extract.File(name, data)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(doc.Text) == "" {
		p.logger.Debug("skipping translation of blank document", "source", doc.Source)
		return doc.Text, nil
	}
	out, err := p.translator.Translate(ctx, doc.Text, lang)
	if err != nil {
		return "", fmt.Errorf("translate %s: %w", doc.Source, err)
	}
	return out, nil
}
