package processing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zip"

	"github.com/dharsanguruparan/doctranslate/internal/artifact"
	"github.com/dharsanguruparan/doctranslate/internal/extract"
	"github.com/dharsanguruparan/doctranslate/internal/model"
	"github.com/dharsanguruparan/doctranslate/internal/translator"
)

// ErrInvalidArchive is returned for missing, corrupt or entry-less archives.
var ErrInvalidArchive = errors.New("invalid or empty zip file")

// DefaultMaxEntryBytes caps the decompressed size of a single archive entry.
const DefaultMaxEntryBytes = 100 << 20 // 100 MiB

// Archive translates every supported entry of a ZIP file and repacks the
// results into a new ZIP.
type Archive struct {
	pipeline
	outputs       artifact.Store
	maxEntryBytes int64
}

// NewArchive constructs an Archive processor writing into outputs.
func NewArchive(tr translator.Translator, outputs artifact.Store, logger *slog.Logger) *Archive {
	return &Archive{pipeline: newPipeline(tr, logger), outputs: outputs, maxEntryBytes: DefaultMaxEntryBytes}
}

// SetMaxEntryBytes changes the per-entry decompressed size cap. Non-positive
// values restore DefaultMaxEntryBytes.
func (a *Archive) SetMaxEntryBytes(n int64) *Archive {
	if n <= 0 {
		n = DefaultMaxEntryBytes
	}
	a.maxEntryBytes = n
	return a
}

// Process validates the archive, translates its entries in archive order and
// stores the repacked result. Entries with an unsupported format are skipped;
// any other entry failure aborts the whole archive.
func (a *Archive) Process(ctx context.Context, data []byte, originalName, lang string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty upload", ErrInvalidArchive)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	if len(zr.File) == 0 {
		return "", fmt.Errorf("%w: no entries", ErrInvalidArchive)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	var translated, skipped int
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if f.FileInfo().IsDir() {
			continue
		}
		raw, err := readEntry(f, a.maxEntryBytes)
		if err != nil {
			return "", fmt.Errorf("%w: read %s: %v", ErrInvalidArchive, f.Name, err)
		}
		text, err := a.translateDocument(ctx, f.Name, raw, lang)
		if errors.Is(err, extract.ErrUnsupportedFormat) {
			a.logger.Warn("skipping unsupported archive entry", "archive", originalName, "entry", f.Name)
			skipped++
			continue
		}
		if err != nil {
			return "", fmt.Errorf("entry %s: %w", f.Name, err)
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entryName(f.Name),
			Method:   zip.Deflate,
			Modified: f.Modified,
		})
		if err != nil {
			return "", fmt.Errorf("add %s: %w", f.Name, err)
		}
		if _, err := io.WriteString(w, text); err != nil {
			return "", fmt.Errorf("write %s: %w", f.Name, err)
		}
		translated++
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finish archive: %w", err)
	}

	name := archiveName(originalName)
	loc, err := a.outputs.Put(ctx, name, bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		return "", fmt.Errorf("store %s: %w", name, err)
	}
	a.logger.Info("archive translated",
		"source", originalName,
		"output", loc,
		"translated", translated,
		"skipped", skipped,
		"size", humanize.Bytes(uint64(buf.Len())),
	)
	return loc, nil
}

func archiveName(originalName string) string {
	if !strings.EqualFold(filepath.Ext(originalName), model.ArchiveExt) {
		originalName += model.ArchiveExt
	}
	return TranslatedName(originalName)
}

// readEntry decompresses f, refusing entries larger than limit whatever the
// header claims.
func readEntry(f *zip.File, limit int64) ([]byte, error) {
	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("entry exceeds %s", humanize.Bytes(uint64(limit)))
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("entry exceeds %s", humanize.Bytes(uint64(limit)))
	}
	return data, nil
}
