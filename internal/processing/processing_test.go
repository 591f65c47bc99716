package processing

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/dharsanguruparan/doctranslate/internal/artifact"
	"github.com/dharsanguruparan/doctranslate/internal/extract"
	"github.com/dharsanguruparan/doctranslate/internal/translator"
)

type zipEntry struct {
	name string
	body string
}

func buildZip(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			t.Fatalf("create %s: %v", e.name, err)
		}
		if _, err := io.WriteString(w, e.body); err != nil {
			t.Fatalf("write %s: %v", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func readZip(t *testing.T, data []byte) ([]string, map[string]string) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open output zip: %v", err)
	}
	var names []string
	contents := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		names = append(names, f.Name)
		contents[f.Name] = string(b)
	}
	return names, contents
}

// dictionary translates known phrases and counts backend calls.
type dictionary struct {
	words map[string]string
	calls atomic.Int32
	err   error
}

func (d *dictionary) Translate(ctx context.Context, text, lang string) (string, error) {
	d.calls.Add(1)
	if d.err != nil {
		return "", d.err
	}
	if out, ok := d.words[text]; ok {
		return out, nil
	}
	return "[" + lang + "] " + text, nil
}

func newOutputs(t *testing.T) *artifact.Dir {
	t.Helper()
	d, err := artifact.NewDir(filepath.Join(t.TempDir(), "translated"))
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	return d
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestTranslatedName(t *testing.T) {
	cases := map[string]string{
		"hello.txt":       "hello_translated.txt",
		"Report.PDF":      "Report_translated.PDF",
		"dir/notes.docx":  "notes_translated.docx",
		"archive.tar.zip": "archive.tar_translated.zip",
		"README":          "README_translated",
	}
	for in, want := range cases {
		if got := TranslatedName(in); got != want {
			t.Fatalf("TranslatedName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEntryName(t *testing.T) {
	cases := map[string]string{
		"notes.txt":          "notes_translated.txt",
		"docs/a.txt":         "docs/a_translated.txt",
		"../../etc/evil.txt": "etc/evil_translated.txt",
		"/abs/b.pdf":         "abs/b_translated.pdf",
	}
	for in, want := range cases {
		if got := entryName(in); got != want {
			t.Fatalf("entryName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSingleFileTranslatesText(t *testing.T) {
	outputs := newOutputs(t)
	tr := &dictionary{words: map[string]string{"Hello": "Hola"}}
	p := NewSingleFile(tr, outputs, nil)

	loc, err := p.Process(context.Background(), []byte("Hello"), "hello.txt", "es")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if loc != filepath.Join(outputs.Root(), "hello_translated.txt") {
		t.Fatalf("output = %q", loc)
	}
	data, err := os.ReadFile(loc)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "Hola" {
		t.Fatalf("output content = %q, want Hola", data)
	}

	again, err := p.Process(context.Background(), []byte("Hello"), "hello.txt", "es")
	if err != nil {
		t.Fatalf("second Process: %v", err)
	}
	if again != loc {
		t.Fatalf("output path not deterministic: %q vs %q", again, loc)
	}
}

func TestSingleFileUnsupportedFormat(t *testing.T) {
	outputs := newOutputs(t)
	tr := &dictionary{}
	_, err := NewSingleFile(tr, outputs, nil).Process(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "image.png", "es")
	if !errors.Is(err, extract.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if tr.calls.Load() != 0 {
		t.Fatalf("translator must not be called")
	}
	if names := dirEntries(t, outputs.Root()); len(names) != 0 {
		t.Fatalf("no output expected, found %v", names)
	}
}

func TestSingleFileTranslationFailureWritesNothing(t *testing.T) {
	outputs := newOutputs(t)
	tr := &dictionary{err: translator.ErrUnavailable}
	_, err := NewSingleFile(tr, outputs, nil).Process(context.Background(), []byte("Hello"), "hello.txt", "es")
	if !errors.Is(err, translator.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if names := dirEntries(t, outputs.Root()); len(names) != 0 {
		t.Fatalf("no output expected, found %v", names)
	}
}

func TestSingleFileBlankTextSkipsBackend(t *testing.T) {
	outputs := newOutputs(t)
	tr := &dictionary{err: errors.New("must not be called")}
	loc, err := NewSingleFile(tr, outputs, nil).Process(context.Background(), []byte("  \n"), "blank.txt", "es")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if tr.calls.Load() != 0 {
		t.Fatalf("translator called for blank text")
	}
	if filepath.Base(loc) != "blank_translated.txt" {
		t.Fatalf("output = %q", loc)
	}
}

func TestArchiveSkipsUnsupportedEntries(t *testing.T) {
	outputs := newOutputs(t)
	tr := &dictionary{words: map[string]string{"Hi": "Hola"}}
	data := buildZip(t,
		zipEntry{name: "notes.txt", body: "Hi"},
		zipEntry{name: "image.png", body: "\x89PNG"},
	)

	loc, err := NewArchive(tr, outputs, nil).Process(context.Background(), data, "bundle.zip", "es")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if filepath.Base(loc) != "bundle_translated.zip" {
		t.Fatalf("output = %q", loc)
	}
	out, err := os.ReadFile(loc)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	names, contents := readZip(t, out)
	if len(names) != 1 || names[0] != "notes_translated.txt" {
		t.Fatalf("entries = %v", names)
	}
	if contents["notes_translated.txt"] != "Hola" {
		t.Fatalf("content = %q", contents["notes_translated.txt"])
	}
}

func TestArchiveKeepsOrderAndDirectories(t *testing.T) {
	outputs := newOutputs(t)
	tr := &dictionary{}
	data := buildZip(t,
		zipEntry{name: "docs/"},
		zipEntry{name: "docs/b.txt", body: "bee"},
		zipEntry{name: "a.txt", body: "ay"},
		zipEntry{name: "logo.svg", body: "<svg/>"},
		zipEntry{name: "c.TXT", body: "see"},
	)
	loc, err := NewArchive(tr, outputs, nil).Process(context.Background(), data, "set.zip", "de")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	out, _ := os.ReadFile(loc)
	names, contents := readZip(t, out)
	want := []string{"docs/b_translated.txt", "a_translated.txt", "c_translated.TXT"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("entries = %v, want %v", names, want)
	}
	if contents["a_translated.txt"] != "[de] ay" {
		t.Fatalf("content = %q", contents["a_translated.txt"])
	}
	if tr.calls.Load() != 3 {
		t.Fatalf("translator calls = %d, want 3", tr.calls.Load())
	}
}

func TestArchiveRejectsInvalidInput(t *testing.T) {
	cases := map[string][]byte{
		"zero bytes": nil,
		"not a zip":  []byte("hello there, not an archive"),
		"no entries": buildZip(t),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			outputs := newOutputs(t)
			tr := &dictionary{}
			_, err := NewArchive(tr, outputs, nil).Process(context.Background(), data, "empty.zip", "es")
			if !errors.Is(err, ErrInvalidArchive) {
				t.Fatalf("expected ErrInvalidArchive, got %v", err)
			}
			if tr.calls.Load() != 0 {
				t.Fatalf("no entry should be touched")
			}
			if names := dirEntries(t, outputs.Root()); len(names) != 0 {
				t.Fatalf("no output expected, found %v", names)
			}
		})
	}
}

func TestArchiveTranslationFailureAbortsArchive(t *testing.T) {
	outputs := newOutputs(t)
	tr := &dictionary{err: translator.ErrUnavailable}
	data := buildZip(t,
		zipEntry{name: "image.png", body: "png"},
		zipEntry{name: "notes.txt", body: "Hi"},
	)
	_, err := NewArchive(tr, outputs, nil).Process(context.Background(), data, "bundle.zip", "es")
	if !errors.Is(err, translator.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if names := dirEntries(t, outputs.Root()); len(names) != 0 {
		t.Fatalf("no output expected, found %v", names)
	}
}

func TestArchiveCorruptSupportedEntryAborts(t *testing.T) {
	outputs := newOutputs(t)
	data := buildZip(t, zipEntry{name: "broken.docx", body: "not a docx"})
	_, err := NewArchive(&dictionary{}, outputs, nil).Process(context.Background(), data, "bundle.zip", "es")
	if err == nil {
		t.Fatalf("expected corrupt docx to fail the archive")
	}
	if errors.Is(err, extract.ErrUnsupportedFormat) {
		t.Fatalf("corrupt entry must not be treated as unsupported: %v", err)
	}
}

func TestArchiveAllEntriesSkippedStillSucceeds(t *testing.T) {
	outputs := newOutputs(t)
	data := buildZip(t, zipEntry{name: "image.png", body: "png"}, zipEntry{name: "movie.mp4", body: "mp4"})
	loc, err := NewArchive(&dictionary{}, outputs, nil).Process(context.Background(), data, "media.zip", "es")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	out, _ := os.ReadFile(loc)
	if names, _ := readZip(t, out); len(names) != 0 {
		t.Fatalf("expected empty archive, got %v", names)
	}
}

func TestArchiveRejectsOversizedEntry(t *testing.T) {
	outputs := newOutputs(t)
	tr := &dictionary{}
	// Highly compressible: the archive stays small while the entry expands
	// past the cap.
	data := buildZip(t,
		zipEntry{name: "notes.txt", body: "Hi"},
		zipEntry{name: "big.txt", body: strings.Repeat("a", 4<<20)},
	)
	if len(data) > 1<<20 {
		t.Fatalf("test archive unexpectedly large: %d bytes", len(data))
	}
	_, err := NewArchive(tr, outputs, nil).SetMaxEntryBytes(1<<20).Process(context.Background(), data, "bomb.zip", "es")
	if !errors.Is(err, ErrInvalidArchive) {
		t.Fatalf("expected ErrInvalidArchive, got %v", err)
	}
	if got := tr.calls.Load(); got != 1 {
		t.Fatalf("oversized entry must not reach the translator, got %d calls", got)
	}
	if names := dirEntries(t, outputs.Root()); len(names) != 0 {
		t.Fatalf("no output expected, found %v", names)
	}
}

func TestArchiveEntryAtLimitIsAccepted(t *testing.T) {
	outputs := newOutputs(t)
	body := strings.Repeat("a", 1024)
	data := buildZip(t, zipEntry{name: "exact.txt", body: body})
	if _, err := NewArchive(&dictionary{}, outputs, nil).SetMaxEntryBytes(int64(len(body))).Process(context.Background(), data, "exact.zip", "es"); err != nil {
		t.Fatalf("Process: %v", err)
	}
}
