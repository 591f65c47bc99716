package artifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDirPutGetRemove(t *testing.T) {
	ctx := context.Background()
	d, err := NewDir(filepath.Join(t.TempDir(), "translated"))
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	loc, err := d.Put(ctx, "hello_translated.txt", strings.NewReader("Hola"), 4)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if loc != filepath.Join(d.Root(), "hello_translated.txt") {
		t.Fatalf("location = %q", loc)
	}
	data, err := d.Get(ctx, loc)
	if err != nil || string(data) != "Hola" {
		t.Fatalf("Get = %q, %v", data, err)
	}
	if err := d.Remove(ctx, loc); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(loc); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("file still present: %v", err)
	}
	if err := d.Remove(ctx, loc); err != nil {
		t.Fatalf("second Remove should be a no-op: %v", err)
	}
	if _, err := d.Get(ctx, loc); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDirPutStripsDirectories(t *testing.T) {
	d, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	loc, err := d.Put(context.Background(), "../../etc/passwd", strings.NewReader("x"), 1)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if filepath.Dir(loc) != d.Root() {
		t.Fatalf("Put escaped root: %s", loc)
	}
}

func TestDirRejectsOutsideLocations(t *testing.T) {
	d, err := NewDir(filepath.Join(t.TempDir(), "inputs"))
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	outside := filepath.Join(filepath.Dir(d.Root()), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := d.Get(context.Background(), outside); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for outside path, got %v", err)
	}
	if err := d.Remove(context.Background(), "../secret.txt"); err == nil {
		t.Fatalf("expected error removing outside path")
	}
	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("outside file must survive: %v", err)
	}
}

func TestDirRelativeLocation(t *testing.T) {
	d, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	if _, err := d.Put(context.Background(), "a.txt", strings.NewReader("A"), 1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, err := d.Get(context.Background(), "a.txt")
	if err != nil || string(data) != "A" {
		t.Fatalf("Get relative = %q, %v", data, err)
	}
}
