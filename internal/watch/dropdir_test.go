package watch_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"canvas/internal/log"
	"canvas/internal/watch"
)

func startWatcher(t *testing.T) (string, <-chan watch.Drop) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "drop")
	drops := make(chan watch.Drop, 8)
	w, err := watch.New(dir, func(d watch.Drop) { drops <- d },
		watch.WithSettle(50*time.Millisecond), watch.WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w.Dir(), drops
}

func waitDrop(t *testing.T, drops <-chan watch.Drop) watch.Drop {
	t.Helper()
	select {
	case d := <-drops:
		return d
	case <-time.After(3 * time.Second):
		t.Fatal("no drop within 3s")
	}
	return watch.Drop{}
}

func TestFileDropped(t *testing.T) {
	dir, drops := startWatcher(t)

	path := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(path, []byte("not really a png"), 0644); err != nil {
		t.Fatal(err)
	}

	d := waitDrop(t, drops)
	f := d.Payload.File
	if f == nil {
		t.Fatalf("payload = %+v, want a file", d.Payload)
	}
	if f.Name != "photo.png" || f.MIME != "image/png" || f.Path != path || f.Size != 16 {
		t.Errorf("file = %+v", f)
	}
	if d.At.X <= 0 || d.At.Y <= 0 {
		t.Errorf("drop position = %+v", d.At)
	}

	// a later write is not a second drop
	os.WriteFile(path, []byte("rewritten"), 0644)
	select {
	case d := <-drops:
		t.Errorf("unexpected second drop: %+v", d)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestFolderDropped(t *testing.T) {
	dir, drops := startWatcher(t)

	staging := t.TempDir()
	folder := filepath.Join(staging, "album")
	os.Mkdir(folder, 0755)
	os.WriteFile(filepath.Join(folder, "a.jpg"), []byte("a"), 0644)
	os.WriteFile(filepath.Join(folder, "b.mp3"), []byte("b"), 0644)
	os.WriteFile(filepath.Join(folder, ".DS_Store"), []byte("x"), 0644)

	if err := os.Rename(folder, filepath.Join(dir, "album")); err != nil {
		t.Fatal(err)
	}

	d := waitDrop(t, drops)
	if len(d.Payload.Files) != 2 {
		t.Fatalf("files = %+v, want 2", d.Payload.Files)
	}
}

func TestIgnoredNames(t *testing.T) {
	dir, drops := startWatcher(t)

	os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, "movie.mp4.part"), []byte("x"), 0644)

	select {
	case d := <-drops:
		t.Errorf("unexpected drop: %+v", d)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestEmptyFolderWaitsForContents(t *testing.T) {
	dir, drops := startWatcher(t)

	folder := filepath.Join(dir, "incoming")
	if err := os.Mkdir(folder, 0755); err != nil {
		t.Fatal(err)
	}
	select {
	case d := <-drops:
		t.Fatalf("empty folder dropped: %+v", d)
	case <-time.After(200 * time.Millisecond):
	}

	os.WriteFile(filepath.Join(folder, "notes.txt"), []byte("late"), 0644)

	d := waitDrop(t, drops)
	if len(d.Payload.Files) != 1 || d.Payload.Files[0].Name != "notes.txt" {
		t.Fatalf("files = %+v", d.Payload.Files)
	}
	select {
	case d := <-drops:
		t.Errorf("folder dropped twice: %+v", d)
	case <-time.After(200 * time.Millisecond):
	}
}
