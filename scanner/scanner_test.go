package scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"medialib/probe"
	"medialib/types"
)

func TestKindForPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		kind types.MediaKind
		ok   bool
	}{
		{"/lib/clip.mp4", types.KindVideo, true},
		{"/lib/clip.MKV", types.KindVideo, true},
		{"/lib/show.webm", types.KindVideo, true},
		{"/lib/photo.jpg", types.KindImage, true},
		{"/lib/photo.JPEG", types.KindImage, true},
		{"/lib/scan.tiff", types.KindImage, true},
		{"/lib/meme.gif", types.KindAnimated, true},
		{"/lib/notes.txt", "", false},
		{"/lib/noext", "", false},
		{"/lib/archive.zip", "", false},
	}

	for _, tt := range tests {
		kind, ok := KindForPath(tt.path)
		if kind != tt.kind || ok != tt.ok {
			t.Errorf("KindForPath(%q) = (%q, %v), want (%q, %v)", tt.path, kind, ok, tt.kind, tt.ok)
		}
	}
}

func TestHashFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a.jpg")
	content := []byte("not really a jpeg")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	sum := sha256.Sum256(content)
	if want := hex.EncodeToString(sum[:]); got != want {
		t.Errorf("HashFile = %s, want %s", got, want)
	}

	if _, err := HashFile(filepath.Join(t.TempDir(), "missing.jpg")); err == nil {
		t.Error("expected error for missing file")
	}
}

// fakeScanStore records upserts and serves lookups from them.
type fakeScanStore struct {
	mu      sync.Mutex
	records map[string]types.MediaRecord
	cleared map[string]bool
	nextID  int64
}

func newFakeScanStore() *fakeScanStore {
	return &fakeScanStore{
		records: make(map[string]types.MediaRecord),
		cleared: make(map[string]bool),
	}
}

func (f *fakeScanStore) GetMediaByPath(path string) (*types.MediaRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[path]
	if !ok {
		return nil, nil
	}
	r := rec
	return &r, nil
}

func (f *fakeScanStore) UpsertMedia(rec types.MediaRecord, clearFingerprint bool) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.records[rec.Path]; ok {
		rec.ID = existing.ID
	} else {
		f.nextID++
		rec.ID = f.nextID
	}
	f.records[rec.Path] = rec
	f.cleared[rec.Path] = clearFingerprint
	return rec.ID, nil
}

type fakeProber struct {
	duration float64
	err      error
	probed   []string
	mu       sync.Mutex
}

func (f *fakeProber) Probe(path string) (probe.Metadata, error) {
	f.mu.Lock()
	f.probed = append(f.probed, path)
	f.mu.Unlock()
	if f.err != nil {
		return probe.Metadata{}, f.err
	}
	return probe.Metadata{DurationSeconds: f.duration}, nil
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(name+" content"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcessAndStoreFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	imgPath := writeFile(t, dir, "photo.jpg")
	info, err := os.Stat(imgPath)
	if err != nil {
		t.Fatal(err)
	}

	store := newFakeScanStore()
	s := New(store, nil, zerolog.Nop())

	res := s.processAndStoreFile(imgPath, types.KindImage, info, Options{})
	if !res.Success || res.Skipped {
		t.Fatalf("first pass result = %+v, want fresh success", res)
	}
	rec := store.records[imgPath]
	if rec.Kind != types.KindImage || rec.Size != info.Size() {
		t.Errorf("stored record = %+v", rec)
	}
	if rec.ContentHash == "" {
		t.Error("content hash not stored")
	}
	if store.cleared[imgPath] {
		t.Error("fingerprint cleared on first index")
	}

	// Unchanged file is skipped on the next pass.
	res = s.processAndStoreFile(imgPath, types.KindImage, info, Options{})
	if !res.Success || !res.Skipped {
		t.Errorf("unchanged file result = %+v, want skip", res)
	}

	// A modified file is reindexed and its fingerprint cleared.
	if err := os.WriteFile(imgPath, []byte("different content now"), 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(imgPath, future, future); err != nil {
		t.Fatal(err)
	}
	info, err = os.Stat(imgPath)
	if err != nil {
		t.Fatal(err)
	}
	res = s.processAndStoreFile(imgPath, types.KindImage, info, Options{})
	if !res.Success || res.Skipped {
		t.Fatalf("modified file result = %+v, want reindex", res)
	}
	if !store.cleared[imgPath] {
		t.Error("fingerprint not cleared for modified file")
	}
}

func TestProcessAndStoreFileRehash(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	imgPath := writeFile(t, dir, "photo.jpg")
	info, err := os.Stat(imgPath)
	if err != nil {
		t.Fatal(err)
	}

	store := newFakeScanStore()
	s := New(store, nil, zerolog.Nop())

	if res := s.processAndStoreFile(imgPath, types.KindImage, info, Options{}); !res.Success {
		t.Fatalf("first pass: %+v", res)
	}

	// Rehash forces reindexing of the unchanged file with a cleared
	// fingerprint.
	res := s.processAndStoreFile(imgPath, types.KindImage, info, Options{Rehash: true})
	if !res.Success || res.Skipped {
		t.Fatalf("rehash result = %+v, want reindex", res)
	}
	if !store.cleared[imgPath] {
		t.Error("rehash did not clear the fingerprint")
	}
}

func TestProcessAndStoreFileProbesVideos(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	vidPath := writeFile(t, dir, "clip.mp4")
	imgPath := writeFile(t, dir, "photo.jpg")

	store := newFakeScanStore()
	prober := &fakeProber{duration: 42.5}
	s := New(store, prober, zerolog.Nop())

	vidInfo, _ := os.Stat(vidPath)
	imgInfo, _ := os.Stat(imgPath)
	if res := s.processAndStoreFile(vidPath, types.KindVideo, vidInfo, Options{}); !res.Success {
		t.Fatalf("video: %+v", res)
	}
	if res := s.processAndStoreFile(imgPath, types.KindImage, imgInfo, Options{}); !res.Success {
		t.Fatalf("image: %+v", res)
	}

	if store.records[vidPath].Duration != 42.5 {
		t.Errorf("video duration = %v, want 42.5", store.records[vidPath].Duration)
	}
	if len(prober.probed) != 1 || prober.probed[0] != vidPath {
		t.Errorf("probed %v, want just the video", prober.probed)
	}
}

func TestProcessAndStoreFileProbeFailureIsRecoverable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	vidPath := writeFile(t, dir, "clip.mp4")
	info, _ := os.Stat(vidPath)

	store := newFakeScanStore()
	s := New(store, &fakeProber{err: errors.New("exiftool crashed")}, zerolog.Nop())

	res := s.processAndStoreFile(vidPath, types.KindVideo, info, Options{})
	if !res.Success {
		t.Fatalf("probe failure should not fail indexing: %+v", res)
	}
	if store.records[vidPath].Duration != 0 {
		t.Errorf("duration = %v, want 0 for failed probe", store.records[vidPath].Duration)
	}
}

func TestScanAndStoreFolder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.jpg")
	writeFile(t, dir, "b.mp4")
	writeFile(t, dir, "c.gif")
	writeFile(t, dir, "ignored.txt")
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, sub, "d.png")

	store := newFakeScanStore()
	s := New(store, &fakeProber{duration: 10}, zerolog.Nop())

	if err := s.ScanAndStoreFolder(Options{FolderPath: dir, Workers: 2}); err != nil {
		t.Fatalf("ScanAndStoreFolder: %v", err)
	}

	if len(store.records) != 4 {
		paths := make([]string, 0, len(store.records))
		for p := range store.records {
			paths = append(paths, p)
		}
		t.Fatalf("indexed %d files, want 4: %v", len(store.records), paths)
	}
	for p := range store.records {
		if filepath.Ext(p) == ".txt" {
			t.Errorf("unrecognized file indexed: %s", p)
		}
	}
}
