package archiver

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"gparchiver/pkg/config"
	"gparchiver/pkg/index"
	"gparchiver/pkg/photos"
	"gparchiver/pkg/storage"
)

// fakeLibrary serves canned listing responses
type fakeLibrary struct {
	library      []photos.MediaItem
	albums       []photos.Album
	sharedAlbums []photos.Album
	albumItems   map[string][]photos.MediaItem
	favorites    []photos.MediaItem
}

func (f *fakeLibrary) ListLibrary() ([]photos.MediaItem, error)      { return f.library, nil }
func (f *fakeLibrary) ListAlbums() ([]photos.Album, error)           { return f.albums, nil }
func (f *fakeLibrary) ListSharedAlbums() ([]photos.Album, error)     { return f.sharedAlbums, nil }
func (f *fakeLibrary) SearchFavorites() ([]photos.MediaItem, error)  { return f.favorites, nil }
func (f *fakeLibrary) SearchAlbumItems(albumID string) ([]photos.MediaItem, error) {
	return f.albumItems[albumID], nil
}

// fakeClient counts downloads and serves fixed bytes
type fakeClient struct {
	downloads int32
}

func (f *fakeClient) Download(url string) (io.ReadCloser, error) {
	atomic.AddInt32(&f.downloads, 1)
	return io.NopCloser(bytes.NewReader([]byte("media bytes"))), nil
}

func (f *fakeClient) count() int {
	return int(atomic.LoadInt32(&f.downloads))
}

func item(id, filename string) photos.MediaItem {
	return photos.MediaItem{
		ID:       id,
		BaseURL:  "https://example.com/" + id,
		MimeType: "image/jpeg",
		Filename: filename,
	}
}

func newTestArchiver(t *testing.T, lib Library, client *fakeClient) (*Archiver, *index.Index, *storage.Manager) {
	t.Helper()
	root := t.TempDir()

	store, err := storage.NewManager(root, false)
	if err != nil {
		t.Fatal(err)
	}
	ix, err := index.Open(root)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ix.Close() })

	cfg := config.DefaultConfig()
	cfg.Archive.Directory = root

	return New(lib, client, nil, store, ix, cfg, nil), ix, store
}

func TestRunArchivesLibrary(t *testing.T) {
	lib := &fakeLibrary{
		library: []photos.MediaItem{item("item1", "a.jpg"), item("item2", "b.jpg")},
	}
	client := &fakeClient{}
	arch, ix, store := newTestArchiver(t, lib, client)

	stats, err := arch.Run(Options{Library: true})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Downloaded != 2 || stats.Failed != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	for _, name := range []string{"a.jpg", "b.jpg"} {
		if _, err := os.Stat(filepath.Join(store.LibraryDir(), name)); err != nil {
			t.Errorf("missing file %s: %v", name, err)
		}
	}

	count, err := ix.ItemCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("expected 2 records, got %d", count)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	lib := &fakeLibrary{
		library: []photos.MediaItem{item("item1", "a.jpg"), item("item2", "b.jpg")},
	}
	client := &fakeClient{}
	arch, ix, _ := newTestArchiver(t, lib, client)

	if _, err := arch.Run(Options{Library: true}); err != nil {
		t.Fatal(err)
	}
	first := client.count()

	stats, err := arch.Run(Options{Library: true})
	if err != nil {
		t.Fatal(err)
	}

	if stats.Downloaded != 0 {
		t.Errorf("second run downloaded %d items", stats.Downloaded)
	}
	if stats.AlreadyPresent != 2 {
		t.Errorf("expected 2 already present, got %d", stats.AlreadyPresent)
	}
	if client.count() != first {
		t.Errorf("second run made %d extra network calls", client.count()-first)
	}

	count, err := ix.ItemCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("expected 2 records after second run, got %d", count)
	}
}

func TestRunRestoresDeletedFile(t *testing.T) {
	lib := &fakeLibrary{
		library: []photos.MediaItem{item("item1", "a.jpg")},
	}
	client := &fakeClient{}
	arch, ix, store := newTestArchiver(t, lib, client)

	if _, err := arch.Run(Options{Library: true}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(store.LibraryDir(), "a.jpg")
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	stats, err := arch.Run(Options{Library: true})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Downloaded != 1 {
		t.Errorf("expected re-download, stats: %+v", stats)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not restored at recorded path: %v", err)
	}

	// Restoring must not create a second record.
	count, err := ix.ItemCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 record, got %d", count)
	}
}

func TestRunCreatesAlbumDirsAndRecords(t *testing.T) {
	lib := &fakeLibrary{
		albums: []photos.Album{
			{ID: "album1", Title: "Summer Trip", MediaItemsCount: "2"},
			{ID: "album2", Title: "", MediaItemsCount: "1"},
			{ID: "album3", Title: "Inaccessible"}, // no item count
		},
		albumItems: map[string][]photos.MediaItem{
			"album1": {item("item1", "a.jpg"), item("item2", "b.jpg")},
			"album2": {item("item3", "c.jpg")},
		},
	}
	client := &fakeClient{}
	arch, ix, store := newTestArchiver(t, lib, client)

	stats, err := arch.Run(Options{Albums: true})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Albums != 2 {
		t.Errorf("expected 2 albums archived, got %d", stats.Albums)
	}
	if stats.Downloaded != 3 {
		t.Errorf("expected 3 downloads, got %d", stats.Downloaded)
	}

	rec, err := ix.LookupAlbum("album1")
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil {
		t.Fatal("album1 not recorded")
	}
	if rec.Path != filepath.Join(store.AlbumsDir(), "Summer Trip") {
		t.Errorf("album1 path: %s", rec.Path)
	}
	if rec.IsShared {
		t.Error("album1 wrongly marked shared")
	}

	// Missing title falls back to the stock name.
	rec, err = ix.LookupAlbum("album2")
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil || rec.Title != UnnamedAlbumTitle {
		t.Errorf("album2 record: %+v", rec)
	}

	// Albums without an item count are skipped entirely.
	rec, err = ix.LookupAlbum("album3")
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Errorf("album3 should not be recorded: %+v", rec)
	}

	// Item records carry their album.
	itemRec, err := ix.LookupItem("item1")
	if err != nil {
		t.Fatal(err)
	}
	if itemRec == nil || itemRec.AlbumID != "album1" {
		t.Errorf("item1 record: %+v", itemRec)
	}
}

func TestRunReusesAlbumDirAcrossRuns(t *testing.T) {
	lib := &fakeLibrary{
		albums: []photos.Album{{ID: "album1", Title: "Trip", MediaItemsCount: "1"}},
		albumItems: map[string][]photos.MediaItem{
			"album1": {item("item1", "a.jpg")},
		},
	}
	client := &fakeClient{}
	arch, ix, store := newTestArchiver(t, lib, client)

	if _, err := arch.Run(Options{Albums: true}); err != nil {
		t.Fatal(err)
	}

	// The album is renamed upstream; the local directory must not move.
	lib.albums[0].Title = "Renamed Trip"
	if _, err := arch.Run(Options{Albums: true}); err != nil {
		t.Fatal(err)
	}

	rec, err := ix.LookupAlbum("album1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Path != filepath.Join(store.AlbumsDir(), "Trip") {
		t.Errorf("album path changed: %s", rec.Path)
	}

	entries, err := os.ReadDir(store.AlbumsDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected a single album directory, got %d", len(entries))
	}

	count, err := ix.AlbumCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 album record, got %d", count)
	}
}

func TestRunSharedAlbumsMarkedShared(t *testing.T) {
	lib := &fakeLibrary{
		sharedAlbums: []photos.Album{{ID: "shared1", Title: "Family", MediaItemsCount: "1"}},
		albumItems: map[string][]photos.MediaItem{
			"shared1": {item("item1", "a.jpg")},
		},
	}
	client := &fakeClient{}
	arch, ix, store := newTestArchiver(t, lib, client)

	if _, err := arch.Run(Options{SharedAlbums: true}); err != nil {
		t.Fatal(err)
	}

	rec, err := ix.LookupAlbum("shared1")
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil || !rec.IsShared {
		t.Errorf("shared album record: %+v", rec)
	}
	if rec.Path != filepath.Join(store.SharedAlbumsDir(), "Family") {
		t.Errorf("shared album path: %s", rec.Path)
	}
}

func TestRunFavorites(t *testing.T) {
	lib := &fakeLibrary{
		favorites: []photos.MediaItem{item("fav1", "f.jpg")},
	}
	client := &fakeClient{}
	arch, _, store := newTestArchiver(t, lib, client)

	stats, err := arch.Run(Options{Favorites: true})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Downloaded != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if _, err := os.Stat(filepath.Join(store.FavoritesDir(), "f.jpg")); err != nil {
		t.Errorf("favorite not stored: %v", err)
	}
}

func TestRunDefaultsToAllCollections(t *testing.T) {
	lib := &fakeLibrary{
		library:   []photos.MediaItem{item("item1", "a.jpg")},
		favorites: []photos.MediaItem{item("item1", "a.jpg")},
	}
	client := &fakeClient{}
	arch, ix, _ := newTestArchiver(t, lib, client)

	stats, err := arch.Run(Options{})
	if err != nil {
		t.Fatal(err)
	}

	// The favorites pass sees the item already archived by the library
	// pass and records nothing new.
	if stats.Downloaded != 1 || stats.AlreadyPresent != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	count, err := ix.ItemCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected a single record, got %d", count)
	}
}
