package photos

import (
	"fmt"

	"gparchiver/pkg/logger"
)

// PageDump receives every raw listing page when debug dumping is enabled.
// The name is unique per page within a run.
type PageDump func(name string, page interface{})

// Fetcher drains paginated listing endpoints into complete collections.
// Listing calls are strictly sequential; no page-count limit is applied.
type Fetcher struct {
	client  *Client
	baseURL string
	dump    PageDump
	logger  logger.Logger
}

// NewFetcher creates a Fetcher over an API client. dump may be nil.
func NewFetcher(client *Client, dump PageDump, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Fetcher{
		client:  client,
		baseURL: BaseURL,
		dump:    dump,
		logger:  log,
	}
}

// SetBaseURL overrides the API base URL. Used by tests.
func (f *Fetcher) SetBaseURL(base string) {
	f.baseURL = base
}

func (f *Fetcher) dumpPage(name string, page interface{}) {
	if f.dump != nil {
		f.dump(name, page)
	}
}

// ListLibrary fetches the entire media library in page order.
func (f *Fetcher) ListLibrary() ([]MediaItem, error) {
	var items []MediaItem
	pageToken := ""
	for page := 0; ; page++ {
		var resp ListMediaItemsResponse
		if err := f.client.GetJSON(ListMediaItemsURL(f.baseURL, pageToken), &resp); err != nil {
			return nil, fmt.Errorf("failed to list media items: %w", err)
		}
		f.dumpPage(fmt.Sprintf("media%d", page), resp)
		items = append(items, resp.MediaItems...)
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	f.logger.InfoWithFields("library listed", map[string]interface{}{
		"item_count": len(items),
	})
	return items, nil
}

// ListAlbums fetches all albums in page order.
func (f *Fetcher) ListAlbums() ([]Album, error) {
	var albums []Album
	pageToken := ""
	for page := 0; ; page++ {
		var resp ListAlbumsResponse
		if err := f.client.GetJSON(ListAlbumsURL(f.baseURL, pageToken), &resp); err != nil {
			return nil, fmt.Errorf("failed to list albums: %w", err)
		}
		f.dumpPage(fmt.Sprintf("albums%d", page), resp)
		albums = append(albums, resp.Albums...)
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	f.logger.InfoWithFields("albums listed", map[string]interface{}{
		"album_count": len(albums),
	})
	return albums, nil
}

// ListSharedAlbums fetches all shared albums in page order.
func (f *Fetcher) ListSharedAlbums() ([]Album, error) {
	var albums []Album
	pageToken := ""
	for page := 0; ; page++ {
		var resp ListSharedAlbumsResponse
		if err := f.client.GetJSON(ListSharedAlbumsURL(f.baseURL, pageToken), &resp); err != nil {
			return nil, fmt.Errorf("failed to list shared albums: %w", err)
		}
		f.dumpPage(fmt.Sprintf("shared_albums%d", page), resp)
		albums = append(albums, resp.SharedAlbums...)
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	f.logger.InfoWithFields("shared albums listed", map[string]interface{}{
		"album_count": len(albums),
	})
	return albums, nil
}

// SearchAlbumItems fetches the full contents of one album.
func (f *Fetcher) SearchAlbumItems(albumID string) ([]MediaItem, error) {
	return f.searchAll(SearchRequest{
		AlbumID:  albumID,
		PageSize: MediaItemsPageSize,
	}, "album-"+albumID)
}

// SearchFavorites fetches all media items flagged as favorites.
func (f *Fetcher) SearchFavorites() ([]MediaItem, error) {
	return f.searchAll(SearchRequest{
		PageSize: MediaItemsPageSize,
		Filters: &SearchFilters{
			FeatureFilter: &FeatureFilter{
				IncludedFeatures: []string{FavoritesFeature},
			},
		},
	}, "favorites")
}

func (f *Fetcher) searchAll(req SearchRequest, dumpPrefix string) ([]MediaItem, error) {
	var items []MediaItem
	for page := 0; ; page++ {
		var resp SearchMediaItemsResponse
		if err := f.client.PostJSON(SearchMediaItemsURL(f.baseURL), req, &resp); err != nil {
			return nil, fmt.Errorf("failed to search media items: %w", err)
		}
		f.dumpPage(fmt.Sprintf("%s-%d", dumpPrefix, page), resp)
		items = append(items, resp.MediaItems...)
		if resp.NextPageToken == "" {
			break
		}
		req.PageToken = resp.NextPageToken
	}
	return items, nil
}
