package photos

import "fmt"

const (
	// BaseURL is the base URL of the Photos Library API.
	BaseURL = "https://photoslibrary.googleapis.com/v1"

	// MediaItemsPageSize is the page size for mediaItems.list and
	// mediaItems.search (protocol maximum is 100).
	MediaItemsPageSize = 100

	// AlbumsPageSize is the page size for albums.list (maximum is 50).
	AlbumsPageSize = 50

	// SharedAlbumsPageSize is the page size for sharedAlbums.list
	// (maximum is 50).
	SharedAlbumsPageSize = 50

	// ImageDownloadSuffix appended to a baseUrl selects the
	// full-resolution image variant.
	ImageDownloadSuffix = "=d"

	// VideoDownloadSuffix appended to a baseUrl selects the full video.
	VideoDownloadSuffix = "=dv"

	// FavoritesFeature is the feature filter value for favorites.
	FavoritesFeature = "FAVORITES"
)

// ListMediaItemsURL constructs the URL for a mediaItems.list page.
func ListMediaItemsURL(base, pageToken string) string {
	u := fmt.Sprintf("%s/mediaItems?pageSize=%d", base, MediaItemsPageSize)
	if pageToken != "" {
		u += "&pageToken=" + pageToken
	}
	return u
}

// SearchMediaItemsURL is the URL of mediaItems.search; paging goes in the
// request body.
func SearchMediaItemsURL(base string) string {
	return base + "/mediaItems:search"
}

// ListAlbumsURL constructs the URL for an albums.list page.
func ListAlbumsURL(base, pageToken string) string {
	u := fmt.Sprintf("%s/albums?pageSize=%d", base, AlbumsPageSize)
	if pageToken != "" {
		u += "&pageToken=" + pageToken
	}
	return u
}

// ListSharedAlbumsURL constructs the URL for a sharedAlbums.list page.
func ListSharedAlbumsURL(base, pageToken string) string {
	u := fmt.Sprintf("%s/sharedAlbums?pageSize=%d", base, SharedAlbumsPageSize)
	if pageToken != "" {
		u += "&pageToken=" + pageToken
	}
	return u
}

// DownloadURL returns the full-resolution download URL for a media item.
// Images get the "=d" variant, videos "=dv".
func DownloadURL(item *MediaItem) string {
	if item.IsVideo() {
		return item.BaseURL + VideoDownloadSuffix
	}
	return item.BaseURL + ImageDownloadSuffix
}
