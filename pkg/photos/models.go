package photos

import "strings"

// MediaItem represents a single remote media object (photo or video).
type MediaItem struct {
	ID            string        `json:"id"`
	Description   string        `json:"description,omitempty"`
	BaseURL       string        `json:"baseUrl"`
	MimeType      string        `json:"mimeType"`
	Filename      string        `json:"filename"`
	MediaMetadata MediaMetadata `json:"mediaMetadata"`
}

// MediaMetadata carries the descriptive metadata attached to a media item.
type MediaMetadata struct {
	CreationTime string `json:"creationTime,omitempty"`
	Width        string `json:"width,omitempty"`
	Height       string `json:"height,omitempty"`
}

// IsImage reports whether the item's MIME type is an image type.
func (m *MediaItem) IsImage() bool {
	return strings.Contains(m.MimeType, "image")
}

// IsVideo reports whether the item's MIME type is a video type.
func (m *MediaItem) IsVideo() bool {
	return strings.Contains(m.MimeType, "video")
}

// Album represents a remote album. MediaItemsCount comes back as a decimal
// string from the API; an album without it is inaccessible and skipped.
type Album struct {
	ID              string `json:"id"`
	Title           string `json:"title,omitempty"`
	ProductURL      string `json:"productUrl,omitempty"`
	MediaItemsCount string `json:"mediaItemsCount,omitempty"`
	CoverPhotoURL   string `json:"coverPhotoBaseUrl,omitempty"`
}

// ListMediaItemsResponse is the response of mediaItems.list.
type ListMediaItemsResponse struct {
	MediaItems    []MediaItem `json:"mediaItems"`
	NextPageToken string      `json:"nextPageToken,omitempty"`
}

// SearchMediaItemsResponse is the response of mediaItems.search.
type SearchMediaItemsResponse struct {
	MediaItems    []MediaItem `json:"mediaItems"`
	NextPageToken string      `json:"nextPageToken,omitempty"`
}

// ListAlbumsResponse is the response of albums.list.
type ListAlbumsResponse struct {
	Albums        []Album `json:"albums"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
}

// ListSharedAlbumsResponse is the response of sharedAlbums.list.
type ListSharedAlbumsResponse struct {
	SharedAlbums  []Album `json:"sharedAlbums"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
}

// SearchRequest is the body of mediaItems.search.
type SearchRequest struct {
	AlbumID   string         `json:"albumId,omitempty"`
	PageSize  int            `json:"pageSize"`
	PageToken string         `json:"pageToken,omitempty"`
	Filters   *SearchFilters `json:"filters,omitempty"`
}

// SearchFilters narrows a media item search.
type SearchFilters struct {
	FeatureFilter *FeatureFilter `json:"featureFilter,omitempty"`
}

// FeatureFilter selects items carrying a feature, e.g. FAVORITES.
type FeatureFilter struct {
	IncludedFeatures []string `json:"includedFeatures"`
}
