// Package photos provides a typed client for the Google Photos Library API.
//
// This package includes:
//   - An HTTP client with typed error classification
//   - Models for media items, albums and listing responses
//   - A Fetcher that drains paginated listing endpoints to completion
//   - Helpers for constructing endpoint and download URLs
//
// The client does no authentication itself; it expects an http.Client that
// already attaches OAuth credentials (see pkg/auth).
//
// Example usage:
//
//	client := photos.NewClient(authedHTTPClient, 5*time.Minute, log)
//	fetcher := photos.NewFetcher(client, nil, log)
//
//	albums, err := fetcher.ListAlbums()
//	if err != nil {
//	    var perr *photos.Error
//	    if errors.As(err, &perr) && perr.Type == photos.ErrorTypeAuth {
//	        // re-authenticate
//	    }
//	}
package photos
