package services

import (
	"context"

	"github.com/desertthunder/audiograb/internal/models"
)

// Downloader defines the media tool operations a job needs: metadata lookup and audio download.
type Downloader interface {
	// FetchInfo queries the metadata record for a single video.
	FetchInfo(ctx context.Context, url string) (*models.VideoInfo, error)

	// Download fetches the audio stream and reports each parsed percentage to onProgress.
	Download(ctx context.Context, req DownloadRequest, onProgress func(float64)) error
}

// PlaylistLister lists playlist entries without downloading them.
type PlaylistLister interface {
	Playlist(ctx context.Context, url string) (*models.Playlist, error)
}

// Tagger writes container tags and cover art to a finished file.
type Tagger interface {
	WriteTags(ctx context.Context, path string, tags models.Tags) error
	EmbedArtwork(ctx context.Context, path string, image []byte) error
}

// ArtworkFetcher downloads an image by URL.
type ArtworkFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

var (
	_ Downloader     = (*YTDLP)(nil)
	_ PlaylistLister = (*YTDLP)(nil)
	_ Tagger         = (*FFmpeg)(nil)
	_ TagEditor      = (*FFmpeg)(nil)
	_ ArtworkFetcher = (*ArtworkClient)(nil)
)
