package media

import (
	"context"
	"fmt"

	waE2E "go.mau.fi/whatsmeow/proto/waE2E"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// Uploader stores a media blob and returns its public reference.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Downloader fetches encrypted media referenced by a message. The live
// client satisfies this.
type Downloader interface {
	DownloadAny(ctx context.Context, msg *waE2E.Message) ([]byte, error)
}

// Service downloads message media and hands it to the configured
// uploader. A nil uploader disables media capture entirely.
type Service struct {
	uploader Uploader
	log      waLog.Logger
}

// NewService creates a media service. uploader may be nil.
func NewService(uploader Uploader, log waLog.Logger) *Service {
	return &Service{uploader: uploader, log: log.Sub("Media")}
}

// Enabled reports whether media capture is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.uploader != nil
}

// Store downloads the media attached to a message and uploads it under a
// key derived from the session and message ids. Returns the public URL.
func (s *Service) Store(ctx context.Context, dl Downloader, msg *waE2E.Message, sessionID, messageID, mediaType string) (string, error) {
	data, err := dl.DownloadAny(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("failed to download media: %w", err)
	}

	key := fmt.Sprintf("%s/%s%s", sessionID, messageID, extensionFor(mediaType))
	url, err := s.uploader.Upload(ctx, key, contentTypeFor(mediaType), data)
	if err != nil {
		return "", fmt.Errorf("failed to upload media: %w", err)
	}

	s.log.Debugf("Stored %s media for message %s (%d bytes)", mediaType, messageID, len(data))
	return url, nil
}

// HistoryPlaceholder is the stand-in reference recorded for media arriving
// in history batches, which are never downloaded.
func HistoryPlaceholder(mediaType string) string {
	return "history_sync_media_" + mediaType
}

func extensionFor(mediaType string) string {
	switch mediaType {
	case "image":
		return ".jpg"
	case "video":
		return ".mp4"
	case "audio":
		return ".ogg"
	case "sticker":
		return ".webp"
	default:
		return ".bin"
	}
}

func contentTypeFor(mediaType string) string {
	switch mediaType {
	case "image":
		return "image/jpeg"
	case "video":
		return "video/mp4"
	case "audio":
		return "audio/ogg"
	case "sticker":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
