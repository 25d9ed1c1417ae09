package assets

import (
	"strings"
	"time"

	"github.com/cutroom/renderd/internal/scenario"
)

type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Asset is one media file registered to a project. FileKey is the
// path relative to the upload directory; callers never see absolute
// paths.
type Asset struct {
	ID          string               `json:"id"`
	ProjectID   string               `json:"project_id"`
	FileKey     string               `json:"file_key"`
	Filename    string               `json:"filename"`
	MediaType   string               `json:"media_type"`
	Source      scenario.AssetSource `json:"source"`
	Status      scenario.AssetStatus `json:"status"`
	DurationSec float64              `json:"duration_sec,omitempty"`
	Width       int                  `json:"width,omitempty"`
	Height      int                  `json:"height,omitempty"`
	Fingerprint string               `json:"fingerprint,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

var audioExtensions = map[string]bool{
	".mp3": true,
	".wav": true,
	".m4a": true,
	".aac": true,
}

// MediaTypeForFilename classifies a file by extension. Unknown
// extensions return "".
func MediaTypeForFilename(filename string) string {
	dot := strings.LastIndexByte(filename, '.')
	if dot < 0 {
		return ""
	}
	ext := strings.ToLower(filename[dot:])
	switch {
	case videoExtensions[ext]:
		return "video"
	case imageExtensions[ext]:
		return "image"
	case audioExtensions[ext]:
		return "audio"
	default:
		return ""
	}
}
