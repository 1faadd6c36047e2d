package convertor

import (
	"mime"
	"strings"
)

// Media types stored in the file_type column.
const (
	MediaTypeFile  = 0
	MediaTypeImage = 1
	MediaTypeVideo = 2
	MediaTypeAudio = 3
)

const defaultMimeType = "application/octet-stream"

// MimeInfo is the extension-derived, local-only metadata of a file name.
type MimeInfo struct {
	Extension string
	MimeType  string
	MediaType int
}

// DeriveMime inspects the extension after the last dot of name. ok is false
// when the name has no dot.
func DeriveMime(name string) (info MimeInfo, ok bool) {
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		return MimeInfo{}, false
	}
	ext := name[dot+1:]
	mt := mime.TypeByExtension("." + strings.ToLower(ext))
	if mt == "" {
		mt = defaultMimeType
	} else if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	return MimeInfo{Extension: ext, MimeType: mt, MediaType: mediaTypeOf(mt)}, true
}

func mediaTypeOf(mimeType string) int {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return MediaTypeImage
	case strings.HasPrefix(mimeType, "video/"):
		return MediaTypeVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return MediaTypeAudio
	default:
		return MediaTypeFile
	}
}
