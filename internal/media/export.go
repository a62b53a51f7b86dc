package media

import (
	"path/filepath"
	"strings"
)

const defaultMIMEType = "application/octet-stream"

var mimeTypes = map[Format]string{
	FormatMP4:  "video/mp4",
	FormatWebM: "video/webm",
	FormatMKV:  "video/x-matroska",
	FormatMOV:  "video/quicktime",
	FormatGIF:  "image/gif",
	FormatMP3:  "audio/mpeg",
	FormatOGG:  "audio/ogg",
	FormatWAV:  "audio/wav",
}

// MIMEType returns the download content type for an output format tag.
func MIMEType(format string) string {
	if mt, ok := mimeTypes[Format(normalizeTag(format))]; ok {
		return mt
	}
	return defaultMIMEType
}

// OutputFileName replaces the extension of the source file name with the
// output format, or returns "output.<format>" when there is none. A leading
// dot marks a hidden file, not an extension, so ".clip" also maps to
// "output.<format>" rather than a hidden ".<format>".
func OutputFileName(sourceName, format string) string {
	ext := normalizeTag(format)
	base := filepath.Base(strings.TrimSpace(sourceName))
	if idx := strings.LastIndex(base, "."); idx > 0 {
		return base[:idx] + "." + ext
	}
	return "output." + ext
}
