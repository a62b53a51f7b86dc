// Package media defines the closed set of transcode options and builds the
// immutable request handed to the engine.
package media

import (
	"fmt"
	"strconv"
	"strings"

	"media-transcoder/internal/faults"
)

// Format is an output container tag.
type Format string

const (
	FormatMP4  Format = "mp4"
	FormatWebM Format = "webm"
	FormatMKV  Format = "mkv"
	FormatMOV  Format = "mov"
	FormatAVI  Format = "avi"
	FormatGIF  Format = "gif"
	FormatMP3  Format = "mp3"
	FormatOGG  Format = "ogg"
	FormatWAV  Format = "wav"
)

// VideoCodec is an engine video encoder tag.
type VideoCodec string

const (
	VideoCodecH264  VideoCodec = "h264"
	VideoCodecH265  VideoCodec = "h265"
	VideoCodecVP8   VideoCodec = "vp8"
	VideoCodecVP9   VideoCodec = "vp9"
	VideoCodecAV1   VideoCodec = "av1"
	VideoCodecMPEG4 VideoCodec = "mpeg4"
	VideoCodecCopy  VideoCodec = "copy"
)

// AudioCodec is an engine audio encoder tag.
type AudioCodec string

const (
	AudioCodecAAC    AudioCodec = "aac"
	AudioCodecMP3    AudioCodec = "mp3"
	AudioCodecOpus   AudioCodec = "opus"
	AudioCodecVorbis AudioCodec = "vorbis"
	AudioCodecFLAC   AudioCodec = "flac"
	AudioCodecCopy   AudioCodec = "copy"
)

// Resolution choices offered to users.
const (
	ResolutionSame   = "same"
	ResolutionCustom = "custom"
)

var (
	formats     = []Format{FormatMP4, FormatWebM, FormatMKV, FormatMOV, FormatAVI, FormatGIF, FormatMP3, FormatOGG, FormatWAV}
	videoCodecs = []VideoCodec{VideoCodecH264, VideoCodecH265, VideoCodecVP8, VideoCodecVP9, VideoCodecAV1, VideoCodecMPEG4, VideoCodecCopy}
	audioCodecs = []AudioCodec{AudioCodecAAC, AudioCodecMP3, AudioCodecOpus, AudioCodecVorbis, AudioCodecFLAC, AudioCodecCopy}

	resolutionPresets = map[string]Resolution{
		"360p":  {Width: 640, Height: 360},
		"480p":  {Width: 854, Height: 480},
		"720p":  {Width: 1280, Height: 720},
		"1080p": {Width: 1920, Height: 1080},
	}
	resolutionChoices = []string{ResolutionSame, "360p", "480p", "720p", "1080p", ResolutionCustom}
)

// Options lists every tag the UI may offer.
type Options struct {
	Formats     []string `json:"formats"`
	VideoCodecs []string `json:"videoCodecs"`
	AudioCodecs []string `json:"audioCodecs"`
	Resolutions []string `json:"resolutions"`
}

// ListOptions returns the option catalogs in display order.
func ListOptions() Options {
	opts := Options{Resolutions: append([]string(nil), resolutionChoices...)}
	for _, f := range formats {
		opts.Formats = append(opts.Formats, string(f))
	}
	for _, c := range videoCodecs {
		opts.VideoCodecs = append(opts.VideoCodecs, string(c))
	}
	for _, c := range audioCodecs {
		opts.AudioCodecs = append(opts.AudioCodecs, string(c))
	}
	return opts
}

// ParseFormat validates an output format tag.
func ParseFormat(raw string) (Format, error) {
	tag := normalizeTag(raw)
	for _, f := range formats {
		if string(f) == tag {
			return f, nil
		}
	}
	return "", faults.UnsupportedParameter("format", fmt.Sprintf("unsupported output format %q", raw))
}

// ParseVideoCodec validates a video codec tag.
func ParseVideoCodec(raw string) (VideoCodec, error) {
	tag := normalizeTag(raw)
	for _, c := range videoCodecs {
		if string(c) == tag {
			return c, nil
		}
	}
	return "", faults.UnsupportedParameter("video codec", fmt.Sprintf("unsupported video codec %q", raw))
}

// ParseAudioCodec validates an audio codec tag.
func ParseAudioCodec(raw string) (AudioCodec, error) {
	tag := normalizeTag(raw)
	for _, c := range audioCodecs {
		if string(c) == tag {
			return c, nil
		}
	}
	return "", faults.UnsupportedParameter("audio codec", fmt.Sprintf("unsupported audio codec %q", raw))
}

// Resolution is a target frame size. The zero value keeps the source size.
type Resolution struct {
	Width  int
	Height int
}

// IsSame reports whether the source size is kept.
func (r Resolution) IsSame() bool {
	return r.Width == 0 && r.Height == 0
}

// String renders the engine's resolution argument.
func (r Resolution) String() string {
	if r.IsSame() {
		return ResolutionSame
	}
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// ParseResolution resolves a resolution choice. "custom" reads the separate
// custom value; any other string may be a preset name or a literal "WxH".
func ParseResolution(choice, custom string) (Resolution, error) {
	tag := normalizeTag(choice)
	switch tag {
	case "", ResolutionSame:
		return Resolution{}, nil
	case ResolutionCustom:
		return parseDimensions(custom)
	}
	if preset, ok := resolutionPresets[tag]; ok {
		return preset, nil
	}
	return parseDimensions(choice)
}

// parseDimensions parses "WxH" with positive integers.
func parseDimensions(raw string) (Resolution, error) {
	value := normalizeTag(raw)
	w, h, ok := strings.Cut(value, "x")
	if ok {
		width, werr := strconv.Atoi(strings.TrimSpace(w))
		height, herr := strconv.Atoi(strings.TrimSpace(h))
		if werr == nil && herr == nil && width > 0 && height > 0 {
			return Resolution{Width: width, Height: height}, nil
		}
	}
	return Resolution{}, faults.UnsupportedParameter("resolution", fmt.Sprintf("unsupported resolution %q", raw))
}

func normalizeTag(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
