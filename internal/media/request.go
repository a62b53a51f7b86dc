package media

import (
	"strconv"
	"strings"

	"media-transcoder/internal/domain"
)

// Bitrate fallbacks applied when a pending value does not parse.
const (
	DefaultVideoBitrate = 1000
	DefaultAudioBitrate = 128
)

// DefaultSettings returns the pending settings a fresh session starts with.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		OutputFormat:     string(FormatMP4),
		VideoCodec:       string(VideoCodecH264),
		AudioCodec:       string(AudioCodecAAC),
		VideoBitrate:     strconv.Itoa(DefaultVideoBitrate),
		AudioBitrate:     strconv.Itoa(DefaultAudioBitrate),
		Resolution:       ResolutionSame,
		CustomResolution: "1280x720",
	}
}

// Request is the immutable set of parameters for one engine call. Input is
// shared with the job and must not be modified.
type Request struct {
	Input        []byte
	Format       Format
	VideoCodec   VideoCodec
	AudioCodec   AudioCodec
	VideoBitrate int
	AudioBitrate int
	Resolution   Resolution
}

// NewRequest commits pending settings into a request. Unknown tags are
// rejected with an UnsupportedParameterError; malformed, non-positive or
// out-of-range bitrates silently fall back to the defaults.
func NewRequest(input []byte, settings domain.Settings) (Request, error) {
	format, err := ParseFormat(settings.OutputFormat)
	if err != nil {
		return Request{}, err
	}
	videoCodec, err := ParseVideoCodec(settings.VideoCodec)
	if err != nil {
		return Request{}, err
	}
	audioCodec, err := ParseAudioCodec(settings.AudioCodec)
	if err != nil {
		return Request{}, err
	}
	resolution, err := ParseResolution(settings.Resolution, settings.CustomResolution)
	if err != nil {
		return Request{}, err
	}

	return Request{
		Input:        input,
		Format:       format,
		VideoCodec:   videoCodec,
		AudioCodec:   audioCodec,
		VideoBitrate: parseBitrate(settings.VideoBitrate, DefaultVideoBitrate),
		AudioBitrate: parseBitrate(settings.AudioBitrate, DefaultAudioBitrate),
		Resolution:   resolution,
	}, nil
}

// parseBitrate accepts positive values that fit the engine's int32 argument.
func parseBitrate(raw string, fallback int) int {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err != nil || v <= 0 {
		return fallback
	}
	return int(v)
}
