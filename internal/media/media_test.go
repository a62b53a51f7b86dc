package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-transcoder/internal/domain"
	"media-transcoder/internal/faults"
)

func TestNewRequestDefaults(t *testing.T) {
	input := make([]byte, 1000)
	req, err := NewRequest(input, DefaultSettings())
	require.NoError(t, err)

	assert.Equal(t, FormatMP4, req.Format)
	assert.Equal(t, VideoCodecH264, req.VideoCodec)
	assert.Equal(t, AudioCodecAAC, req.AudioCodec)
	assert.Equal(t, 1000, req.VideoBitrate)
	assert.Equal(t, 128, req.AudioBitrate)
	assert.True(t, req.Resolution.IsSame())
	assert.Equal(t, "same", req.Resolution.String())
	assert.Len(t, req.Input, 1000)
}

func TestNewRequestBitrateFallback(t *testing.T) {
	tests := []struct {
		name         string
		video, audio string
		wantV, wantA int
	}{
		{"non numeric", "abc", "xyz", 1000, 128},
		{"empty", "", "", 1000, 128},
		{"negative", "-5", "0", 1000, 128},
		{"padded", " 2500 ", "192", 2500, 192},
		{"float", "1.5", "96", 1000, 96},
		{"above int32", "3000000000", "2147483648", 1000, 128},
		{"overflows int64", "99999999999999999999", "99999999999999999999", 1000, 128},
		{"int32 max", "2147483647", "320", 2147483647, 320},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := DefaultSettings()
			settings.VideoBitrate = tt.video
			settings.AudioBitrate = tt.audio

			req, err := NewRequest([]byte{1}, settings)
			require.NoError(t, err)
			assert.Equal(t, tt.wantV, req.VideoBitrate)
			assert.Equal(t, tt.wantA, req.AudioBitrate)
		})
	}
}

func TestNewRequestRejectsUnknownTags(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.Settings)
	}{
		{"format", func(s *domain.Settings) { s.OutputFormat = "flv" }},
		{"video codec", func(s *domain.Settings) { s.VideoCodec = "theora" }},
		{"audio codec", func(s *domain.Settings) { s.AudioCodec = "ac3" }},
		{"resolution", func(s *domain.Settings) { s.Resolution = "4k" }},
		{"custom resolution", func(s *domain.Settings) {
			s.Resolution = ResolutionCustom
			s.CustomResolution = "0x720"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := DefaultSettings()
			tt.mutate(&settings)

			_, err := NewRequest([]byte{1}, settings)
			require.Error(t, err)
			assert.ErrorIs(t, err, faults.ErrUnsupportedParameter)
		})
	}
}

func TestParseResolution(t *testing.T) {
	tests := []struct {
		choice, custom string
		want           string
	}{
		{"same", "", "same"},
		{"", "", "same"},
		{"720p", "", "1280x720"},
		{"1080P", "", "1920x1080"},
		{"480p", "", "854x480"},
		{"360p", "", "640x360"},
		{"custom", "800x600", "800x600"},
		{"custom", " 1024 x 576 ", "1024x576"},
		{"320x240", "", "320x240"},
	}

	for _, tt := range tests {
		got, err := ParseResolution(tt.choice, tt.custom)
		require.NoError(t, err, tt.choice)
		assert.Equal(t, tt.want, got.String(), tt.choice)
	}
}

func TestParseTagsNormalizeCase(t *testing.T) {
	f, err := ParseFormat(" WebM ")
	require.NoError(t, err)
	assert.Equal(t, FormatWebM, f)

	v, err := ParseVideoCodec("VP9")
	require.NoError(t, err)
	assert.Equal(t, VideoCodecVP9, v)

	a, err := ParseAudioCodec("Opus")
	require.NoError(t, err)
	assert.Equal(t, AudioCodecOpus, a)
}

func TestMIMEType(t *testing.T) {
	tests := map[string]string{
		"mp4":  "video/mp4",
		"webm": "video/webm",
		"mkv":  "video/x-matroska",
		"mov":  "video/quicktime",
		"gif":  "image/gif",
		"mp3":  "audio/mpeg",
		"ogg":  "audio/ogg",
		"wav":  "audio/wav",
		"avi":  "application/octet-stream",
		"":     "application/octet-stream",
	}
	for format, want := range tests {
		assert.Equal(t, want, MIMEType(format), format)
	}
}

func TestOutputFileName(t *testing.T) {
	assert.Equal(t, "holiday.webm", OutputFileName("holiday.mp4", "webm"))
	assert.Equal(t, "clip.v2.mp3", OutputFileName("/videos/clip.v2.mov", "mp3"))
	assert.Equal(t, "output.mp4", OutputFileName("README", "mp4"))
	assert.Equal(t, "output.gif", OutputFileName("", "gif"))
	assert.Equal(t, "output.mkv", OutputFileName(".hidden", "mkv"))
}

func TestListOptions(t *testing.T) {
	opts := ListOptions()
	assert.Contains(t, opts.Formats, "mp4")
	assert.Contains(t, opts.Formats, "gif")
	assert.Contains(t, opts.VideoCodecs, "copy")
	assert.Contains(t, opts.AudioCodecs, "vorbis")
	assert.Equal(t, []string{"same", "360p", "480p", "720p", "1080p", "custom"}, opts.Resolutions)
}
