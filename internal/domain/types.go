package domain

import "time"

// JobStatus tracks the lifecycle of the single transcode job.
type JobStatus string

const (
	JobStatusIdle        JobStatus = "idle"
	JobStatusLoading     JobStatus = "loading"
	JobStatusReady       JobStatus = "ready"
	JobStatusTranscoding JobStatus = "transcoding"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusFailed      JobStatus = "failed"
)

// Setting names a user-editable pending transcode setting.
type Setting string

const (
	SettingOutputFormat     Setting = "outputFormat"
	SettingVideoCodec       Setting = "videoCodec"
	SettingAudioCodec       Setting = "audioCodec"
	SettingVideoBitrate     Setting = "videoBitrate"
	SettingAudioBitrate     Setting = "audioBitrate"
	SettingResolution       Setting = "resolution"
	SettingCustomResolution Setting = "customResolution"
)

// Settings mirrors the transcode request fields before a job commits them.
// Bitrates stay as raw strings; they are parsed only when a job starts.
type Settings struct {
	OutputFormat     string `json:"outputFormat" toml:"output_format"`
	VideoCodec       string `json:"videoCodec" toml:"video_codec"`
	AudioCodec       string `json:"audioCodec" toml:"audio_codec"`
	VideoBitrate     string `json:"videoBitrate" toml:"video_bitrate"`
	AudioBitrate     string `json:"audioBitrate" toml:"audio_bitrate"`
	Resolution       string `json:"resolution" toml:"resolution"`
	CustomResolution string `json:"customResolution" toml:"custom_resolution"`
}

// LogEntry is one timestamped line of the session log.
type LogEntry struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// ResultArtifact is the encoded output and the format it was produced in.
type ResultArtifact struct {
	Data   []byte `json:"-"`
	Format string `json:"format"`
	Size   int    `json:"size"`
}

// JobError is the UI-facing view of a normalized failure.
type JobError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Job is a point-in-time snapshot of the orchestrator's job.
type Job struct {
	ID        string          `json:"id"`
	FileName  string          `json:"fileName,omitempty"`
	InputSize int             `json:"inputSize"`
	Status    JobStatus       `json:"status"`
	Settings  Settings        `json:"settings"`
	Progress  float64         `json:"progress"`
	Result    *ResultArtifact `json:"result,omitempty"`
	Error     *JobError       `json:"error,omitempty"`
}
