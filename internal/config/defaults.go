package config

const (
	defaultScratchDir   = "~/.local/share/snapmerge/scratch"
	defaultLogDir       = "~/.local/share/snapmerge/logs"
	defaultFFmpeg       = "ffmpeg"
	defaultFFprobe      = "ffprobe"
	defaultJPEGQuality  = 90
	defaultVideoPreset  = "medium"
	defaultVideoCRF     = 20
	defaultAudioBitrate = "192k"
	defaultWorkers      = 1
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpeg,
			FFprobe: defaultFFprobe,
		},
		Output: Output{
			Overwrite:   false,
			JPEGQuality: defaultJPEGQuality,
		},
		Video: Video{
			Preset:       defaultVideoPreset,
			CRF:          defaultVideoCRF,
			AudioBitrate: defaultAudioBitrate,
		},
		Batch: Batch{
			Workers: defaultWorkers,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
