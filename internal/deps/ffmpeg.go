package deps

import "voicecollect/internal/config"

// AudioRequirements lists the binaries the configured normalizer executes.
// Only the ffmpeg strategy shells out; native and passthrough need nothing.
func AudioRequirements(cfg *config.Config) []Requirement {
	if cfg == nil || cfg.Audio.Transcode != config.TranscodeFFmpeg {
		return nil
	}
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Audio.FFmpegBinary,
			Description: "Transcodes uploads to mono PCM WAV",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Audio.FFprobeBinary,
			Description: "Verifies uploads carry an audio stream",
		},
	}
}
