package audio

import (
	"context"
	"log/slog"

	"voicecollect/internal/logging"
	"voicecollect/internal/media/ffprobe"
	"voicecollect/internal/media/wav"
	"voicecollect/internal/services/ffmpeg"
)

// Prober inspects an in-memory payload.
type Prober func(ctx context.Context, binary string, data []byte) (ffprobe.Result, error)

// Transcoder converts arbitrary audio to PCM WAV.
type Transcoder interface {
	TranscodeToWAV(ctx context.Context, input []byte, sampleRate, channels int) ([]byte, error)
}

var _ Transcoder = (*ffmpeg.Client)(nil)

// FFmpegNormalizer probes uploads with ffprobe and transcodes them with ffmpeg.
type FFmpegNormalizer struct {
	transcoder    Transcoder
	probe         Prober
	ffprobeBinary string
	target        Target
	logger        *slog.Logger
}

// NewFFmpeg constructs the ffmpeg-backed strategy.
func NewFFmpeg(transcoder Transcoder, ffprobeBinary string, target Target, logger *slog.Logger) *FFmpegNormalizer {
	return &FFmpegNormalizer{
		transcoder:    transcoder,
		probe:         ffprobe.InspectBytes,
		ffprobeBinary: ffprobeBinary,
		target:        target,
		logger:        logging.NewComponentLogger(logger, component),
	}
}

// WithProber replaces the ffprobe call, mainly for tests.
func (n *FFmpegNormalizer) WithProber(probe Prober) *FFmpegNormalizer {
	if probe != nil {
		n.probe = probe
	}
	return n
}

func (n *FFmpegNormalizer) Strategy() string { return "ffmpeg" }

func (n *FFmpegNormalizer) Normalize(ctx context.Context, raw []byte, mediaType string) (NormalizedAudio, error) {
	if _, err := ParseMediaType(mediaType); err != nil {
		return NormalizedAudio{}, normalizationError("validate", "unsupported media type", err)
	}
	if len(raw) == 0 {
		return NormalizedAudio{}, normalizationError("validate", "empty payload", nil)
	}
	probe, err := n.probe(ctx, n.ffprobeBinary, raw)
	if err != nil {
		return NormalizedAudio{}, normalizationError("probe", "ffprobe could not read upload", err)
	}
	if probe.AudioStreamCount() == 0 {
		return NormalizedAudio{}, normalizationError("probe", "upload has no audio stream", nil)
	}
	out, err := n.transcoder.TranscodeToWAV(ctx, raw, n.target.SampleRate, n.target.Channels)
	if err != nil {
		return NormalizedAudio{}, normalizationError("transcode", "ffmpeg failed", err)
	}
	normalized, err := canonicalWAV(out, n.target)
	if err != nil {
		return NormalizedAudio{}, normalizationError("transcode", "ffmpeg produced unreadable output", err)
	}
	if stream, ok := probe.PrimaryAudio(); ok {
		n.logger.Debug("upload transcoded",
			logging.String("source_codec", stream.CodecName),
			logging.String("source_format", probe.Format.FormatName),
			logging.Any("source_seconds", probe.DurationSeconds()),
			logging.Int("source_sample_rate", stream.SampleRateHz()),
			logging.Int("source_channels", stream.Channels),
			logging.Int("input_bytes", len(raw)),
			logging.Int64("output_bytes", normalized.Size()),
			logging.Duration("clip_duration", normalized.Duration),
		)
	}
	return normalized, nil
}

// NativeNormalizer converts PCM WAV uploads without external binaries.
type NativeNormalizer struct {
	target Target
	logger *slog.Logger
}

// NewNative constructs the pure Go strategy.
func NewNative(target Target, logger *slog.Logger) *NativeNormalizer {
	return &NativeNormalizer{target: target, logger: logging.NewComponentLogger(logger, component)}
}

func (n *NativeNormalizer) Strategy() string { return "native" }

func (n *NativeNormalizer) Normalize(_ context.Context, raw []byte, mediaType string) (NormalizedAudio, error) {
	if _, err := ParseMediaType(mediaType); err != nil {
		return NormalizedAudio{}, normalizationError("validate", "unsupported media type", err)
	}
	if !wav.IsWAV(raw) {
		return NormalizedAudio{}, normalizationError("decode", "native normalizer accepts PCM WAV only", wav.ErrNotWAV)
	}
	normalized, err := canonicalWAV(raw, n.target)
	if err != nil {
		return NormalizedAudio{}, normalizationError("decode", "corrupt or unsupported WAV", err)
	}
	n.logger.Debug("upload normalized",
		logging.Int("input_bytes", len(raw)),
		logging.Int64("output_bytes", normalized.Size()),
		logging.Duration("clip_duration", normalized.Duration),
	)
	return normalized, nil
}

// PassthroughNormalizer stores uploads unchanged once they pass validation.
type PassthroughNormalizer struct {
	logger *slog.Logger
}

// NewPassthrough constructs the validation-only strategy.
func NewPassthrough(logger *slog.Logger) *PassthroughNormalizer {
	return &PassthroughNormalizer{logger: logging.NewComponentLogger(logger, component)}
}

func (n *PassthroughNormalizer) Strategy() string { return "none" }

func (n *PassthroughNormalizer) Normalize(_ context.Context, raw []byte, mediaType string) (NormalizedAudio, error) {
	parsed, err := ParseMediaType(mediaType)
	if err != nil {
		return NormalizedAudio{}, normalizationError("validate", "unsupported media type", err)
	}
	if len(raw) == 0 {
		return NormalizedAudio{}, normalizationError("validate", "empty payload", nil)
	}
	if sniffed, rejected := sniffRejects(raw); rejected {
		return NormalizedAudio{}, normalizationError("validate", "payload content sniffs as "+sniffed, nil)
	}
	data := append([]byte(nil), raw...)
	out := finish(data, parsed, ExtensionFor(parsed), 0, 0, 0)
	if wav.IsWAV(raw) {
		if decoded, err := wav.Decode(raw); err == nil {
			out.SampleRate = decoded.SampleRate
			out.Channels = decoded.Channels
			out.Duration = decoded.Duration()
		}
	}
	return out, nil
}
