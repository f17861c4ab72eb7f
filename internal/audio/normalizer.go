package audio

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"voicecollect/internal/config"
	"voicecollect/internal/fileutil"
	"voicecollect/internal/logging"
	"voicecollect/internal/media/wav"
	"voicecollect/internal/services"
	"voicecollect/internal/services/ffmpeg"
)

const component = "normalizer"

// ContentTypeWAV is the media type of every transcoded clip.
const ContentTypeWAV = "audio/wav"

// NormalizedAudio is a clip ready for storage.
type NormalizedAudio struct {
	Data        []byte
	ContentType string
	Extension   string
	SampleRate  int
	Channels    int
	Duration    time.Duration
	// Checksum is the hex SHA-256 of Data.
	Checksum string
}

// Size returns the payload length in bytes.
func (n NormalizedAudio) Size() int64 {
	return int64(len(n.Data))
}

// Normalizer validates and canonicalizes raw uploads.
type Normalizer interface {
	Normalize(ctx context.Context, raw []byte, mediaType string) (NormalizedAudio, error)
	Strategy() string
}

// Target describes the canonical output format.
type Target struct {
	SampleRate int
	Channels   int
}

// New builds the normalizer selected by cfg.Audio.Transcode.
func New(cfg *config.Config, logger *slog.Logger) (Normalizer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("audio: config is required")
	}
	logger = logging.NewComponentLogger(logger, component)
	target := Target{SampleRate: cfg.Audio.SampleRate, Channels: cfg.Audio.Channels}
	switch cfg.Audio.Transcode {
	case config.TranscodeFFmpeg:
		client, err := ffmpeg.New(cfg.Audio.FFmpegBinary, cfg.AudioTimeout())
		if err != nil {
			return nil, err
		}
		return NewFFmpeg(client, cfg.Audio.FFprobeBinary, target, logger), nil
	case config.TranscodeNative:
		return NewNative(target, logger), nil
	case config.TranscodeNone:
		return NewPassthrough(logger), nil
	default:
		return nil, fmt.Errorf("audio: unknown transcode strategy %q", cfg.Audio.Transcode)
	}
}

// ParseMediaType returns the lowercase type/subtype of an audio media type,
// rejecting anything outside the audio/ category.
func ParseMediaType(mediaType string) (string, error) {
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" {
		return "", fmt.Errorf("media type is empty")
	}
	parsed, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return "", fmt.Errorf("parse media type %q: %w", mediaType, err)
	}
	if !strings.HasPrefix(parsed, "audio/") || len(parsed) == len("audio/") {
		return "", fmt.Errorf("media type %q is not audio", parsed)
	}
	return parsed, nil
}

// ExtensionFor maps an audio media type onto a file extension.
func ExtensionFor(mediaType string) string {
	switch mediaType {
	case "audio/wav", "audio/wave", "audio/x-wav", "audio/vnd.wave":
		return "wav"
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/ogg":
		return "ogg"
	case "audio/opus":
		return "opus"
	case "audio/webm":
		return "webm"
	case "audio/mp4", "audio/m4a", "audio/x-m4a", "audio/aac":
		return "m4a"
	case "audio/flac", "audio/x-flac":
		return "flac"
	default:
		return "bin"
	}
}

// sniffRejects reports content whose sniffed type is clearly not audio.
func sniffRejects(raw []byte) (string, bool) {
	sniffed := http.DetectContentType(raw)
	switch {
	case strings.HasPrefix(sniffed, "text/"),
		strings.HasPrefix(sniffed, "image/"),
		strings.HasPrefix(sniffed, "application/pdf"),
		strings.HasPrefix(sniffed, "application/zip"):
		return sniffed, true
	default:
		return sniffed, false
	}
}

func normalizationError(operation, message string, err error) error {
	return services.Wrap(services.ErrNormalizationFailed, component, operation, message, err)
}

func finish(data []byte, contentType, ext string, sampleRate, channels int, duration time.Duration) NormalizedAudio {
	return NormalizedAudio{
		Data:        data,
		ContentType: contentType,
		Extension:   ext,
		SampleRate:  sampleRate,
		Channels:    channels,
		Duration:    duration,
		Checksum:    fileutil.SHA256Hex(data),
	}
}

// canonicalWAV decodes a WAV stream, converts it to target and re-encodes it
// with an exact header.
func canonicalWAV(data []byte, target Target) (NormalizedAudio, error) {
	decoded, err := wav.Decode(data)
	if err != nil {
		return NormalizedAudio{}, err
	}
	converted := wav.Resample(wav.Downmix(decoded, target.Channels), target.SampleRate)
	encoded, err := wav.Encode(converted)
	if err != nil {
		return NormalizedAudio{}, err
	}
	return finish(encoded, ContentTypeWAV, "wav", converted.SampleRate, converted.Channels, converted.Duration()), nil
}
