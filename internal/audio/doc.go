// Package audio turns raw uploads into the canonical clip format stored by
// the blob store.
//
// New selects one of three strategies from configuration: ffmpeg (probe plus
// transcode through the ffmpeg CLI), native (pure Go PCM WAV decode, downmix
// and resample), or none (validated passthrough). Every failure is tagged
// services.ErrNormalizationFailed.
package audio
