// Package wav decodes and encodes RIFF/WAVE PCM audio and provides the small
// set of sample transforms (downmix, linear resample) the native normalizer
// needs when ffmpeg is not in use.
package wav
