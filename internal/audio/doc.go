// Package audio plays a sound when a toast appears. It uses the beep library
// to play WAV, OGG and MP3 files with volume control and per-kind sounds.
package audio
