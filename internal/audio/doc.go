// Package audio handles sample-rate conversion, PCM quantization, and WAV
// container encoding. It converts device-native float32 audio into the
// canonical mono 16-bit 16 kHz WAV format expected by the emotion analysis
// backend.
package audio
