// Package audio turns arbitrary input audio into the canonical waveform used
// for transcription and slices it into fixed windows.
//
// The canonical waveform is 16 kHz, mono, 16-bit PCM in a RIFF/WAVE
// container. Normalizer converts other inputs with ffmpeg, passing already
// canonical WAV files through untouched. Split cuts a canonical file into
// chunk_000.wav, chunk_001.wav, ... each covering a fixed number of seconds.
package audio
