// Package whisperx runs the WhisperX speech recognizer through uvx.
//
// The service is invoked once per audio window, always on CPU, and returns
// segments with offsets relative to that window. A missing uvx launcher is
// reported as services.ErrInferenceBackendUnavailable; any failure of the
// recognizer itself is services.ErrInferenceFailure.
package whisperx
