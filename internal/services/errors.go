package services

import (
	"errors"
	"strings"
)

var (
	ErrInputUnreadable             = errors.New("input unreadable")
	ErrDecodingToolUnavailable     = errors.New("decoding tool unavailable")
	ErrInferenceBackendUnavailable = errors.New("inference backend unavailable")
	ErrInferenceFailure            = errors.New("inference failure")
	ErrNotFound                    = errors.New("not found")
	ErrStorageFailure              = errors.New("storage failure")
	ErrConfiguration               = errors.New("configuration error")
	ErrValidation                  = errors.New("validation error")
	ErrGenerationFailure           = errors.New("generation failure")
)

// ErrorKind is the stable classification persisted in logs and API payloads.
type ErrorKind string

const (
	KindUnknown                     ErrorKind = "unknown"
	KindInputUnreadable             ErrorKind = "input_unreadable"
	KindDecodingToolUnavailable     ErrorKind = "decoding_tool_unavailable"
	KindInferenceBackendUnavailable ErrorKind = "inference_backend_unavailable"
	KindInferenceFailure            ErrorKind = "inference_failure"
	KindNotFound                    ErrorKind = "not_found"
	KindStorageFailure              ErrorKind = "storage_failure"
	KindConfiguration               ErrorKind = "configuration"
	KindValidation                  ErrorKind = "validation"
	KindGenerationFailure           ErrorKind = "generation_failure"
)

// GenericFailureMessage is shown for failures that carry no classification.
const GenericFailureMessage = "Transcription failed unexpectedly; check the daemon log for details"

type kindInfo struct {
	marker  error
	kind    ErrorKind
	message string
	hint    string
}

var kinds = []kindInfo{
	{ErrDecodingToolUnavailable, KindDecodingToolUnavailable,
		"ffmpeg is required for audio conversion but was not found; install ffmpeg or upload a 16 kHz mono WAV file",
		"install ffmpeg or set transcription.ffmpeg_binary"},
	{ErrInputUnreadable, KindInputUnreadable,
		"The audio file could not be read or decoded",
		"verify the file exists and is a supported audio format"},
	{ErrInferenceBackendUnavailable, KindInferenceBackendUnavailable,
		"Transcription engine is not available; install uv (uvx) so whisperx can run",
		"install uv or set transcription.uvx_binary"},
	{ErrInferenceFailure, KindInferenceFailure,
		"Transcription failed while processing audio",
		"inspect the whisperx output in the daemon log"},
	{ErrNotFound, KindNotFound,
		"The requested item was not found",
		"check the identifier or session directory"},
	{ErrStorageFailure, KindStorageFailure,
		"Not enough disk space or storage is unavailable",
		"free disk space or check data_dir permissions"},
	{ErrConfiguration, KindConfiguration,
		"Configuration is incomplete",
		"run 'studyscribe config validate'"},
	{ErrValidation, KindValidation,
		"The request was invalid",
		"check the request parameters"},
	{ErrGenerationFailure, KindGenerationFailure,
		"Answer generation failed",
		"check llm.base_url, llm.model, and the API key"},
}

// ServiceError tags a failure with a marker, the operation that failed, and a
// message that is safe to show to end users.
type ServiceError struct {
	Marker    error
	Operation string
	Message   string
	Cause     error
}

func (e *ServiceError) Error() string {
	parts := make([]string, 0, 4)
	if e.Marker != nil {
		parts = append(parts, e.Marker.Error())
	}
	if op := strings.TrimSpace(e.Operation); op != "" {
		parts = append(parts, op)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

func (e *ServiceError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Marker != nil {
		out = append(out, e.Marker)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// Wrap tags err with marker. message is the user-facing text; when empty the
// default message for the marker's kind is used.
func Wrap(marker error, operation, message string, err error) error {
	return &ServiceError{
		Marker:    marker,
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// ErrorDetails is the structured view of a classified error.
type ErrorDetails struct {
	Kind      ErrorKind
	Operation string
	Message   string
	Hint      string
	Cause     error
}

// Details extracts kind, operation, user message, and hint from err.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: KindUnknown}
	if info, ok := lookupKind(err); ok {
		details.Kind = info.kind
		details.Message = info.message
		details.Hint = info.hint
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		details.Operation = svcErr.Operation
		details.Cause = svcErr.Cause
		if svcErr.Message != "" {
			details.Message = svcErr.Message
		}
	}
	return details
}

// KindOf returns the classification of err.
func KindOf(err error) ErrorKind {
	if info, ok := lookupKind(err); ok {
		return info.kind
	}
	return KindUnknown
}

// UserMessage returns a message that is safe to persist on a job record.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg := Details(err).Message; msg != "" {
		return msg
	}
	return GenericFailureMessage
}

func lookupKind(err error) (kindInfo, bool) {
	for _, info := range kinds {
		if errors.Is(err, info.marker) {
			return info, true
		}
	}
	return kindInfo{}, false
}
