package api

import "studyscribe/internal/qa"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job is the polling view of a job.
type Job struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
	Result   string `json:"result"`
}

// JobSummary adds bookkeeping fields for listings.
type JobSummary struct {
	Job
	ErrorKind  string `json:"error_kind,omitempty"`
	SourcePath string `json:"source_path,omitempty"`
	SessionDir string `json:"session_dir,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []JobSummary `json:"jobs"`
}

// SubmitRequest asks for a recording to be transcribed. SessionDir is
// optional; an empty value allocates a directory under the sessions root.
type SubmitRequest struct {
	AudioPath  string `json:"audio_path"`
	SessionDir string `json:"session_dir"`
}

// SubmitResponse identifies the queued job.
type SubmitResponse struct {
	JobID      string `json:"job_id"`
	SessionDir string `json:"session_dir"`
}

// SearchRequest ranks chunks from one or more sessions against Query.
type SearchRequest struct {
	Query       string   `json:"query"`
	SessionDirs []string `json:"session_dirs"`
	TopK        int      `json:"top_k,omitempty"`
}

// SearchResult is one ranked chunk.
type SearchResult struct {
	ChunkID    int     `json:"chunk_id"`
	Text       string  `json:"text"`
	TStart     float64 `json:"t_start"`
	TEnd       float64 `json:"t_end"`
	SegmentIDs []int   `json:"segment_ids"`
	SessionDir string  `json:"session_dir"`
	Score      float64 `json:"score"`
}

// SearchResponse lists ranked chunks. Missing names sessions that have no
// transcript yet and were skipped.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Missing []string       `json:"missing,omitempty"`
}

// AskRequest asks a question over one or more sessions.
type AskRequest struct {
	Question    string   `json:"question"`
	SessionDirs []string `json:"session_dirs"`
	TopK        int      `json:"top_k,omitempty"`
}

// AskResponse is a cited answer.
type AskResponse struct {
	qa.Answer
	Missing []string `json:"missing,omitempty"`
}

// RebuildResponse reports a chunk rebuild.
type RebuildResponse struct {
	SessionDir string `json:"session_dir"`
	Chunks     int    `json:"chunks"`
}

// ExecutorStatus mirrors the worker pool counters.
type ExecutorStatus struct {
	Running   bool `json:"running"`
	Workers   int  `json:"workers"`
	Active    int  `json:"active"`
	Pending   int  `json:"pending"`
	Submitted int  `json:"submitted"`
	Succeeded int  `json:"succeeded"`
	Failed    int  `json:"failed"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// Status aggregates runtime information.
type Status struct {
	PID            int                `json:"pid"`
	DatabasePath   string             `json:"database_path"`
	SessionsDir    string             `json:"sessions_dir"`
	Executor       ExecutorStatus     `json:"executor"`
	Jobs           map[string]int     `json:"jobs"`
	ActiveSessions int                `json:"active_sessions"`
	Dependencies   []DependencyStatus `json:"dependencies"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
