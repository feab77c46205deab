package retrieval

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"studyscribe/internal/fileutil"
	"studyscribe/internal/services"
	"studyscribe/internal/transcript"
)

const (
	// ChunksFile holds the derived chunks for a session.
	ChunksFile = "chunks.json"
	// MetaFile records what ChunksFile was built from.
	MetaFile = "chunks.meta.json"
)

type chunkMeta struct {
	SourceSHA256 string `json:"source_sha256"`
	TargetChars  int    `json:"target_chars"`
	OverlapChars int    `json:"overlap_chars"`
	ChunkCount   int    `json:"chunk_count"`
}

// ChunksPath returns the chunks.json location inside sessionDir.
func ChunksPath(sessionDir string) string {
	return filepath.Join(sessionDir, ChunksFile)
}

func metaPath(sessionDir string) string {
	return filepath.Join(sessionDir, MetaFile)
}

// EnsureChunks returns the chunks for sessionDir, rebuilding them from
// transcript.json when the cached artifact is missing, unreadable, or was
// built from a different transcript or different sizes. The boolean reports
// whether a rebuild happened.
func EnsureChunks(sessionDir string, params Params) ([]Chunk, bool, error) {
	params = params.normalized()
	source, err := os.ReadFile(transcript.JSONPath(sessionDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, services.Wrap(services.ErrNotFound, "ensure chunks",
				fmt.Sprintf("no transcript found in %s", sessionDir), err)
		}
		return nil, false, services.Wrap(services.ErrStorageFailure, "ensure chunks", "", err)
	}
	digest := fileutil.SHA256Hex(source)

	if chunks, ok := loadCached(sessionDir, digest, params); ok {
		return chunks, false, nil
	}

	var segments []transcript.Segment
	if err := json.Unmarshal(source, &segments); err != nil {
		return nil, false, services.Wrap(services.ErrStorageFailure, "ensure chunks", "transcript.json is corrupt", err)
	}
	chunks := BuildChunks(segments, params)
	if err := fileutil.WriteJSONAtomic(ChunksPath(sessionDir), chunks); err != nil {
		return nil, false, services.Wrap(services.ErrStorageFailure, "ensure chunks", "", err)
	}
	meta := chunkMeta{
		SourceSHA256: digest,
		TargetChars:  params.TargetChars,
		OverlapChars: params.OverlapChars,
		ChunkCount:   len(chunks),
	}
	if err := fileutil.WriteJSONAtomic(metaPath(sessionDir), meta); err != nil {
		return nil, false, services.Wrap(services.ErrStorageFailure, "ensure chunks", "", err)
	}
	return chunks, true, nil
}

// Rebuild discards any cached chunks for sessionDir and builds them again.
func Rebuild(sessionDir string, params Params) ([]Chunk, error) {
	if err := os.Remove(metaPath(sessionDir)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, services.Wrap(services.ErrStorageFailure, "rebuild chunks", "", err)
	}
	chunks, _, err := EnsureChunks(sessionDir, params)
	return chunks, err
}

func loadCached(sessionDir, digest string, params Params) ([]Chunk, bool) {
	rawMeta, err := os.ReadFile(metaPath(sessionDir))
	if err != nil {
		return nil, false
	}
	var meta chunkMeta
	if err := json.Unmarshal(rawMeta, &meta); err != nil {
		return nil, false
	}
	if meta.SourceSHA256 != digest || meta.TargetChars != params.TargetChars || meta.OverlapChars != params.OverlapChars {
		return nil, false
	}
	rawChunks, err := os.ReadFile(ChunksPath(sessionDir))
	if err != nil {
		return nil, false
	}
	var chunks []Chunk
	if err := json.Unmarshal(rawChunks, &chunks); err != nil || len(chunks) != meta.ChunkCount {
		return nil, false
	}
	return chunks, true
}

// LoadSessions ensures chunks for every session directory and returns them
// tagged with their session. Sessions without a transcript are skipped and
// reported in the second return value.
func LoadSessions(sessionDirs []string, params Params) ([]Chunk, []string, error) {
	var (
		all     []Chunk
		missing []string
	)
	for _, dir := range sessionDirs {
		chunks, _, err := EnsureChunks(dir, params)
		if errors.Is(err, services.ErrNotFound) {
			missing = append(missing, dir)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		for i := range chunks {
			chunks[i].Session = dir
		}
		all = append(all, chunks...)
	}
	return all, missing, nil
}
