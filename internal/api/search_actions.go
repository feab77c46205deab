package api

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"studyscribe/internal/retrieval"
	"studyscribe/internal/services"
)

// Search ranks the chunks of every requested session against req.Query.
func (s *Service) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return SearchResponse{}, services.Wrap(services.ErrValidation, "search", "query is required", nil)
	}
	results, missing, err := s.rank(ctx, req.Query, req.SessionDirs, req.TopK)
	if err != nil {
		return SearchResponse{}, err
	}
	return SearchResponse{Results: FromResults(results), Missing: missing}, nil
}

// Ask answers req.Question from the top ranked chunks of the requested sessions.
func (s *Service) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	if strings.TrimSpace(req.Question) == "" {
		return AskResponse{}, services.Wrap(services.ErrValidation, "ask", "question is required", nil)
	}
	if s.answerer == nil {
		return AskResponse{}, services.Wrap(services.ErrConfiguration, "ask",
			"Answer generation is not configured; set llm.api_key and llm.model", nil)
	}
	results, missing, err := s.rank(ctx, req.Question, req.SessionDirs, req.TopK)
	if err != nil {
		return AskResponse{}, err
	}
	answer, err := s.answerer.Ask(ctx, req.Question, results)
	if err != nil {
		return AskResponse{}, err
	}
	return AskResponse{Answer: answer, Missing: missing}, nil
}

// RebuildChunks discards and rebuilds the retrieval chunks of sessionDir.
func (s *Service) RebuildChunks(_ context.Context, sessionDir string) (RebuildResponse, error) {
	dir, err := s.resolveExisting(sessionDir)
	if err != nil {
		return RebuildResponse{}, err
	}
	chunks, err := retrieval.Rebuild(dir, s.retrievalParams())
	if err != nil {
		return RebuildResponse{}, err
	}
	return RebuildResponse{SessionDir: dir, Chunks: len(chunks)}, nil
}

func (s *Service) rank(ctx context.Context, query string, sessionDirs []string, topK int) ([]retrieval.Result, []string, error) {
	if len(sessionDirs) == 0 {
		return nil, nil, services.Wrap(services.ErrValidation, "search", "at least one session_dir is required", nil)
	}
	dirs := make([]string, 0, len(sessionDirs))
	for _, dir := range sessionDirs {
		resolved, err := s.resolveExisting(dir)
		if err != nil {
			return nil, nil, err
		}
		dirs = append(dirs, resolved)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	chunks, missing, err := retrieval.LoadSessions(dirs, s.retrievalParams())
	if err != nil {
		return nil, nil, err
	}
	if len(missing) == len(dirs) {
		return nil, missing, services.Wrap(services.ErrNotFound, "search",
			"No transcript found for the requested sessions", nil)
	}
	if topK <= 0 {
		topK = s.cfg.Retrieval.TopK
	}
	results := retrieval.Rank(query, chunks, retrieval.RankOptions{
		TopK:            topK,
		LengthNormalize: s.cfg.Retrieval.LengthNormalize,
	})
	return results, missing, nil
}

// resolveExisting accepts an absolute or relative path, or a bare session
// name under the sessions root.
func (s *Service) resolveExisting(sessionDir string) (string, error) {
	sessionDir = strings.TrimSpace(sessionDir)
	if sessionDir == "" {
		return "", services.Wrap(services.ErrValidation, "resolve session", "session_dir is required", nil)
	}
	if !filepath.IsAbs(sessionDir) && !strings.ContainsRune(sessionDir, filepath.Separator) {
		candidate := filepath.Join(s.cfg.SessionsDir(), sessionDir)
		if isDir(candidate) {
			return candidate, nil
		}
	}
	abs, err := filepath.Abs(sessionDir)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "resolve session", "session_dir is invalid", err)
	}
	if !isDir(abs) {
		return "", services.Wrap(services.ErrNotFound, "resolve session",
			fmt.Sprintf("session directory %s does not exist", abs), nil)
	}
	return abs, nil
}
