package sampler

import (
	"context"
	"time"

	"future-mirror/internal/imagegen"

	"github.com/rs/zerolog"
)

// Backend produces PNG bytes for one stage request.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req *imagegen.StageRequest) ([]byte, error)
}

// Server answers StageRunner calls with a single backend. Backend failures are
// reported in the result status, not as RPC errors.
type Server struct {
	backend Backend
	logger  zerolog.Logger
}

func NewServer(backend Backend, logger zerolog.Logger) *Server {
	return &Server{backend: backend, logger: logger}
}

func (s *Server) RunStage(ctx context.Context, req *imagegen.StageRequest) (*imagegen.StageResult, error) {
	start := time.Now()
	log := s.logger.With().
		Str("stage_id", req.StageID).
		Str("backend", s.backend.Name()).
		Str("model", req.Model).
		Logger()

	payload, err := s.backend.Generate(ctx, req)
	if err != nil {
		log.Warn().Err(err).Dur("took", time.Since(start)).Msg("stage failed")
		return &imagegen.StageResult{
			StageID:      req.StageID,
			Status:       imagegen.StatusFailed,
			ErrorMessage: err.Error(),
			Backend:      s.backend.Name(),
		}, nil
	}

	log.Info().Int("bytes", len(payload)).Dur("took", time.Since(start)).Msg("stage completed")
	return &imagegen.StageResult{
		StageID: req.StageID,
		Status:  imagegen.StatusCompleted,
		Backend: s.backend.Name(),
		Image:   payload,
	}, nil
}

func (s *Server) Health(context.Context) error {
	return nil
}

var _ imagegen.StageRunnerServer = (*Server)(nil)
