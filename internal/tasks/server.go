package tasks

import (
	"context"
	"fmt"

	"supchat/internal/config"
	"supchat/internal/utils/logger"

	"github.com/hibiken/asynq"
)

// Server handles task processing
type Server struct {
	server      *asynq.Server
	handler     *TaskHandler
	logger      *logger.Logger
	concurrency int
}

// NewServer creates a new task processing server
func NewServer(cfg *config.Config, handler *TaskHandler, logger *logger.Logger) *Server {
	concurrency := cfg.Worker.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: concurrency,
			// Optionally specify multiple queues with different priorities
			Queues: map[string]int{
				QueueCritical: 6, // High priority
				QueueDefault:  3, // Medium priority
				QueueLow:      1, // Low priority
			},
			// Enable strict priority, meaning higher priority queues are processed first
			StrictPriority: true,
		},
	)

	return &Server{
		server:      server,
		handler:     handler,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Start starts the task processing server
func (s *Server) Start(ctx context.Context) error {
	mux := asynq.NewServeMux()

	// Register task handlers
	mux.HandleFunc(TaskTypeInviteSweep, s.handler.HandleInviteSweep)
	mux.HandleFunc(TaskTypePermissionChanged, s.handler.HandlePermissionChanged)
	mux.HandleFunc(TaskTypeMembershipChanged, s.handler.HandleMembershipChanged)

	s.logger.Info("starting task processing server concurrency %d queues %v", s.concurrency, map[string]int{
		QueueCritical: 6,
		QueueDefault:  3,
		QueueLow:      1,
	})

	if err := s.server.Start(mux); err != nil {
		return fmt.Errorf("failed to start task server: %w", err)
	}

	return nil
}

// Stop stops the task processing server
func (s *Server) Stop() {
	s.server.Stop()
	s.logger.Info("task processing server stopped")
}

// Shutdown gracefully shuts down the task processing server
func (s *Server) Shutdown() {
	s.logger.Info("shutting down task processing server")
	s.server.Shutdown()
}
