// Package api provides the HTTP persistence service and the gRPC rule-tree
// facade for QueryKeeper.
package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/solatis/querykeeper/internal/core/auth"
	"github.com/solatis/querykeeper/internal/core/db"
	"github.com/solatis/querykeeper/internal/registry"
	"github.com/solatis/querykeeper/internal/rules"
	"github.com/solatis/querykeeper/internal/types"
	"go.uber.org/zap"
)

// DocumentStore is the storage the service needs. Implemented by *db.Store.
type DocumentStore interface {
	Save(ctx context.Context, tree *types.RuleGroup) (db.DocumentRecord, error)
	Latest(ctx context.Context) (db.DocumentRecord, error)
	Get(ctx context.Context, id types.DocumentID) (db.DocumentRecord, error)
	List(ctx context.Context, limit int) ([]db.DocumentSummary, error)
}

// Pinger reports storage reachability for health checks. *sqlx.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service holds the dependencies shared by the HTTP handlers and the gRPC
// facade. Handlers are thin: decode, delegate to rules or the store, encode.
type Service struct {
	store    DocumentStore
	pinger   Pinger
	registry *registry.Registry
	engine   *rules.Engine
	auth     *auth.Authenticator
	auditDir string
	logger   *zap.Logger

	jsonlMutexes map[string]*sync.Mutex
	mutexLock    sync.Mutex
}

// Config carries Service dependencies. Authenticator and Pinger may be nil.
type Config struct {
	Store         DocumentStore
	Pinger        Pinger
	Registry      *registry.Registry
	Authenticator *auth.Authenticator
	DataDir       string
	Logger        *zap.Logger
}

// NewService creates the service and its audit directory.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data dir cannot be empty")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	auditDir := filepath.Join(cfg.DataDir, "queries")
	if err := os.MkdirAll(auditDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit dir: %w", err)
	}

	return &Service{
		store:        cfg.Store,
		pinger:       cfg.Pinger,
		registry:     cfg.Registry,
		engine:       rules.NewEngine(cfg.Registry),
		auth:         cfg.Authenticator,
		auditDir:     auditDir,
		logger:       logger,
		jsonlMutexes: make(map[string]*sync.Mutex),
	}, nil
}

// getJSONLMutex returns the mutex guarding one daily audit file.
// The map grows by one entry per day.
func (s *Service) getJSONLMutex(filename string) *sync.Mutex {
	s.mutexLock.Lock()
	defer s.mutexLock.Unlock()

	if _, ok := s.jsonlMutexes[filename]; !ok {
		s.jsonlMutexes[filename] = &sync.Mutex{}
	}
	return s.jsonlMutexes[filename]
}
