package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/partflow/internal/config"
	"github.com/JonMunkholm/partflow/internal/logging"
	"github.com/JonMunkholm/partflow/internal/metrics"
	"github.com/JonMunkholm/partflow/internal/notify"
	"github.com/JonMunkholm/partflow/internal/tabular"
)

// Options configures a Service. Zero values select the defaults below.
type Options struct {
	MaxFileSize    int64
	MaxConcurrent  int
	MaxWaitTime    time.Duration
	ImportTimeout  time.Duration
	UploadDir      string
	Encoding       string
	GroupColumn    *int
	PublishTimeout time.Duration
}

// Service defaults.
const (
	DefaultMaxFileSize    = 32 << 20
	DefaultImportTimeout  = 10 * time.Minute
	DefaultUploadDir      = "uploads"
	DefaultPublishTimeout = 2 * time.Second
)

// OptionsFromConfig maps application configuration onto service options.
func OptionsFromConfig(cfg *config.Config) Options {
	groupColumn := cfg.Upload.GroupColumn
	return Options{
		MaxFileSize:    cfg.Upload.MaxFileSize,
		MaxConcurrent:  cfg.Upload.MaxConcurrent,
		MaxWaitTime:    cfg.Upload.MaxWaitTime,
		ImportTimeout:  cfg.Upload.Timeout,
		UploadDir:      cfg.Upload.Dir,
		Encoding:       cfg.Upload.Encoding,
		GroupColumn:    &groupColumn,
		PublishTimeout: cfg.Notify.PublishTimeout,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	if o.ImportTimeout <= 0 {
		o.ImportTimeout = DefaultImportTimeout
	}
	if o.UploadDir == "" {
		o.UploadDir = DefaultUploadDir
	}
	if o.GroupColumn == nil || *o.GroupColumn < 0 {
		groupColumn := tabular.DefaultGroupColumn
		o.GroupColumn = &groupColumn
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = DefaultPublishTimeout
	}
	return o
}

// Service is the entry point for catalog imports, part creation and catalog queries.
type Service struct {
	store     Store
	publisher notify.Publisher
	limiter   *ImportLimiter
	opts      Options
	now       func() time.Time
}

// NewService creates a Service over store. A nil publisher logs notifications instead.
func NewService(store Store, publisher notify.Publisher, opts Options) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if publisher == nil {
		publisher = notify.LogPublisher{}
	}
	opts = opts.withDefaults()

	return &Service{
		store:     store,
		publisher: publisher,
		limiter:   NewImportLimiter(opts.MaxConcurrent, opts.MaxWaitTime),
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Store returns the underlying store.
func (s *Service) Store() Store { return s.store }

// ImportStatus reports how many import slots are in use.
func (s *Service) ImportStatus() LimiterStatus { return s.limiter.Status() }

// WaitForImports blocks until running imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error { return s.store.Ping(ctx) }

// notifyPartCreated publishes part_created once the part's transaction has committed.
// Failures are logged and counted; they never fail the caller.
func (s *Service) notifyPartCreated(ctx context.Context, user User, code string) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PublishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, notify.PartCreated(user.Name(), code)); err != nil {
		metrics.NotificationsFailed.Inc()
		logging.FromContext(ctx).Warn("publish part_created failed", "part_id", code, "error", err)
	}
}

func validateUser(u User) error {
	if u.Username == "" {
		return &ValidationError{Field: "user", Message: "acting user is required"}
	}
	return nil
}
