package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/lei/build-notify/internal/config"
	"github.com/lei/build-notify/internal/delivery"
	"github.com/lei/build-notify/internal/formatter"
	"github.com/lei/build-notify/internal/models"
	"github.com/lei/build-notify/pkg/logger"
)

var (
	// ErrFormatterNotFound indicates the named formatter doesn't exist
	ErrFormatterNotFound = errors.New("formatter not found")

	// ErrWrongFormatterKind indicates the named formatter exists but
	// handles a different event kind
	ErrWrongFormatterKind = errors.New("formatter handles a different event kind")
)

// Event names attached to outgoing notifications
const (
	eventBuildFinished = "build-finished"
	eventWorkerMissing = "worker-missing"
)

// buildEntry is one configured build formatter with its reporting mode
type buildEntry struct {
	def       *config.Definition
	formatter *formatter.Formatter
}

// workerEntry is one configured missing-worker formatter
type workerEntry struct {
	def       *config.Definition
	formatter *formatter.MissingWorkerFormatter
}

// Service coordinates formatting and delivery between the API layer and
// the configured channels
type Service struct {
	master    *models.Master
	builds    map[string]*buildEntry
	workers   map[string]*workerEntry
	notifiers []delivery.Notifier
	logger    *logger.Logger
}

// NewService constructs all configured formatters up front so template
// configuration errors surface at startup, not at delivery time.
func NewService(master *models.Master, defs []*config.Definition, notifiers []delivery.Notifier, log *logger.Logger) (*Service, error) {
	s := &Service{
		master:    master,
		builds:    make(map[string]*buildEntry),
		workers:   make(map[string]*workerEntry),
		notifiers: notifiers,
		logger:    log,
	}

	for _, def := range defs {
		switch def.Kind {
		case config.KindMissingWorker:
			f, err := formatter.NewMissingWorker(def.Formatter)
			if err != nil {
				return nil, fmt.Errorf("formatter %s: %w", def.Name, err)
			}
			s.workers[def.Name] = &workerEntry{def: def, formatter: f}
		default:
			f, err := formatter.New(def.Formatter)
			if err != nil {
				return nil, fmt.Errorf("formatter %s: %w", def.Name, err)
			}
			s.builds[def.Name] = &buildEntry{def: def, formatter: f}
		}
	}

	return s, nil
}

// getLogger retrieves the request-scoped logger from context or falls
// back to the service logger
func (s *Service) getLogger(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// FormatterInfo describes one configured formatter for API introspection
type FormatterInfo struct {
	Name string   `json:"name"`
	Kind string   `json:"kind"`
	Mode []string `json:"mode,omitempty"`

	// Hints for callers deciding how much of a build record to populate
	// before posting an event
	WantProperties bool `json:"want_properties"`
	WantSteps      bool `json:"want_steps"`
	WantLogs       bool `json:"want_logs"`
}

// ListFormatters returns all configured formatters, sorted by name
func (s *Service) ListFormatters(ctx context.Context) []FormatterInfo {
	infos := make([]FormatterInfo, 0, len(s.builds)+len(s.workers))

	for name, entry := range s.builds {
		infos = append(infos, FormatterInfo{
			Name:           name,
			Kind:           config.KindBuild,
			Mode:           entry.def.Mode,
			WantProperties: entry.formatter.WantProperties(),
			WantSteps:      entry.formatter.WantSteps(),
			WantLogs:       entry.formatter.WantLogs(),
		})
	}
	for name, entry := range s.workers {
		infos = append(infos, FormatterInfo{
			Name: name,
			Kind: config.KindMissingWorker,
			Mode: entry.def.Mode,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// FormatBuild renders a build-finished message without delivering it
func (s *Service) FormatBuild(ctx context.Context, formatterName string, build *models.Build, blamelist []string) (*models.Message, error) {
	log := s.getLogger(ctx)

	entry, err := s.buildFormatter(formatterName)
	if err != nil {
		log.Debug("service: formatter lookup failed", "formatter", formatterName, "error", err)
		return nil, err
	}

	msg, err := entry.formatter.MessageForBuild(ctx, entry.def.Mode, build.Builder.Name, build, s.master, blamelist)
	if err != nil {
		log.Error("service: formatting failed",
			"formatter", formatterName,
			"builder", build.Builder.Name,
			"error", err)
		return nil, fmt.Errorf("format build message: %w", err)
	}

	return msg, nil
}

// NotifyBuild renders a build-finished message and fans it out to every
// configured channel. Per-channel failures are aggregated; a failure on
// one channel does not stop delivery to the others.
func (s *Service) NotifyBuild(ctx context.Context, formatterName string, build *models.Build, blamelist []string) (*delivery.Notification, error) {
	log := s.getLogger(ctx)

	msg, err := s.FormatBuild(ctx, formatterName, build, blamelist)
	if err != nil {
		return nil, err
	}

	n := &delivery.Notification{
		ID:      uuid.NewString(),
		Event:   eventBuildFinished,
		Builder: build.Builder.Name,
		Message: msg,
	}

	log.Info("service: build notification formatted",
		"formatter", formatterName,
		"builder", build.Builder.Name,
		"results", build.Results.String(),
		"notification_id", n.ID)

	return n, s.deliver(ctx, n)
}

// NotifyMissingWorker renders a worker-missing message and fans it out
// to every configured channel
func (s *Service) NotifyMissingWorker(ctx context.Context, formatterName string, worker *models.Worker) (*delivery.Notification, error) {
	log := s.getLogger(ctx)

	entry, ok := s.workers[formatterName]
	if !ok {
		if _, isBuild := s.builds[formatterName]; isBuild {
			return nil, ErrWrongFormatterKind
		}
		return nil, ErrFormatterNotFound
	}

	msg, err := entry.formatter.MessageForMissingWorker(ctx, s.master, worker)
	if err != nil {
		log.Error("service: formatting failed",
			"formatter", formatterName,
			"worker", worker.Name,
			"error", err)
		return nil, fmt.Errorf("format missing-worker message: %w", err)
	}

	n := &delivery.Notification{
		ID:      uuid.NewString(),
		Event:   eventWorkerMissing,
		Worker:  worker.Name,
		Message: msg,
	}

	log.Info("service: worker notification formatted",
		"formatter", formatterName,
		"worker", worker.Name,
		"notification_id", n.ID)

	return n, s.deliver(ctx, n)
}

func (s *Service) buildFormatter(name string) (*buildEntry, error) {
	entry, ok := s.builds[name]
	if !ok {
		if _, isWorker := s.workers[name]; isWorker {
			return nil, ErrWrongFormatterKind
		}
		return nil, ErrFormatterNotFound
	}
	return entry, nil
}

// deliver fans the notification out to all channels, collecting every
// failure rather than stopping at the first
func (s *Service) deliver(ctx context.Context, n *delivery.Notification) error {
	log := s.getLogger(ctx)

	if len(s.notifiers) == 0 {
		log.Warn("service: no delivery channels configured, notification dropped",
			"notification_id", n.ID)
		return nil
	}

	var errs error
	for _, notifier := range s.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			log.Error("service: delivery failed",
				"channel", notifier.Name(),
				"notification_id", n.ID,
				"error", err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
			continue
		}

		log.Info("service: notification delivered",
			"channel", notifier.Name(),
			"notification_id", n.ID)
	}

	return errs
}
