package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"aurorachat/internal/config"
	"aurorachat/internal/journal"
	"aurorachat/internal/logging"
	"aurorachat/internal/service/ai"
)

// Outcome classifies how a relay call ended.
type Outcome string

const (
	OutcomeReplied        Outcome = "replied"
	OutcomeEmpty          Outcome = "empty"
	OutcomeUpstreamStatus Outcome = "upstream_status"
	OutcomeUpstreamError  Outcome = "upstream_error"
)

// Result always carries a non-empty Reply.
type Result struct {
	Reply          string
	Outcome        Outcome
	UpstreamStatus int
}

// Service forwards one message per call to the configured provider and maps
// every failure to a fixed fallback reply.
type Service struct {
	provider       ai.Provider
	replies        config.RepliesConfig
	timeout        time.Duration
	journal        journal.Recorder
	journalTimeout time.Duration
	now            func() time.Time
}

// DefaultJournalTimeout bounds how long a reply waits on the journal.
const DefaultJournalTimeout = 2 * time.Second

type Option func(*Service)

// WithTimeout caps each upstream call. Zero means no cap.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

func WithJournal(rec journal.Recorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.journal = rec
		}
	}
}

// WithJournalTimeout bounds each journal write. Non-positive values keep the default.
func WithJournalTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.journalTimeout = d
		}
	}
}

func NewService(provider ai.Provider, replies config.RepliesConfig, opts ...Option) (*Service, error) {
	if provider == nil {
		return nil, errors.New("provider required")
	}
	if replies.Empty == "" || replies.Unreachable == "" || replies.UpstreamStatus == "" {
		return nil, errors.New("all fallback replies must be configured")
	}
	s := &Service{
		provider:       provider,
		replies:        replies,
		journal:        journal.Nop{},
		journalTimeout: DefaultJournalTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Reply forwards message and never fails; message is expected to be trimmed
// and non-empty.
func (s *Service) Reply(ctx context.Context, message string) Result {
	start := s.now()
	text, err := s.complete(ctx, message)
	res := s.classify(text, err)

	log := logging.WithCtx(ctx).With(
		zap.String("provider", s.provider.Name()),
		zap.String("model", s.provider.Model()),
		zap.String("outcome", string(res.Outcome)),
	)
	switch res.Outcome {
	case OutcomeReplied:
		log.Debug("bot reply", zap.Int("reply_len", len(res.Reply)))
	case OutcomeEmpty:
		log.Info("provider returned an empty completion")
	default:
		log.Warn("upstream call failed", zap.Int("status", res.UpstreamStatus), zap.Error(err))
	}

	ev := journal.Event{
		RequestID:      logging.RequestID(ctx),
		Provider:       s.provider.Name(),
		Model:          s.provider.Model(),
		Outcome:        string(res.Outcome),
		UpstreamStatus: res.UpstreamStatus,
		Latency:        s.now().Sub(start),
		CreatedAt:      start,
	}
	s.record(ctx, ev, log)
	return res
}

// record survives request cancellation but never holds the reply longer
// than journalTimeout.
func (s *Service) record(ctx context.Context, ev journal.Event, log *zap.Logger) {
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.journalTimeout)
	defer cancel()
	if err := s.journal.Record(jctx, ev); err != nil {
		log.Error("record relay event", zap.Error(err))
	}
}

func (s *Service) complete(ctx context.Context, message string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.provider.Complete(ctx, message)
}

func (s *Service) classify(text string, err error) Result {
	if err != nil {
		if se, ok := ai.AsStatusError(err); ok {
			return Result{Reply: s.replies.UpstreamStatus, Outcome: OutcomeUpstreamStatus, UpstreamStatus: se.Code}
		}
		return Result{Reply: s.replies.Unreachable, Outcome: OutcomeUpstreamError}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Reply: s.replies.Empty, Outcome: OutcomeEmpty}
	}
	return Result{Reply: text, Outcome: OutcomeReplied}
}
