package event

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/ecommerce-discovery/internal/domain"
	pkgkafka "github.com/utafrali/ecommerce-discovery/pkg/kafka"
	"github.com/utafrali/ecommerce-discovery/pkg/logger"
)

// TopicSearchPerformed carries search analytics.
var TopicSearchPerformed = pkgkafka.Topic("search", "performed")

const (
	publishTimeout = 5 * time.Second
	// maxInFlight caps concurrent publishes; events beyond it are dropped.
	maxInFlight = 64
)

var searchEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "discovery_search_events_dropped_total",
	Help: "Total number of search.performed events dropped because too many publishes were in flight",
})

type eventPublisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// SearchPublisher emits search.performed events in the background. Failures
// are logged and never reach the search caller. At most maxInFlight publishes
// run at once; a stalled broker sheds events instead of piling up goroutines.
type SearchPublisher struct {
	producer eventPublisher
	source   string
	logger   *slog.Logger
	slots    chan struct{}
	wg       sync.WaitGroup
}

// NewSearchPublisher creates a SearchPublisher on top of a Kafka producer.
func NewSearchPublisher(producer eventPublisher, source string, logger *slog.Logger) *SearchPublisher {
	return newSearchPublisher(producer, source, logger, maxInFlight)
}

func newSearchPublisher(producer eventPublisher, source string, logger *slog.Logger, inFlight int) *SearchPublisher {
	return &SearchPublisher{
		producer: producer,
		source:   source,
		logger:   logger,
		slots:    make(chan struct{}, inFlight),
	}
}

// RecordSearch publishes s asynchronously. The request context is only used
// for its values so the event survives the response being written.
func (p *SearchPublisher) RecordSearch(ctx context.Context, s domain.SearchPerformed) {
	event, err := pkgkafka.NewEvent(TopicSearchPerformed, s.StoreID, "search", p.source, s)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to build search event", slog.String("error", err.Error()))
		return
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	select {
	case p.slots <- struct{}{}:
	default:
		searchEventsDropped.Inc()
		p.logger.WarnContext(ctx, "search event dropped, too many publishes in flight",
			slog.String("mode", s.Mode),
		)
		return
	}

	bg := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.slots
			p.wg.Done()
		}()
		pubCtx, cancel := context.WithTimeout(bg, publishTimeout)
		defer cancel()

		if err := p.producer.Publish(pubCtx, TopicSearchPerformed, event); err != nil {
			logger.WithContext(bg, p.logger).WarnContext(bg, "failed to publish search event",
				slog.String("error", err.Error()),
				slog.String("mode", s.Mode),
			)
		}
	}()
}

// Wait blocks until every in-flight publish has finished.
func (p *SearchPublisher) Wait() {
	p.wg.Wait()
}

// NoopRecorder discards search events.
type NoopRecorder struct{}

func (NoopRecorder) RecordSearch(context.Context, domain.SearchPerformed) {}
