package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	analysis "github.com/ghostnote/ghost-note/backend/internal/analysis/analytics"
	"github.com/ghostnote/ghost-note/backend/internal/model/user"
)

var ErrUserNotFound = errors.New("user not found")

// Service builds analytics reports over a user's stored messages.
type Service struct {
	store    user.Store
	analyzer *analysis.Analyzer
	tracer   trace.Tracer
	requests metric.Int64Counter
}

// NewService creates the analytics service. Buckets are computed in loc.
func NewService(store user.Store, loc *time.Location) *Service {
	requests, err := otel.Meter("ghost-note/analytics").Int64Counter("analytics.requests",
		metric.WithDescription("Analytics reports generated"))
	if err != nil {
		logrus.Warnf("[analytics] counter unavailable: %v", err)
	}

	return &Service{
		store:    store,
		analyzer: analysis.New(analysis.WithLocation(loc)),
		tracer:   otel.Tracer("ghost-note/analytics"),
		requests: requests,
	}
}

// Generate loads every message of userID and aggregates them into a report.
func (s *Service) Generate(ctx context.Context, userID string) (analysis.Report, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.generate")
	defer span.End()

	if s.requests != nil {
		s.requests.Add(ctx, 1)
	}

	msgs, err := s.store.Messages(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load messages")
		if errors.Is(err, user.ErrNotFound) {
			return analysis.Report{}, ErrUserNotFound
		}
		return analysis.Report{}, fmt.Errorf("load messages: %w", err)
	}
	span.SetAttributes(attribute.Int("messages.count", len(msgs)))

	report := s.analyzer.Analyze(msgs)
	logrus.Debugf("[analytics] report for user=%s messages=%d overall=%s", userID, len(msgs), report.Sentiment.Overall)
	return report, nil
}
