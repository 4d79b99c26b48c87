package predict

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cognicore/cvclass/internal/logger"
	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
)

const tracerName = "github.com/cognicore/cvclass/pkg/cvclass/predict"

// Service answers prediction requests against the current Context. The
// Context can be replaced while requests are in flight; each request uses
// the Context it started with.
type Service struct {
	current atomic.Pointer[Context]
	logger  *zap.Logger
	tracer  trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewService creates a Service serving c.
func NewService(c *Context, opts ...Option) (*Service, error) {
	if c == nil {
		return nil, fmt.Errorf("predict service: nil context: %w", internalerr.ErrInvalidConfig)
	}
	s := &Service{logger: zap.NewNop(), tracer: otel.Tracer(tracerName)}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(c)
	return s, nil
}

// Current returns the Context new requests will use.
func (s *Service) Current() *Context { return s.current.Load() }

// Swap installs c for new requests and returns the previous Context.
func (s *Service) Swap(c *Context) (*Context, error) {
	if c == nil {
		return nil, fmt.Errorf("swap: nil context: %w", internalerr.ErrInvalidConfig)
	}
	old := s.current.Swap(c)
	s.logger.Info("artifact set swapped", zap.String("from", old.SetID()), zap.String("to", c.SetID()))
	return old, nil
}

// PredictTopN runs the inference chain on raw text and returns the n most
// likely categories. Text that normalizes to nothing still yields n
// entries; their confidences carry little information.
func (s *Service) PredictTopN(ctx context.Context, raw string, n int) ([]Ranked, error) {
	c := s.current.Load()
	reqID := uuid.NewString()
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "predict.top_n", trace.WithAttributes(
		attribute.String("cvclass.request_id", reqID),
		attribute.String("cvclass.set_id", c.SetID()),
		attribute.Int("cvclass.top_n", n),
	))
	defer span.End()

	ranked, err := s.predict(ctx, c, raw, n)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("prediction failed",
			zap.String("request_id", reqID),
			zap.String("set", c.SetID()),
			zap.Error(err))
		return nil, err
	}

	if ce := s.logger.Check(zap.DebugLevel, "prediction"); ce != nil {
		fields := []zap.Field{
			zap.String("request_id", reqID),
			zap.String("set", c.SetID()),
			zap.String("text", logger.TruncateForLog(raw, 80)),
			zap.Duration("elapsed", time.Since(start)),
		}
		if len(ranked) > 0 {
			fields = append(fields, zap.String("top", ranked[0].Category), zap.Float64("confidence", ranked[0].Confidence))
		}
		ce.Write(fields...)
	}
	return ranked, nil
}

func (s *Service) predict(ctx context.Context, c *Context, raw string, n int) ([]Ranked, error) {
	_, span := s.tracer.Start(ctx, "predict.normalize")
	normalized := c.Normalize(raw)
	span.SetAttributes(attribute.Int("cvclass.tokens", countTokens(normalized)))
	span.End()

	fctx, span := s.tracer.Start(ctx, "predict.features")
	row, err := c.Features(fctx, normalized)
	span.End()
	if err != nil {
		return nil, err
	}

	_, span = s.tracer.Start(ctx, "predict.model")
	defer span.End()
	probs, err := c.set.Model.PredictProbaOne(row)
	if err != nil {
		return nil, err
	}
	return Rank(probs, c.set.Model.Classes, c.set.Categories, n)
}

// Classify is PredictTopN in the serving form.
func (s *Service) Classify(ctx context.Context, raw string, n int) ([]Result, error) {
	ranked, err := s.PredictTopN(ctx, raw, n)
	if err != nil {
		return nil, err
	}
	return Format(ranked), nil
}

func countTokens(s string) int {
	if s == "" {
		return 0
	}
	n := 1
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			n++
		}
	}
	return n
}
