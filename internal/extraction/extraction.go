// Package extraction reads a receipt photo or PDF into a draft Receipt using a
// multimodal model, with retries, scale heuristics and typed failures.
package extraction

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"github.com/annafiu/twabillsplitter/internal/metrics"
	"github.com/annafiu/twabillsplitter/internal/models"
	"github.com/annafiu/twabillsplitter/internal/normalize"
	"github.com/annafiu/twabillsplitter/internal/retry"
)

// SupportedTypes are the accepted upload MIME types.
var SupportedTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/heic":      true,
	"image/heif":      true,
	"application/pdf": true,
}

// sniffable types can be confirmed with http.DetectContentType.
var sniffable = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// ThresholdSource supplies the current heuristic thresholds.
type ThresholdSource interface {
	Thresholds() normalize.Thresholds
}

// StaticThresholds is a fixed ThresholdSource.
type StaticThresholds normalize.Thresholds

func (s StaticThresholds) Thresholds() normalize.Thresholds { return normalize.Thresholds(s) }

type Config struct {
	MaxUploadBytes int64
	// Timeout bounds one whole extraction, retries included.
	Timeout time.Duration
	// Retry is used as is except for Retryable, which is always IsRetryable.
	Retry retry.Policy
}

type Service struct {
	model      Model
	cfg        Config
	thresholds ThresholdSource
	metrics    *metrics.Registry
	group      singleflight.Group
}

func NewService(model Model, cfg Config, thresholds ThresholdSource, m *metrics.Registry) *Service {
	cfg.Retry.Retryable = IsRetryable
	if thresholds == nil {
		thresholds = StaticThresholds(normalize.DefaultThresholds())
	}
	return &Service{
		model:      model,
		cfg:        cfg,
		thresholds: thresholds,
		metrics:    m,
	}
}

// Digest returns the hex BLAKE2b-256 digest of an upload.
func Digest(image []byte) string {
	sum := blake2b.Sum256(image)
	return hex.EncodeToString(sum[:])
}

// Validate checks an upload before any model call and returns the effective
// MIME type. An empty mimeType is sniffed from the content.
func (s *Service) Validate(image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", &Error{Kind: KindInput, Err: ErrEmptyImage}
	}
	if s.cfg.MaxUploadBytes > 0 && int64(len(image)) > s.cfg.MaxUploadBytes {
		return "", &Error{Kind: KindInput, Err: fmt.Errorf("%w: %d > %d bytes", ErrImageTooLarge, len(image), s.cfg.MaxUploadBytes)}
	}

	sniffed := sniff(image)
	declared := canonicalType(mimeType)
	if declared == "" {
		if sniffed == "" {
			return "", &Error{Kind: KindInput, Err: ErrUnreadableImage}
		}
		declared = sniffed
	}
	if !SupportedTypes[declared] {
		return "", &Error{Kind: KindInput, Err: fmt.Errorf("%w: %s", ErrUnsupportedType, declared)}
	}
	if sniffable[declared] && sniffed != declared {
		return "", &Error{Kind: KindInput, Err: fmt.Errorf("%w: declared %s", ErrUnreadableImage, declared)}
	}
	return declared, nil
}

func canonicalType(mimeType string) string {
	if mimeType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(mimeType))
	}
	if mediaType == "image/jpg" {
		return "image/jpeg"
	}
	return mediaType
}

func sniff(image []byte) string {
	detected, _, _ := strings.Cut(http.DetectContentType(image), ";")
	if sniffable[detected] {
		return detected
	}
	return ""
}

// Extract reads a receipt from image. Every failure is an *Error.
// Concurrent calls with identical content share one model call.
func (s *Service) Extract(ctx context.Context, image []byte, mimeType string) (*models.Receipt, error) {
	mimeType, err := s.Validate(image, mimeType)
	if err != nil {
		s.metrics.ExtractionAttempts.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	key := Digest(image) + "|" + mimeType
	ch := s.group.DoChan(key, func() (any, error) {
		// Shared by every waiter, so it must not die with the first caller.
		callCtx := context.WithoutCancel(ctx)
		if s.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(callCtx, s.cfg.Timeout)
			defer cancel()
		}
		return s.extract(callCtx, image, mimeType)
	})

	select {
	case <-ctx.Done():
		return nil, &Error{Kind: KindUnavailable, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			slog.Debug("Extraction shared with concurrent upload", "digest", key[:16])
		}
		receipt := res.Val.(models.Receipt).Clone()
		return &receipt, nil
	}
}

func (s *Service) extract(ctx context.Context, image []byte, mimeType string) (models.Receipt, error) {
	start := time.Now()
	defer func() {
		s.metrics.ExtractionLatency.Observe(time.Since(start).Seconds())
	}()

	policy := s.cfg.Retry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		s.metrics.ExtractionRetries.Inc()
		slog.Warn("Extraction attempt failed, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
	}

	text, err := retry.Do(ctx, policy, func(ctx context.Context) (string, error) {
		return s.model.GenerateReceipt(ctx, image, mimeType)
	})
	if err != nil {
		extractionErr := classify(err)
		s.metrics.ExtractionAttempts.WithLabelValues(outcome(extractionErr.Kind)).Inc()
		slog.Error("Extraction failed", "kind", extractionErr.Kind, "error", err)
		return models.Receipt{}, extractionErr
	}

	draft, err := ParseReceipt(text)
	if err != nil {
		s.metrics.ExtractionAttempts.WithLabelValues(metrics.OutcomeMalformed).Inc()
		slog.Error("Extraction returned malformed receipt", "error", err)
		return models.Receipt{}, &Error{Kind: KindMalformed, Err: err}
	}

	receipt, corrections := normalize.Apply(draft, s.thresholds.Thresholds())
	for _, c := range corrections {
		s.metrics.ScaleCorrections.WithLabelValues(c.Rule).Inc()
		slog.Info("Draft corrected",
			"rule", c.Rule,
			"field", c.Field,
			"from", c.From,
			"to", c.To,
		)
	}
	for i := range receipt.Items {
		receipt.Items[i].ID = uuid.New().String()
	}

	s.metrics.ExtractionAttempts.WithLabelValues(metrics.OutcomeSuccess).Inc()
	slog.Info("Receipt extracted",
		"merchant", receipt.MerchantName,
		"items", len(receipt.Items),
		"corrections", len(corrections),
		"duration", time.Since(start),
	)
	return receipt, nil
}

func classify(err error) *Error {
	switch {
	case retry.IsExhausted(err),
		errors.Is(err, context.DeadlineExceeded),
		IsRetryable(err):
		return &Error{Kind: KindUnavailable, Err: err}
	case errors.Is(err, ErrEmptyResponse),
		errors.Is(err, ErrResponseBlocked),
		errors.Is(err, errUnexpectedFormat):
		return &Error{Kind: KindMalformed, Err: err}
	default:
		return &Error{Kind: KindUpstream, Err: err}
	}
}

func outcome(k Kind) string {
	switch k {
	case KindInput:
		return metrics.OutcomeInvalid
	case KindUnavailable:
		return metrics.OutcomeUnavailable
	case KindMalformed:
		return metrics.OutcomeMalformed
	default:
		return metrics.OutcomeFailed
	}
}
