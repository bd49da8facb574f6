package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinicops/booking-platform/internal/idempotency"
	"github.com/clinicops/booking-platform/internal/observability/metrics"
	"github.com/clinicops/booking-platform/internal/tenancy"
	"github.com/clinicops/booking-platform/pkg/logging"
)

// DefaultDailyCap is the maximum sends per clinic + type + channel +
// recipient per clinic-local day.
const DefaultDailyCap = 3

// StatusCapped is a result-only status: capped attempts are refused
// before a record is written, so it never appears in the store.
const StatusCapped Status = "CAPPED"

// capWindow keeps the counter key alive past its local day so a late
// retry still sees the day's count; the key embeds the date, so a stale
// key can never leak into the next day.
const capWindow = 48 * time.Hour

// ErrSendInProgress signals that the first attempt with this idempotency
// key is still running.
var ErrSendInProgress = errors.New("notify: send already in progress")

// SendRequest is one notification admission request.
type SendRequest struct {
	ClinicID       string
	Timezone       string // IANA name; the cap day is clinic-local
	IdempotencyKey string
	Type           Type
	Channel        Channel
	Recipient      string
	RecipientName  string
	Subject        string
	Body           string
}

// SendResult reports what the guard decided. Replayed marks a result
// served from the idempotency ledger.
type SendResult struct {
	NotificationID string `json:"notificationId,omitempty"`
	Status         Status `json:"status"`
	Replayed       bool   `json:"replayed"`
}

// Deps are the guard's collaborators. Store, Ledger and Counter are
// required; senders may be nil for channels a deployment does not use.
type Deps struct {
	Store   *Store
	Ledger  *idempotency.Ledger
	Counter DailyCounter
	Email   EmailSender
	SMS     SMSSender
	Metrics *metrics.BookingMetrics
	Logger  *logging.Logger

	DailyCap int
	Now      func() time.Time
}

// Service is the notification admission guard: every outbound message
// passes through it so the daily cap, the idempotency ledger and the
// audit record are enforced in one place.
type Service struct {
	store   *Store
	ledger  *idempotency.Ledger
	counter DailyCounter
	email   EmailSender
	sms     SMSSender
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
	cap     int
	now     func() time.Time
	tracer  trace.Tracer
}

// NewService wires the guard.
func NewService(deps Deps) *Service {
	if deps.Store == nil {
		panic("notify: store required")
	}
	if deps.Ledger == nil {
		panic("notify: idempotency ledger required")
	}
	if deps.Counter == nil {
		panic("notify: daily counter required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.DailyCap <= 0 {
		deps.DailyCap = DefaultDailyCap
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		store:   deps.Store,
		ledger:  deps.Ledger,
		counter: deps.Counter,
		email:   deps.Email,
		sms:     deps.SMS,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		cap:     deps.DailyCap,
		now:     deps.Now,
		tracer:  otel.Tracer("notify"),
	}
}

// Send admits and delivers one notification.
//
// A replayed idempotency key returns the stored result without touching
// the counter or the provider. A capped attempt is refused with a
// CapError and writes no record. A provider failure writes a FAILED
// record, which is terminal: the same key replays the failure rather
// than retrying delivery.
func (s *Service) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	ctx, span := s.tracer.Start(ctx, "notify.Send",
		trace.WithAttributes(
			attribute.String("notify.type", string(req.Type)),
			attribute.String("notify.channel", string(req.Channel)),
		))
	defer span.End()

	if req.Recipient == "" {
		return nil, ErrInvalidRecipient
	}
	if req.ClinicID == "" {
		// Fall back to the tenant bound upstream on the request context.
		if id, ok := tenancy.ClinicIDFromContext(ctx); ok {
			req.ClinicID = id
		} else {
			return nil, fmt.Errorf("notify: clinic id required")
		}
	}

	if req.IdempotencyKey != "" {
		res := s.ledger.Reserve(req.IdempotencyKey, 0)
		switch res.Outcome {
		case idempotency.OutcomeReplay:
			if stored, ok := res.Response.(*SendResult); ok {
				replay := *stored
				replay.Replayed = true
				return &replay, nil
			}
			return nil, ErrSendInProgress
		case idempotency.OutcomeInProgress:
			return nil, ErrSendInProgress
		}
	}

	result, err := s.admit(ctx, req)
	if req.IdempotencyKey != "" {
		if result != nil {
			// Capped and failed outcomes are terminal for this key too.
			s.ledger.Complete(req.IdempotencyKey, result, 0)
		} else {
			s.ledger.Release(req.IdempotencyKey)
		}
	}
	return result, err
}

func (s *Service) admit(ctx context.Context, req SendRequest) (*SendResult, error) {
	localDay := s.localDay(req.Timezone)
	capKey := fmt.Sprintf("notify:daily:%s:%s:%s:%s:%s",
		req.ClinicID, req.Type, req.Channel, req.Recipient, localDay)

	count, err := s.counter.Increment(ctx, capKey, capWindow)
	if err != nil {
		// Fail open: a counter outage must not silence confirmations.
		s.logger.Error("notification cap check failed", "error", err, "key", capKey)
		count = 1
	}
	if count > s.cap {
		s.metrics.ObserveNotification(string(req.Channel), "capped")
		s.logger.WithClinic(req.ClinicID).Warn("notification daily cap reached",
			"type", req.Type, "channel", req.Channel, "count", count, "cap", s.cap)
		return &SendResult{Status: StatusCapped}, &CapError{Cap: s.cap, Count: count - 1, ResetAt: localDay}
	}

	sendErr := s.deliver(ctx, req)

	n := Notification{
		ClinicID:  req.ClinicID,
		Type:      req.Type,
		Channel:   req.Channel,
		Recipient: req.Recipient,
		Subject:   req.Subject,
		Body:      req.Body,
		Status:    StatusSent,
	}
	if sendErr != nil {
		n.Status = StatusFailed
		n.Error = sendErr.Error()
	}

	stored, err := s.store.Record(ctx, n)
	if err != nil {
		return nil, err
	}

	if sendErr != nil {
		s.metrics.ObserveNotification(string(req.Channel), "failed")
		s.logger.WithClinic(req.ClinicID).Error("notification delivery failed",
			"notification_id", stored.ID, "channel", req.Channel, "error", sendErr)
		return &SendResult{NotificationID: stored.ID, Status: StatusFailed},
			fmt.Errorf("notify: deliver: %w", sendErr)
	}

	s.metrics.ObserveNotification(string(req.Channel), "sent")
	s.logger.WithClinic(req.ClinicID).Info("notification sent",
		"notification_id", stored.ID, "type", req.Type, "channel", req.Channel)
	return &SendResult{NotificationID: stored.ID, Status: StatusSent}, nil
}

func (s *Service) deliver(ctx context.Context, req SendRequest) error {
	switch req.Channel {
	case ChannelEmail:
		if s.email == nil {
			return fmt.Errorf("notify: email channel not configured")
		}
		return s.email.Send(ctx, EmailMessage{
			To:      req.Recipient,
			ToName:  req.RecipientName,
			Subject: req.Subject,
			Body:    req.Body,
		})
	case ChannelSMS:
		if s.sms == nil {
			return fmt.Errorf("notify: sms channel not configured")
		}
		return s.sms.SendSMS(ctx, req.Recipient, req.Body)
	default:
		return fmt.Errorf("notify: unknown channel %q", req.Channel)
	}
}

func (s *Service) localDay(timezone string) string {
	loc := time.UTC
	if timezone != "" {
		if l, err := time.LoadLocation(timezone); err == nil {
			loc = l
		}
	}
	return s.now().In(loc).Format("2006-01-02")
}
