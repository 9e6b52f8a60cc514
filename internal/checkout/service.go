package checkout

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/safar/cod-checkout/internal/metrics"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Options tune the pipeline. Zero values fall back to three attempts with a
// 50ms step between them.
type Options struct {
	MaxAttempts  int
	RetryBackoff time.Duration
	// GuestUsers creates a GUEST user during confirmation when the order has
	// no owner. When false the address is stored without a user.
	GuestUsers bool
}

type Service struct {
	db      *sql.DB
	opts    Options
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(db *sql.DB, opts Options, log logrus.FieldLogger, m *metrics.Metrics) *Service {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 50 * time.Millisecond
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Service{
		db:      db,
		opts:    opts,
		log:     log.WithField("component", "checkout"),
		metrics: m,
		now:     time.Now,
	}
}

type CheckoutResult struct {
	OrderID uuid.UUID
	Total   decimal.Decimal
}

type ConfirmInput struct {
	OrderID  uuid.UUID
	FullName string
	Phone    string
	City     string
	Line1    string
	Postal   string
	UserID   *uuid.UUID
}

type ConfirmResult struct {
	OrderID uuid.UUID
	Status  string
	Total   decimal.Decimal
}

type FinalizeInput struct {
	OrderID uuid.UUID
	CartID  *uuid.UUID
}

type FinalizeResult struct {
	OrderID          uuid.UUID
	AlreadyFinalized bool
	Status           string
}

// finish logs and counts the outcome of a step and normalizes err to *Error.
func (s *Service) finish(step string, log logrus.FieldLogger, err error) error {
	if err == nil {
		s.metrics.ObserveStep(step, "ok")
		return nil
	}

	e := asError(err)
	s.metrics.ObserveStep(step, e.Kind.String())

	entry := log.WithField("kind", e.Kind.String())
	if e.Err != nil {
		entry = entry.WithError(e.Err)
	}
	switch e.Kind {
	case KindInternal:
		entry.Error(step + " failed")
	case KindConflict:
		entry.Warn(step + " rejected: " + e.Message)
	default:
		entry.Info(step + " rejected: " + e.Message)
	}

	return e
}

func isDomainError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
