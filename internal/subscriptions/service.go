package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tiffinloop/internal/domain"
	"tiffinloop/internal/fulfillment"
)

var (
	ErrNotActive = errors.New("subscription is not active")
	ErrCancelled = errors.New("subscription is cancelled")
	ErrPaused    = errors.New("subscription is paused, resume it instead")
	ErrNotPaused = errors.New("subscription is not paused")
	ErrBadRange  = errors.New("end date must be after start date")
)

type SubscriptionRepository interface {
	CreateSubscription(ctx context.Context, sub *domain.Subscription) error
	GetSubscription(ctx context.Context, id int) (*domain.Subscription, error)
	UpdateSubscriptionStatus(ctx context.Context, id int, status domain.SubscriptionStatus, autoRenew bool) error
}

// Mailer is the fully external email collaborator. Calls are fire-and-forget:
// failures are logged and never propagate.
type Mailer interface {
	Send(ctx context.Context, userID int, subject, body string) error
}

type ServiceInterface interface {
	Create(ctx context.Context, sub *domain.Subscription) error
	Get(ctx context.Context, id int) (*domain.Subscription, error)
	Activate(ctx context.Context, id int, paymentRef string) (fulfillment.Result, error)
	Pause(ctx context.Context, id int) error
	Resume(ctx context.Context, id int) error
	Cancel(ctx context.Context, id int) error
	Regenerate(ctx context.Context, id int) (fulfillment.Result, error)
}

// Service is the subscription state machine: pending -> active on payment
// confirmation, active <-> paused, any non-terminal -> cancelled.
// Cancellation is terminal and disables auto-renew.
type Service struct {
	repo      SubscriptionRepository
	generator fulfillment.GeneratorInterface
	mailer    Mailer
}

func NewService(repo SubscriptionRepository, generator fulfillment.GeneratorInterface, mailer Mailer) *Service {
	return &Service{repo: repo, generator: generator, mailer: mailer}
}

func (s *Service) Create(ctx context.Context, sub *domain.Subscription) error {
	if !sub.EndDate.After(sub.StartDate) {
		return ErrBadRange
	}
	sub.Status = domain.SubscriptionPending
	return s.repo.CreateSubscription(ctx, sub)
}

func (s *Service) Get(ctx context.Context, id int) (*domain.Subscription, error) {
	return s.repo.GetSubscription(ctx, id)
}

// Activate confirms payment and expands the subscription into orders. The
// generation result is returned so operators can see partial failures.
// Paused subscriptions come back through Resume, not a fresh payment.
func (s *Service) Activate(ctx context.Context, id int, paymentRef string) (fulfillment.Result, error) {
	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return fulfillment.Result{}, err
	}
	if sub.Status == domain.SubscriptionCancelled {
		return fulfillment.Result{}, ErrCancelled
	}
	if sub.Status == domain.SubscriptionPaused {
		return fulfillment.Result{}, ErrPaused
	}

	sub.Status = domain.SubscriptionActive
	sub.PaymentRef = paymentRef
	if err := s.repo.UpdateSubscriptionStatus(ctx, id, domain.SubscriptionActive, sub.AutoRenew); err != nil {
		return fulfillment.Result{}, err
	}

	result := s.generator.Generate(ctx, sub)
	s.sendMail(id, sub.CustomerID, "Your meal plan is active",
		fmt.Sprintf("Your subscription starts on %s. %d deliveries are scheduled.",
			sub.StartDate.Format("2006-01-02"), result.Created))
	return result, nil
}

func (s *Service) Pause(ctx context.Context, id int) error {
	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return err
	}
	if sub.Status != domain.SubscriptionActive {
		return ErrNotActive
	}
	return s.repo.UpdateSubscriptionStatus(ctx, id, domain.SubscriptionPaused, sub.AutoRenew)
}

func (s *Service) Resume(ctx context.Context, id int) error {
	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return err
	}
	if sub.Status != domain.SubscriptionPaused {
		return ErrNotPaused
	}
	return s.repo.UpdateSubscriptionStatus(ctx, id, domain.SubscriptionActive, sub.AutoRenew)
}

func (s *Service) Cancel(ctx context.Context, id int) error {
	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return err
	}
	if sub.Status == domain.SubscriptionCancelled {
		return ErrCancelled
	}
	return s.repo.UpdateSubscriptionStatus(ctx, id, domain.SubscriptionCancelled, false)
}

// Regenerate re-runs order generation for operational recovery.
func (s *Service) Regenerate(ctx context.Context, id int) (fulfillment.Result, error) {
	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return fulfillment.Result{}, err
	}
	if sub.Status != domain.SubscriptionActive {
		return fulfillment.Result{}, ErrNotActive
	}
	return s.generator.Regenerate(ctx, sub), nil
}

// sendMail submits the confirmation email on a detached goroutine so a slow
// or failing mail collaborator can never block or fail the caller.
func (s *Service) sendMail(subID, userID int, subject, body string) {
	if s.mailer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.mailer.Send(ctx, userID, subject, body); err != nil {
			log.Printf("[subscriptions] confirmation mail for subscription %d: %v", subID, err)
		}
	}()
}

var _ ServiceInterface = (*Service)(nil)
