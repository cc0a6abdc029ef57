package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"aurum/internal/events"
	"aurum/internal/models"
	"aurum/internal/repositories"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/checkout/session"
	"github.com/stripe/stripe-go/v72/customer"
	"github.com/stripe/stripe-go/v72/webhook"
)

type Service interface {
	// CreateCheckoutSession starts a subscription checkout for the
	// identity on the given plan.
	CreateCheckoutSession(ctx context.Context, identity *models.Identity, planCode string) (*CheckoutSession, error)

	// HandleWebhook verifies and applies one processor event. Redelivered
	// events are detected by their id and applied at most once.
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error)

	// ListPlans returns the subscription catalog.
	ListPlans() ([]*models.SubscriptionPlan, error)

	// SeedPlans upserts the catalog rows, keyed by plan code.
	SeedPlans(plans []models.SubscriptionPlan) error
}

type service struct {
	cfg        Config
	identities repositories.IdentityRepository
	payments   repositories.PaymentRepository
	plans      repositories.PlanRepository
	publisher  events.Publisher
	metrics    MetricsCollector
}

// NewService creates the billing adapter and installs the processor key.
func NewService(
	cfg Config,
	identities repositories.IdentityRepository,
	payments repositories.PaymentRepository,
	plans repositories.PlanRepository,
	publisher events.Publisher,
	metrics MetricsCollector,
) Service {
	stripe.Key = cfg.SecretKey
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	return &service{
		cfg:        cfg,
		identities: identities,
		payments:   payments,
		plans:      plans,
		publisher:  publisher,
		metrics:    metrics,
	}
}

func (s *service) CreateCheckoutSession(ctx context.Context, identity *models.Identity, planCode string) (*CheckoutSession, error) {
	plan, err := s.plans.GetByCode(planCode)
	if err != nil {
		if errors.Is(err, repositories.ErrPlanNotFound) {
			return nil, ErrUnknownPlan
		}
		return nil, fmt.Errorf("loading plan: %w", err)
	}

	customerID, err := s.ensureCustomer(identity)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(customerID),
		ClientReferenceID: stripe.String(strconv.FormatUint(uint64(identity.ID), 10)),
		SuccessURL:        stripe.String(s.cfg.SuccessURL),
		CancelURL:         stripe.String(s.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(plan.StripePriceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	sess, err := session.New(params)
	if err != nil {
		log.Printf("Checkout session creation failed for identity %d: %v", identity.ID, err)
		return nil, ErrCheckoutUnavailable
	}

	return &CheckoutSession{SessionID: sess.ID, URL: sess.URL}, nil
}

// ensureCustomer returns the identity's processor customer id, creating
// the customer on first use.
func (s *service) ensureCustomer(identity *models.Identity) (string, error) {
	if identity.StripeCustomerID != "" {
		return identity.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{}
	if identity.Email != nil {
		params.Email = stripe.String(*identity.Email)
	}
	params.AddMetadata("identity_id", strconv.FormatUint(uint64(identity.ID), 10))

	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("creating billing customer: %w", err)
	}

	if err := s.identities.UpdateStripeCustomer(identity.ID, cust.ID); err != nil {
		return "", fmt.Errorf("storing billing customer id: %w", err)
	}
	identity.StripeCustomerID = cust.ID
	return cust.ID, nil
}

func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.cfg.WebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnverifiedSignature, err)
	}
	s.metrics.WebhookEvent(event.Type)

	result := &WebhookResult{
		EventID:     event.ID,
		EventType:   event.Type,
		ProcessedAt: time.Now().UTC(),
	}

	switch event.Type {
	case "checkout.session.completed":
		err = s.applyCheckoutCompleted(ctx, &event, result)
	case "invoice.paid":
		err = s.applyInvoice(ctx, &event, result, models.PaymentStatusPaid)
	case "invoice.payment_failed":
		err = s.applyInvoice(ctx, &event, result, models.PaymentStatusFailed)
	case "customer.subscription.deleted":
		err = s.applySubscriptionDeleted(ctx, &event, result)
	default:
		log.Printf("Ignoring webhook event %s (%s)", event.ID, event.Type)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) applyCheckoutCompleted(ctx context.Context, event *stripe.Event, result *WebhookResult) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("decoding checkout session: %w", err)
	}

	identity, err := s.identityForEvent(sess.ClientReferenceID, sess.Customer)
	if err != nil {
		return err
	}
	result.IdentityID = identity.ID

	if identity.StripeCustomerID == "" && sess.Customer != nil {
		if err := s.identities.UpdateStripeCustomer(identity.ID, sess.Customer.ID); err != nil {
			log.Printf("Failed to store billing customer id for identity %d: %v", identity.ID, err)
		}
	}

	return s.setPremium(ctx, identity, true)
}

func (s *service) applyInvoice(ctx context.Context, event *stripe.Event, result *WebhookResult, status string) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return fmt.Errorf("decoding invoice: %w", err)
	}

	identity, err := s.identityForEvent("", inv.Customer)
	if err != nil {
		return err
	}
	result.IdentityID = identity.ID

	record := &models.PaymentRecord{
		IdentityID:  identity.ID,
		EventID:     event.ID,
		InvoiceID:   inv.ID,
		AmountCents: inv.AmountPaid,
		Currency:    string(inv.Currency),
		Status:      status,
		EventType:   event.Type,
		PaidAt:      time.Unix(inv.Created, 0).UTC(),
	}
	if status == models.PaymentStatusFailed {
		record.AmountCents = inv.AmountDue
	}

	if err := s.payments.Create(record); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			// Redelivery of an event already applied.
			result.Duplicate = true
			return nil
		}
		return fmt.Errorf("recording payment: %w", err)
	}

	if status == models.PaymentStatusPaid {
		return s.setPremium(ctx, identity, true)
	}
	return nil
}

func (s *service) applySubscriptionDeleted(ctx context.Context, event *stripe.Event, result *WebhookResult) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("decoding subscription: %w", err)
	}

	identity, err := s.identityForEvent("", sub.Customer)
	if err != nil {
		return err
	}
	result.IdentityID = identity.ID

	return s.setPremium(ctx, identity, false)
}

// identityForEvent resolves the identity an event belongs to, preferring
// the checkout client reference and falling back to the customer id.
func (s *service) identityForEvent(clientReference string, cust *stripe.Customer) (*models.Identity, error) {
	if clientReference != "" {
		if id, err := strconv.ParseUint(clientReference, 10, 64); err == nil {
			identity, err := s.identities.GetByID(uint(id))
			if err == nil {
				return identity, nil
			}
		}
	}
	if cust != nil && cust.ID != "" {
		identity, err := s.identities.GetByStripeCustomer(cust.ID)
		if err == nil {
			return identity, nil
		}
	}
	return nil, ErrUnknownCustomer
}

func (s *service) setPremium(ctx context.Context, identity *models.Identity, premium bool) error {
	if identity.Premium == premium {
		return nil
	}
	if err := s.identities.UpdatePremium(identity.ID, premium); err != nil {
		return fmt.Errorf("updating premium flag: %w", err)
	}
	if err := s.publisher.PublishPremiumChanged(ctx, events.PremiumChanged{
		IdentityID: identity.ID,
		Premium:    premium,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		log.Printf("Failed to publish premium change: %v", err)
	}
	return nil
}

func (s *service) ListPlans() ([]*models.SubscriptionPlan, error) {
	return s.plans.ListPlans()
}

func (s *service) SeedPlans(plans []models.SubscriptionPlan) error {
	for i := range plans {
		if err := s.plans.Upsert(&plans[i]); err != nil {
			return fmt.Errorf("seeding plan %s: %w", plans[i].Code, err)
		}
	}
	return nil
}
