package handlers

import (
	"errors"
	"log"

	"aurum/internal/models"
	"aurum/internal/services/billing"
	"aurum/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// BillingHandler exposes the plan catalog, checkout creation and the
// Stripe webhook endpoint.
type BillingHandler struct {
	billingService billing.Service
}

func NewBillingHandler(billingService billing.Service) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

// ListPlans returns the subscription plan catalog. Public.
func (h *BillingHandler) ListPlans(c *fiber.Ctx) error {
	plans, err := h.billingService.ListPlans()
	if err != nil {
		log.Printf("Failed to list plans: %v", err)
		return utils.InternalError(c, "Failed to load plans")
	}
	return utils.Success(c, fiber.Map{"plans": plans})
}

// CreateCheckout starts a Stripe Checkout session for the authenticated
// identity and the requested plan.
func (h *BillingHandler) CreateCheckout(c *fiber.Ctx) error {
	identity := c.Locals("identity").(*models.Identity)

	var input struct {
		Plan string `json:"plan"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if input.Plan == "" {
		return utils.BadRequest(c, "Plan is required")
	}

	checkout, err := h.billingService.CreateCheckoutSession(c.Context(), identity, input.Plan)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrUnknownPlan):
			return utils.BadRequest(c, "Unknown plan")
		case errors.Is(err, billing.ErrCheckoutUnavailable):
			log.Printf("Checkout unavailable for identity %d: %v", identity.ID, err)
			return utils.InternalError(c, "Checkout is unavailable")
		default:
			log.Printf("Failed to create checkout for identity %d: %v", identity.ID, err)
			return utils.InternalError(c, "Failed to create checkout session")
		}
	}
	return utils.Success(c, checkout)
}

// Webhook receives Stripe event deliveries. The signature is checked over
// the raw body; redeliveries are acknowledged without reapplying effects.
func (h *BillingHandler) Webhook(c *fiber.Ctx) error {
	payload := c.Body()
	signature := c.Get("Stripe-Signature")

	result, err := h.billingService.HandleWebhook(c.Context(), payload, signature)
	if err != nil {
		if errors.Is(err, billing.ErrUnverifiedSignature) {
			return utils.BadRequest(c, "Invalid webhook signature")
		}
		log.Printf("Webhook processing failed: %v", err)
		return utils.InternalError(c, "Webhook processing failed")
	}

	return utils.Success(c, fiber.Map{
		"received":  true,
		"event_id":  result.EventID,
		"duplicate": result.Duplicate,
	})
}
