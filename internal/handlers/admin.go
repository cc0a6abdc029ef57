package handlers

import (
	"errors"
	"log"
	"strconv"

	"aurum/internal/models"
	"aurum/internal/repositories"
	"aurum/internal/utils"
	"aurum/internal/utils/pagination"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler exposes identity and payment administration. Every route
// behind it sits under the admin middleware, so the handlers trust the
// caller's role.
type AdminHandler struct {
	identityRepo repositories.IdentityRepository
	paymentRepo  repositories.PaymentRepository
}

func NewAdminHandler(identityRepo repositories.IdentityRepository, paymentRepo repositories.PaymentRepository) *AdminHandler {
	return &AdminHandler{identityRepo: identityRepo, paymentRepo: paymentRepo}
}

// ListIdentities returns identities in a paginated manner.
func (h *AdminHandler) ListIdentities(c *fiber.Ctx) error {
	p := pagination.ParseFromRequest(c)

	identities, total, err := h.identityRepo.List(p.Offset, p.Limit)
	if err != nil {
		log.Printf("Error fetching paginated identities: %v", err)
		return utils.InternalError(c, "Failed to fetch identities")
	}

	public := make([]models.PublicIdentity, 0, len(identities))
	for _, identity := range identities {
		public = append(public, identity.Public())
	}

	p.Total = total
	return c.JSON(pagination.Response(p, public))
}

// GetIdentity returns one identity by id.
func (h *AdminHandler) GetIdentity(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "Invalid identity id")
	}

	identity, err := h.identityRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrIdentityNotFound) {
			return utils.NotFound(c, "Identity not found")
		}
		log.Printf("Error fetching identity %d: %v", id, err)
		return utils.InternalError(c, "Failed to fetch identity")
	}
	return utils.Success(c, identity.Public())
}

// UpdateRole changes an identity's role.
func (h *AdminHandler) UpdateRole(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "Invalid identity id")
	}

	var input struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if input.Role != models.RoleUser && input.Role != models.RoleAdmin {
		return utils.BadRequest(c, "Role must be user or admin")
	}

	admin := c.Locals("identity").(*models.Identity)
	log.Printf("Admin %d setting role of identity %d to %s", admin.ID, id, input.Role)

	if err := h.identityRepo.UpdateRole(id, input.Role); err != nil {
		if errors.Is(err, repositories.ErrIdentityNotFound) {
			return utils.NotFound(c, "Identity not found")
		}
		log.Printf("Error updating role for identity %d: %v", id, err)
		return utils.InternalError(c, "Failed to update role")
	}
	return utils.Success(c, fiber.Map{"id": id, "role": input.Role})
}

// SetPremium flips the premium entitlement directly, bypassing billing.
func (h *AdminHandler) SetPremium(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "Invalid identity id")
	}

	var input struct {
		Premium *bool `json:"premium"`
	}
	if err := c.BodyParser(&input); err != nil || input.Premium == nil {
		return utils.BadRequest(c, "Premium flag is required")
	}

	admin := c.Locals("identity").(*models.Identity)
	log.Printf("Admin %d setting premium of identity %d to %t", admin.ID, id, *input.Premium)

	if err := h.identityRepo.UpdatePremium(id, *input.Premium); err != nil {
		if errors.Is(err, repositories.ErrIdentityNotFound) {
			return utils.NotFound(c, "Identity not found")
		}
		log.Printf("Error updating premium for identity %d: %v", id, err)
		return utils.InternalError(c, "Failed to update premium")
	}
	return utils.Success(c, fiber.Map{"id": id, "premium": *input.Premium})
}

// DeleteIdentity removes an identity by id.
func (h *AdminHandler) DeleteIdentity(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "Invalid identity id")
	}

	admin := c.Locals("identity").(*models.Identity)
	log.Printf("Admin %d deleting identity %d", admin.ID, id)

	if err := h.identityRepo.Delete(id); err != nil {
		if errors.Is(err, repositories.ErrIdentityNotFound) {
			return utils.NotFound(c, "Identity not found")
		}
		log.Printf("Error deleting identity %d: %v", id, err)
		return utils.InternalError(c, "Failed to delete identity")
	}
	return utils.Success(c, fiber.Map{"message": "Identity deleted successfully"})
}

// ListPayments returns all payment records in a paginated manner.
func (h *AdminHandler) ListPayments(c *fiber.Ctx) error {
	p := pagination.ParseFromRequest(c)

	records, total, err := h.paymentRepo.List(p.Offset, p.Limit)
	if err != nil {
		log.Printf("Error fetching payments: %v", err)
		return utils.InternalError(c, "Failed to fetch payments")
	}

	p.Total = total
	return c.JSON(pagination.Response(p, records))
}

// ListIdentityPayments returns one identity's payment records.
func (h *AdminHandler) ListIdentityPayments(c *fiber.Ctx) error {
	id, err := parseIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "Invalid identity id")
	}

	p := pagination.ParseFromRequest(c)

	records, total, err := h.paymentRepo.ListByIdentity(id, p.Offset, p.Limit)
	if err != nil {
		log.Printf("Error fetching payments for identity %d: %v", id, err)
		return utils.InternalError(c, "Failed to fetch payments")
	}

	p.Total = total
	return c.JSON(pagination.Response(p, records))
}

func parseIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
