package server

import (
	"girder/internal/models"
	"girder/internal/notify"
	"girder/internal/policy"

	"github.com/gofiber/fiber/v2"
)

// ActivateUser handles POST /api/admin/users/:id/activate
// @Summary Activate a user account
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{changed=bool,user=models.User}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{id}/activate [post]
func (s *Server) ActivateUser(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return nil
	}

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.adminService.ActivateUser(c.Context(), actor, id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"changed": true, "user": user})
}

// DeactivateUser handles POST /api/admin/users/:id/deactivate
// @Summary Deactivate a user account
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{changed=bool,user=models.User}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{id}/deactivate [post]
func (s *Server) DeactivateUser(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return nil
	}

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.adminService.DeactivateUser(c.Context(), actor, id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"changed": true, "user": user})
}

// GetAdminUsers handles GET /api/admin/users
// @Summary List user accounts
// @Tags admin
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.User
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/users [get]
func (s *Server) GetAdminUsers(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return nil
	}

	p := parsePagination(c, 50)
	users, err := s.adminService.ListUsers(c.Context(), actor, p.Limit, p.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(users)
}

// GetAuditTrail handles GET /api/admin/audit
// @Summary List recent audit entries
// @Tags admin
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.AuditLog
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/audit [get]
func (s *Server) GetAuditTrail(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return nil
	}

	p := parsePagination(c, 50)
	entries, err := s.adminService.AuditTrail(c.Context(), actor, p.Limit, p.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(entries)
}

// GetRecentEvents handles GET /api/admin/events
// @Summary List recent bus events from the in-memory log
// @Tags admin
// @Produce json
// @Success 200 {array} events.Event
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/events [get]
func (s *Server) GetRecentEvents(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return nil
	}
	if authErr := policy.Authorize(actor, policy.ActionViewEventLog); authErr != nil {
		return s.respondError(c, authErr)
	}

	return c.JSON(fiber.Map{
		"capacity": s.eventLog.Capacity(),
		"events":   s.eventLog.Recent(),
	})
}

// SendTestEmail handles POST /api/admin/test-email
// @Summary Send a test message through the notification gateway
// @Tags admin
// @Accept json
// @Produce json
// @Param request body object{recipient=string} true "Recipient address"
// @Success 200 {object} notify.Result
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/test-email [post]
func (s *Server) SendTestEmail(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return nil
	}
	if authErr := policy.Authorize(actor, policy.ActionManageUsers); authErr != nil {
		return s.respondError(c, authErr)
	}

	if s.gateway == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewValidationError("notifications are disabled"))
	}

	var req struct {
		Recipient string `json:"recipient"`
	}
	if err := c.BodyParser(&req); err != nil || req.Recipient == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("recipient is required"))
	}

	result, sendErr := s.gateway.Send(c.Context(), notify.TemplateTest, req.Recipient, nil)
	if sendErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(sendErr.Error()))
	}
	return c.JSON(result)
}
