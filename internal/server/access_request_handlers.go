package server

import (
	"girder/internal/models"
	"girder/internal/policy"

	"github.com/gofiber/fiber/v2"
)

// SubmitAccessRequest handles POST /api/access-requests
// @Summary Submit a project access request
// @Description Append a new access request to the ledger. Matching auto-approval rules grant access immediately.
// @Tags access-requests
// @Accept json
// @Produce json
// @Param request body object{project_id=int,requested_role=string,justification=string} true "Access request"
// @Success 201 {object} models.AccessRequest
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /access-requests [post]
func (s *Server) SubmitAccessRequest(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return nil
	}

	var req struct {
		ProjectID     uint   `json:"project_id"`
		RequestedRole string `json:"requested_role"`
		Justification string `json:"justification"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.ProjectID == 0 || req.RequestedRole == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("project_id and requested_role are required"))
	}

	request, err := s.accessService.Submit(c.Context(), actor.ID, req.ProjectID, req.RequestedRole, req.Justification)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(request)
}

// DecideAccessRequest handles PATCH /api/access-requests/:id
// @Summary Approve or reject a pending access request
// @Tags access-requests
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param request body object{status=string} true "Target status: approved or rejected"
// @Success 200 {object} models.AccessRequest
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /access-requests/{id} [patch]
func (s *Server) DecideAccessRequest(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return nil
	}

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	var approve bool
	switch models.AccessRequestStatus(req.Status) {
	case models.AccessRequestStatusApproved:
		approve = true
	case models.AccessRequestStatusRejected:
		approve = false
	default:
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("status must be \"approved\" or \"rejected\""))
	}

	decided, err := s.accessService.Decide(c.Context(), actor, id, approve)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(decided)
}

// RevokeAccessRequest handles POST /api/access-requests/:id/revoke
// @Summary Revoke an approved access grant
// @Tags access-requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} models.AccessRequest
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /access-requests/{id}/revoke [post]
func (s *Server) RevokeAccessRequest(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return nil
	}

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	revoked, err := s.accessService.Revoke(c.Context(), actor, id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(revoked)
}

// GetAccessRequest handles GET /api/access-requests/:ref
// @Summary Get a single access request by reference ID
// @Tags access-requests
// @Produce json
// @Param ref path string true "Reference ID"
// @Success 200 {object} models.AccessRequest
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /access-requests/{ref} [get]
func (s *Server) GetAccessRequest(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return nil
	}

	request, err := s.accessService.GetByReferenceID(c.Context(), c.Params("ref"))
	if err != nil {
		return s.respondError(c, err)
	}

	// Stakeholders may only see their own requests.
	if request.ContactID != actor.ID && !policy.Can(actor, policy.ActionViewRequests) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("you may not view this access request"))
	}
	return c.JSON(request)
}

// GetPendingAccessRequests handles GET /api/access-requests/pending
// @Summary List requests awaiting review
// @Tags access-requests
// @Produce json
// @Success 200 {array} models.AccessRequest
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /access-requests/pending [get]
func (s *Server) GetPendingAccessRequests(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return nil
	}
	if authErr := policy.Authorize(actor, policy.ActionViewRequests); authErr != nil {
		return s.respondError(c, authErr)
	}

	pending, err := s.accessService.ListPending(c.Context())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(pending)
}

// GetMyAccessRequests handles GET /api/access-requests/mine
// @Summary List the caller's own access requests
// @Tags access-requests
// @Produce json
// @Success 200 {array} models.AccessRequest
// @Security BearerAuth
// @Router /access-requests/mine [get]
func (s *Server) GetMyAccessRequests(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return nil
	}

	requests, err := s.accessService.ListByContact(c.Context(), actor.ID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(requests)
}

// GetProjectAccessRequests handles GET /api/projects/:id/access-requests
// @Summary List access requests for a project
// @Tags projects
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {array} models.AccessRequest
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /projects/{id}/access-requests [get]
func (s *Server) GetProjectAccessRequests(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return nil
	}
	if authErr := policy.Authorize(actor, policy.ActionViewRequests); authErr != nil {
		return s.respondError(c, authErr)
	}

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	requests, err := s.accessService.ListByProject(c.Context(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(requests)
}
