package server

import (
	"girder/internal/models"
	"girder/internal/policy"

	"github.com/gofiber/fiber/v2"
)

// GetProjects handles GET /api/projects
// @Summary List projects
// @Tags projects
// @Produce json
// @Param include_archived query bool false "Include archived projects"
// @Success 200 {array} models.Project
// @Security BearerAuth
// @Router /projects [get]
func (s *Server) GetProjects(c *fiber.Ctx) error {
	if _, err := s.currentUser(c); err != nil {
		return nil
	}

	includeArchived := c.QueryBool("include_archived", false)
	projects, err := s.projectRepo.List(c.Context(), includeArchived)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(projects)
}

// GetProject handles GET /api/projects/:id
// @Summary Get a project
// @Tags projects
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {object} models.Project
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /projects/{id} [get]
func (s *Server) GetProject(c *fiber.Ctx) error {
	if _, err := s.currentUser(c); err != nil {
		return nil
	}

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	project, err := s.projectRepo.GetByID(c.Context(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(project)
}

// CreateProject handles POST /api/projects
// @Summary Create a project
// @Tags projects
// @Accept json
// @Produce json
// @Param request body object{name=string,number=string,client_ref=string} true "Project"
// @Success 201 {object} models.Project
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /projects [post]
func (s *Server) CreateProject(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return nil
	}
	if authErr := policy.Authorize(actor, policy.ActionManageProjects); authErr != nil {
		return s.respondError(c, authErr)
	}

	var req struct {
		Name      string `json:"name"`
		Number    string `json:"number"`
		ClientRef string `json:"client_ref"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Name == "" || req.Number == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("name and number are required"))
	}

	project := &models.Project{
		Name:      req.Name,
		Number:    req.Number,
		ClientRef: req.ClientRef,
	}
	if createErr := s.projectRepo.Create(c.Context(), project); createErr != nil {
		return s.respondError(c, createErr)
	}
	return c.Status(fiber.StatusCreated).JSON(project)
}

// ArchiveProject handles POST /api/projects/:id/archive
// @Summary Archive a project
// @Tags projects
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {object} object{changed=bool}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /projects/{id}/archive [post]
func (s *Server) ArchiveProject(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return nil
	}
	if authErr := policy.Authorize(actor, policy.ActionManageProjects); authErr != nil {
		return s.respondError(c, authErr)
	}

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if _, getErr := s.projectRepo.GetByID(c.Context(), id); getErr != nil {
		return s.respondError(c, getErr)
	}

	changed, err := s.projectRepo.SetArchived(c.Context(), id, true)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"changed": changed})
}
