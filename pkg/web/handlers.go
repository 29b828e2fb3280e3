package web

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/persistence"
	"github.com/routinely/routinely/pkg/registry"
	"github.com/routinely/routinely/pkg/users"
	"github.com/routinely/routinely/pkg/validation"
	"github.com/routinely/routinely/pkg/workflow"
)

// APIHandlers exposes the workflow service and the execution engine over
// HTTP. Every route resolves the caller from the user header; the capability
// checks themselves live in the service layer.
type APIHandlers struct {
	service   *workflow.Service
	engine    *workflow.Engine
	users     *users.Service
	store     persistence.Persistence
	registry  *registry.Registry
	validator *validator.Validate
}

func NewAPIHandlers(
	service *workflow.Service,
	engine *workflow.Engine,
	userService *users.Service,
	store persistence.Persistence,
	handlerRegistry *registry.Registry,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		service:   service,
		engine:    engine,
		users:     userService,
		store:     store,
		registry:  handlerRegistry,
		validator: validate,
	}
}

// Register mounts the workflow routes on the app.
func (h *APIHandlers) Register(app *fiber.App) {
	w := app.Group("/workflows")
	w.Get("/", h.ListWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Patch("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/validate", h.ValidateWorkflow)
	w.Post("/:id/execute", h.ExecuteWorkflow)
	w.Get("/:id/executions", h.GetExecutions)

	app.Post("/users/signin", h.SignIn)
	app.Get("/health", h.HealthCheck)
}

func callerID(c fiber.Ctx) string {
	return c.Get(UserHeader)
}

func (h *APIHandlers) ListWorkflows(c fiber.Ctx) error {
	caller := callerID(c)
	if caller == "" {
		return unauthorized(c)
	}

	workflows, err := h.service.List(c.Context(), caller)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows": workflows,
		"count":     len(workflows),
	})
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	caller := callerID(c)
	if caller == "" {
		return unauthorized(c)
	}

	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.service.Create(c.Context(), caller, &models.Workflow{
		Name:        req.Name,
		Description: req.Description,
		Kind:        req.Kind,
		Triggers:    req.Triggers,
		Actions:     req.Actions,
		SharedWith:  req.SharedWith,
		EditorIDs:   req.EditorIDs,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	caller := callerID(c)
	if caller == "" {
		return unauthorized(c)
	}

	found, err := h.service.Get(c.Context(), caller, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(found)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	caller := callerID(c)
	if caller == "" {
		return unauthorized(c)
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	// The service re-checks the edit capability against the stored version;
	// fetching through Get here only requires view, which every editor holds.
	existing, err := h.service.Get(c.Context(), caller, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	req.applyTo(existing)

	updated, err := h.service.Update(c.Context(), caller, existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	caller := callerID(c)
	if caller == "" {
		return unauthorized(c)
	}

	if err := h.service.Delete(c.Context(), caller, c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ValidateWorkflow(c fiber.Ctx) error {
	caller := callerID(c)
	if caller == "" {
		return unauthorized(c)
	}

	found, err := h.service.Get(c.Context(), caller, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	issues := h.service.Validate(found)

	return c.JSON(ValidateResponse{
		Valid:  validation.IsValid(issues),
		Issues: issues,
	})
}

func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	caller := callerID(c)
	if caller == "" {
		return unauthorized(c)
	}

	var req ExecuteWorkflowRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "invalid JSON body")
		}
	}

	record, err := h.engine.ExecuteManual(c.Context(), c.Params("id"), caller, req.Payload)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(record)
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	caller := callerID(c)
	if caller == "" {
		return unauthorized(c)
	}

	limit := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			return badRequest(c, "limit must be a non-negative integer")
		}

		limit = parsed
	}

	history, err := h.service.History(c.Context(), caller, c.Params("id"), limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions": history,
		"count":      len(history),
	})
}

// SignIn creates the user on first sign-in, refreshes the profile afterwards.
// This route establishes identity, so it is the one that takes no user header.
func (h *APIHandlers) SignIn(c fiber.Ctx) error {
	var req SignInRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	user, created, err := h.users.SignIn(c.Context(), &models.WorkflowUser{
		ID:           req.ID,
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		ChatIdentity: req.ChatIdentity,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	if created {
		return c.Status(fiber.StatusCreated).JSON(user)
	}

	return c.JSON(user)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := fiber.StatusOK

	repositoryCheck := "ok"
	if err := h.store.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		httpStatus = fiber.StatusInternalServerError
		repositoryCheck = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository":   repositoryCheck,
			"action_types": h.registry.RegisteredTypes(),
		},
		"timestamp": time.Now().UTC(),
	})
}
