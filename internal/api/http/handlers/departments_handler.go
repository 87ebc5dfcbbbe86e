package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// DepartmentsHandler manages departments and their SLA policies.
type DepartmentsHandler struct {
	service   *service.DepartmentService
	validator *dto.Validator
}

// NewDepartmentsHandler constructs handler.
func NewDepartmentsHandler(departments *service.DepartmentService, validator *dto.Validator) *DepartmentsHandler {
	return &DepartmentsHandler{service: departments, validator: validator}
}

// List GET /departments.
func (h *DepartmentsHandler) List(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	depts, err := h.service.ListActive(c.UserContext(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.DepartmentResponse, 0, len(depts))
	for i := range depts {
		items = append(items, departmentResponse(&depts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /departments.
func (h *DepartmentsHandler) Create(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.DepartmentRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	dept, err := h.service.Create(c.UserContext(), actor, departmentInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": departmentResponse(dept)})
}

// Update PUT /departments/:id.
func (h *DepartmentsHandler) Update(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.DepartmentRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	dept, err := h.service.Update(c.UserContext(), actor, c.Params("id"), departmentInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": departmentResponse(dept)})
}

// Delete DELETE /departments/:id.
func (h *DepartmentsHandler) Delete(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func departmentInput(req dto.DepartmentRequest) service.DepartmentInput {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return service.DepartmentInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    active,
		SLAHours:    req.SLAHours,
	}
}

func departmentResponse(dept *domain.Department) dto.DepartmentResponse {
	return dto.DepartmentResponse{
		ID:          dept.ID,
		Name:        dept.Name,
		Description: dept.Description,
		IsActive:    dept.IsActive,
		SLAHours:    dept.SLAHours,
		CreatedAt:   dept.CreatedAt,
		UpdatedAt:   dept.UpdatedAt,
	}
}
