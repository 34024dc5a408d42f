package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/itsm-ticket-service/internal/api/dto"
	"github.com/spec-kit/itsm-ticket-service/internal/service"
)

// CatalogHandler serves label and category endpoints.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// CreateLabel POST /labels.
func (h *CatalogHandler) CreateLabel(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	var req dto.LabelRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	label, err := h.catalog.CreateLabel(c.UserContext(), userID, labelInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": labelResponse(label)})
}

// UpdateLabel PUT /labels/:id.
func (h *CatalogHandler) UpdateLabel(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.LabelRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	label, err := h.catalog.UpdateLabel(c.UserContext(), id, labelInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": labelResponse(label)})
}

// GetLabel GET /labels/:id.
func (h *CatalogHandler) GetLabel(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	label, err := h.catalog.GetLabel(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": labelResponse(label)})
}

// ListLabels GET /labels.
func (h *CatalogHandler) ListLabels(c *fiber.Ctx) error {
	labels, err := h.catalog.ListLabels(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.LabelResponse, 0, len(labels))
	for i := range labels {
		items = append(items, labelResponse(&labels[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// DeleteLabel DELETE /labels/:id.
func (h *CatalogHandler) DeleteLabel(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteLabel(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateCategory POST /categories.
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	var req dto.CategoryRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	category, err := h.catalog.CreateCategory(c.UserContext(), userID, service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": categoryResponse(category)})
}

// UpdateCategory PUT /categories/:id.
func (h *CatalogHandler) UpdateCategory(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CategoryRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	category, err := h.catalog.UpdateCategory(c.UserContext(), id, service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": categoryResponse(category)})
}

// GetCategory GET /categories/:id.
func (h *CatalogHandler) GetCategory(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	category, err := h.catalog.GetCategory(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": categoryResponse(category)})
}

// ListCategories GET /categories.
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.catalog.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		items = append(items, categoryResponse(&categories[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// DeleteCategory DELETE /categories/:id.
func (h *CatalogHandler) DeleteCategory(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteCategory(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func labelInput(req dto.LabelRequest) service.LabelInput {
	return service.LabelInput{Name: req.Name, Color: req.Color, Description: req.Description}
}
