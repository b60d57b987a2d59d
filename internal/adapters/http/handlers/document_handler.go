package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/angep72/Community-saver/internal/pkg/response"
	"github.com/angep72/Community-saver/internal/pkg/storage"
)

const maxDocumentSize = 5 * 1024 * 1024

// DocumentHandler handles branch report document requests
type DocumentHandler struct {
	store *storage.LocalStore
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(store *storage.LocalStore) *DocumentHandler {
	return &DocumentHandler{store: store}
}

// Upload godoc
// @Summary Upload document
// @Description Upload a branch report or agreement template (multipart field "file", max 5MB)
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Document file"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "File is required")
	}
	if fileHeader.Size > maxDocumentSize {
		return response.BadRequest(c, "File too large (max 5MB)")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return response.BadRequest(c, "Unable to read uploaded file")
	}
	defer src.Close()

	name, err := h.store.Save(fileHeader.Filename, src)
	if err != nil {
		return response.InternalServerError(c, "Failed to store document")
	}

	return response.Created(c, "Document uploaded", fiber.Map{
		"name": name,
		"size": fileHeader.Size,
	})
}

// List godoc
// @Summary List documents
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /documents [get]
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	files, err := h.store.List()
	if err != nil {
		return response.InternalServerError(c, "Failed to list documents")
	}
	return response.Success(c, "Documents retrieved", fiber.Map{"documents": files})
}

// Download godoc
// @Summary Download document
// @Tags Documents
// @Produce application/octet-stream
// @Security BearerAuth
// @Param name path string true "Stored document name"
// @Success 200 {file} file
// @Failure 404 {object} response.Response
// @Router /documents/{name} [get]
func (h *DocumentHandler) Download(c *fiber.Ctx) error {
	path, err := h.store.Path(c.Params("name"))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return response.NotFound(c, "Document not found")
		case errors.Is(err, storage.ErrInvalidName):
			return response.BadRequest(c, "Invalid document name")
		default:
			return response.InternalServerError(c, "Failed to resolve document")
		}
	}
	return c.Download(path)
}

// Delete godoc
// @Summary Delete document
// @Tags Documents
// @Produce json
// @Security BearerAuth
// @Param name path string true "Stored document name"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /documents/{name} [delete]
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	if err := h.store.Delete(c.Params("name")); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return response.NotFound(c, "Document not found")
		case errors.Is(err, storage.ErrInvalidName):
			return response.BadRequest(c, "Invalid document name")
		default:
			return response.InternalServerError(c, "Failed to delete document")
		}
	}
	return response.Success(c, "Document deleted", nil)
}
