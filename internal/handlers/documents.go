package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/moonshine-ai/MoonshineNoteTaker/internal/document"
	"github.com/moonshine-ai/MoonshineNoteTaker/internal/storage"
)

// DocumentsHandler saves, lists, and reopens documents.
type DocumentsHandler struct {
	doc      *document.Document
	store    *storage.Store
	validate *validator.Validate
	log      *logrus.Logger
}

// NewDocumentsHandler creates a new documents handler.
func NewDocumentsHandler(doc *document.Document, store *storage.Store, log *logrus.Logger) *DocumentsHandler {
	return &DocumentsHandler{doc: doc, store: store, validate: validator.New(), log: log}
}

// SavePayload names the document being saved.
type SavePayload struct {
	Title string `json:"title" validate:"required,max=200"`
}

// Save persists the open document's blocks and lines.
// POST /documents
func (h *DocumentsHandler) Save(c *fiber.Ctx) error {
	var payload SavePayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_BAD_PAYLOAD",
		})
	}
	if err := h.validate.Struct(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_VALIDATION",
		})
	}
	if h.doc.Capturing() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Cannot save while capture is active",
			"code":  "ERR_CAPTURE_ACTIVE",
		})
	}

	store := h.doc.Store()
	id := uuid.New().String()
	if err := h.store.SaveDocument(id, payload.Title, store.SampleRate(), store.Snapshot(), h.doc.Lines()); err != nil {
		h.log.Errorf("save document: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save document",
			"code":  "ERR_SAVE_FAILED",
		})
	}

	h.log.WithField("document_id", id).Info("document saved")
	return c.JSON(fiber.Map{
		"document_id": id,
		"title":       payload.Title,
	})
}

// List returns recently saved documents.
// GET /documents
func (h *DocumentsHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	docs, err := h.store.ListDocuments(limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_LIST_FAILED",
		})
	}
	return c.JSON(fiber.Map{"documents": docs})
}

// Open loads a saved document into the live document, replacing its state.
// POST /documents/:id/open
func (h *DocumentsHandler) Open(c *fiber.Ctx) error {
	id := c.Params("id")
	if h.doc.Capturing() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Cannot open a document while capture is active",
			"code":  "ERR_CAPTURE_ACTIVE",
		})
	}

	blocks, lines, err := h.store.LoadDocument(id)
	if err != nil {
		h.log.Warnf("open document %s: %v", id, err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Document not found",
			"code":  "ERR_NOT_FOUND",
		})
	}
	if len(blocks) == 0 && len(lines) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Document not found",
			"code":  "ERR_NOT_FOUND",
		})
	}

	h.doc.Restore(blocks, lines)
	h.log.WithField("document_id", id).Info("document opened")
	return c.JSON(fiber.Map{
		"document_id": id,
		"blocks":      len(blocks),
		"lines":       len(lines),
	})
}
