package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/moonshine-ai/MoonshineNoteTaker/internal/document"
	"github.com/moonshine-ai/MoonshineNoteTaker/internal/transcript"
)

// TranscriptHandler ingests recognizer events and serves the canonical
// transcript.
type TranscriptHandler struct {
	doc      *document.Document
	validate *validator.Validate
	log      *logrus.Logger
}

// NewTranscriptHandler creates a new transcript handler.
func NewTranscriptHandler(doc *document.Document, log *logrus.Logger) *TranscriptHandler {
	return &TranscriptHandler{doc: doc, validate: validator.New(), log: log}
}

// IngestPayload is a batch of recognizer events.
type IngestPayload struct {
	Events []transcript.Event `json:"events" validate:"required,min=1,dive"`
}

// Ingest enqueues a batch of recognizer events onto the document's drain loop.
// POST /transcript/events
func (h *TranscriptHandler) Ingest(c *fiber.Ctx) error {
	var payload IngestPayload
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

	for _, ev := range payload.Events {
		if err := h.doc.Enqueue(c.Context(), ev); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Event queue unavailable",
				"code":  "ERR_QUEUE",
			})
		}
	}

	return c.JSON(fiber.Map{
		"status":   "accepted",
		"enqueued": len(payload.Events),
	})
}

// Get normalizes the transcript and returns the canonical lines together
// with the rendered text and its provenance spans. Normalization is
// idempotent, so repeated reads are stable.
// GET /transcript
func (h *TranscriptHandler) Get(c *fiber.Ctx) error {
	lines := h.doc.Normalize()
	index := transcript.BuildSpanIndex(lines)

	return c.JSON(fiber.Map{
		"lines": lines,
		"text":  index.Text,
		"spans": index.Spans,
	})
}
