package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/moonshine-ai/MoonshineNoteTaker/internal/document"
)

// CaptureHandler drives the recording-block lifecycle and ingests live PCM
// from the capture collaborator.
type CaptureHandler struct {
	doc *document.Document
	log *logrus.Logger
}

// NewCaptureHandler creates a new capture handler.
func NewCaptureHandler(doc *document.Document, log *logrus.Logger) *CaptureHandler {
	return &CaptureHandler{doc: doc, log: log}
}

// Start opens a new recording block.
// POST /capture/start
func (h *CaptureHandler) Start(c *fiber.Ctx) error {
	if err := h.doc.StartCapture(document.Now()); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_CAPTURE_ACTIVE",
		})
	}
	h.log.Info("capture started")
	return c.JSON(fiber.Map{
		"status":      "capturing",
		"block_index": h.doc.Store().BlockCount() - 1,
	})
}

// Stop closes the open recording block.
// POST /capture/stop
func (h *CaptureHandler) Stop(c *fiber.Ctx) error {
	if err := h.doc.StopCapture(document.Now()); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_NOT_CAPTURING",
		})
	}
	h.log.Info("capture stopped")
	return c.JSON(fiber.Map{
		"status":        "stopped",
		"total_samples": h.doc.Store().TotalSamples(),
	})
}

// Stream receives tagged PCM over a WebSocket connection. Binary messages
// carry a one-byte source tag plus float32 samples; the text message "END"
// closes the stream. Samples arriving while no block is open are dropped by
// the store, matching the append contract.
// GET /ws/capture
func (h *CaptureHandler) Stream(c *websocket.Conn) {
	defer c.Close()

	h.log.Info("capture stream connected")
	var micSamples, sysSamples int64

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			h.log.Debugf("capture stream read error: %v", err)
			break
		}

		if messageType == websocket.TextMessage {
			if string(message) == "END" {
				break
			}
			continue
		}

		if messageType != websocket.BinaryMessage || len(message) < 1 {
			continue
		}

		samples := decodeSamples(message[1:])
		switch message[0] {
		case sourceTagMicrophone:
			h.doc.AppendMicrophone(samples)
			micSamples += int64(len(samples))
		case sourceTagSystem:
			h.doc.AppendSystem(samples)
			sysSamples += int64(len(samples))
		default:
			h.log.Warnf("capture stream: unknown source tag 0x%02x", message[0])
		}
	}

	h.log.WithFields(logrus.Fields{
		"microphone_samples": micSamples,
		"system_samples":     sysSamples,
	}).Info("capture stream closed")
}
