package handlers

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/moonshine-ai/MoonshineNoteTaker/internal/audio"
	"github.com/moonshine-ai/MoonshineNoteTaker/internal/document"
)

// PlaybackHandler exposes the playback cursor: range selection and the mixed
// audio stream.
type PlaybackHandler struct {
	doc        *document.Document
	frameLen   int
	sampleRate int
	validate   *validator.Validate
	log        *logrus.Logger
}

// NewPlaybackHandler creates a new playback handler. frameLen is the number
// of samples per streamed frame.
func NewPlaybackHandler(doc *document.Document, frameLen, sampleRate int, log *logrus.Logger) *PlaybackHandler {
	return &PlaybackHandler{
		doc:        doc,
		frameLen:   frameLen,
		sampleRate: sampleRate,
		validate:   validator.New(),
		log:        log,
	}
}

// RangePayload selects the playback window: either explicit global sample
// offsets or a transcript line-ID selection. line_ids wins when present.
type RangePayload struct {
	StartOffset *int64  `json:"start_offset" validate:"omitempty,gte=0"`
	EndOffset   *int64  `json:"end_offset" validate:"omitempty,gte=-1"`
	LineIDs     []int64 `json:"line_ids"`
}

// SetRange applies a playback range.
// POST /playback/range
func (h *PlaybackHandler) SetRange(c *fiber.Ctx) error {
	var payload RangePayload
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

	cursor := h.doc.Cursor()
	if payload.LineIDs != nil {
		cursor.SetRangeFromLineIDs(payload.LineIDs)
	} else {
		start := int64(0)
		end := audio.UnboundedEnd
		if payload.StartOffset != nil {
			start = *payload.StartOffset
		}
		if payload.EndOffset != nil {
			end = *payload.EndOffset
		}
		cursor.SetRange(start, end)
	}

	return c.JSON(rangeStatus(cursor.Range(), h.doc.Store().TotalSamples()))
}

// Reset rewinds the cursor to the start of the current range.
// POST /playback/reset
func (h *PlaybackHandler) Reset(c *fiber.Ctx) error {
	cursor := h.doc.Cursor()
	cursor.Reset()
	return c.JSON(rangeStatus(cursor.Range(), h.doc.Store().TotalSamples()))
}

// Status reports the current range and position.
// GET /playback/status
func (h *PlaybackHandler) Status(c *fiber.Ctx) error {
	return c.JSON(rangeStatus(h.doc.Cursor().Range(), h.doc.Store().TotalSamples()))
}

func rangeStatus(r audio.PlaybackRange, total int64) fiber.Map {
	return fiber.Map{
		"start_offset":   r.StartOffset,
		"end_offset":     r.EndOffset,
		"current_offset": r.CurrentOffset,
		"reached_end":    r.ReachedEnd,
		"total_samples":  total,
	}
}

// frameMeta precedes each binary audio frame on the playback stream.
type frameMeta struct {
	ActiveLineIDs []int64 `json:"active_line_ids"`
	ReachedEnd    bool    `json:"reached_end"`
}

// Stream pulls mixed frames from the cursor at the frame cadence and pushes
// them to the client: one JSON metadata message then one binary PCM message
// per frame, until the range is consumed.
// GET /ws/playback
func (h *PlaybackHandler) Stream(c *websocket.Conn) {
	defer c.Close()

	frameDur := time.Duration(h.frameLen) * time.Second / time.Duration(h.sampleRate)
	ticker := time.NewTicker(frameDur)
	defer ticker.Stop()

	cursor := h.doc.Cursor()
	h.log.Info("playback stream connected")

	for {
		frame := cursor.NextFrame(h.frameLen)

		meta, err := json.Marshal(frameMeta{
			ActiveLineIDs: frame.ActiveLineIDs,
			ReachedEnd:    frame.ReachedEnd,
		})
		if err != nil {
			h.log.Warnf("playback stream: marshal meta: %v", err)
			return
		}
		if err := c.WriteMessage(websocket.TextMessage, meta); err != nil {
			h.log.Debugf("playback stream write error: %v", err)
			return
		}
		if err := c.WriteMessage(websocket.BinaryMessage, encodeSamples(frame.Mixed)); err != nil {
			h.log.Debugf("playback stream write error: %v", err)
			return
		}

		if frame.ReachedEnd {
			h.log.Info("playback stream reached end of range")
			return
		}
		<-ticker.C
	}
}
