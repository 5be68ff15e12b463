package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/tutor/pipeline"
	"github.com/papercomputeco/tutor/pkg/correction"
)

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	ThreadID string `json:"thread_id"`
	UserID   string `json:"user_id"`
	Message  string `json:"message"`
}

// ChatResponse is the result of one turn.
type ChatResponse struct {
	ThreadID     string             `json:"thread_id"`
	CheckpointID string             `json:"checkpoint_id,omitempty"`
	MessageCount int                `json:"message_count"`
	Compacted    bool               `json:"compacted"`
	QualityScore int                `json:"quality_score"`
	Correction   *correction.Result `json:"correction"`
}

// generationFailedMessage is shown instead of provider error details.
const generationFailedMessage = "the tutor could not generate a response, please try again"

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}

	out, err := s.config.Pipeline.Run(c.UserContext(), pipeline.TurnRequest{
		ThreadID: req.ThreadID,
		UserID:   req.UserID,
		Text:     req.Message,
	})
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrMissingThreadID),
			errors.Is(err, pipeline.ErrMissingUserID),
			errors.Is(err, pipeline.ErrEmptyMessage):
			return errorJSON(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, pipeline.ErrGenerationFailed):
			return errorJSON(c, fiber.StatusBadGateway, generationFailedMessage)
		case errors.Is(err, context.Canceled):
			return errorJSON(c, fiber.StatusRequestTimeout, "request canceled")
		default:
			s.logger.Error("turn failed", "thread_id", req.ThreadID, "error", err)
			return errorJSON(c, fiber.StatusInternalServerError, "turn failed")
		}
	}

	resp := ChatResponse{
		ThreadID:     req.ThreadID,
		CheckpointID: out.CheckpointID,
		MessageCount: out.MessageCount,
		Compacted:    out.Compacted,
		Correction:   out.Result,
	}
	if out.Assessment != nil {
		resp.QualityScore = out.Assessment.Score
	}
	return c.JSON(resp)
}
