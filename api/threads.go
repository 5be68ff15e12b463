package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/tutor/pkg/storage"
)

// MessagesResponse is the persisted transcript of a thread.
type MessagesResponse struct {
	ThreadID string                 `json:"thread_id"`
	Count    int                    `json:"count"`
	Messages []*storage.ChatMessage `json:"messages"`
}

// CheckpointsResponse lists checkpoints newest first.
type CheckpointsResponse struct {
	ThreadID    string                `json:"thread_id"`
	Count       int                   `json:"count"`
	Checkpoints []*storage.Checkpoint `json:"checkpoints"`
}

func (s *Server) handleListMessages(c *fiber.Ctx) error {
	limit, err := queryLimit(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	msgs, err := s.config.Messages.ListMessages(c.UserContext(), c.Params("id"), limit)
	if err != nil {
		s.logger.Error("message lookup failed", "thread_id", c.Params("id"), "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "failed to list messages")
	}
	if msgs == nil {
		msgs = []*storage.ChatMessage{}
	}

	return c.JSON(MessagesResponse{ThreadID: c.Params("id"), Count: len(msgs), Messages: msgs})
}

func (s *Server) handleListCheckpoints(c *fiber.Ctx) error {
	limit, err := queryLimit(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	threadID := c.Params("id")
	var cps []*storage.Checkpoint
	if before := c.Query("before"); before != "" {
		cps, err = s.config.Checkpoints.ListBefore(c.UserContext(), threadID, before, limit)
	} else {
		cps, err = s.config.Checkpoints.List(c.UserContext(), threadID, limit)
	}
	if err != nil {
		if notFound(err) {
			return errorJSON(c, fiber.StatusNotFound, "checkpoint not found")
		}
		s.logger.Error("checkpoint listing failed", "thread_id", threadID, "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "failed to list checkpoints")
	}
	if cps == nil {
		cps = []*storage.Checkpoint{}
	}

	return c.JSON(CheckpointsResponse{ThreadID: threadID, Count: len(cps), Checkpoints: cps})
}

func (s *Server) handleLatestCheckpoint(c *fiber.Ctx) error {
	cp, err := s.config.Checkpoints.Latest(c.UserContext(), c.Params("id"))
	if err != nil {
		s.logger.Error("checkpoint lookup failed", "thread_id", c.Params("id"), "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "failed to load checkpoint")
	}
	if cp == nil {
		return errorJSON(c, fiber.StatusNotFound, "thread has no checkpoints")
	}
	return c.JSON(cp)
}

func (s *Server) handleGetCheckpoint(c *fiber.Ctx) error {
	cp, err := s.config.Checkpoints.Get(c.UserContext(), c.Params("id"), c.Params("checkpoint"))
	if err != nil {
		if notFound(err) {
			return errorJSON(c, fiber.StatusNotFound, "checkpoint not found")
		}
		s.logger.Error("checkpoint lookup failed", "thread_id", c.Params("id"), "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "failed to load checkpoint")
	}
	return c.JSON(cp)
}

func (s *Server) handleDeleteThread(c *fiber.Ctx) error {
	n, err := s.config.Checkpoints.DeleteThread(c.UserContext(), c.Params("id"))
	if err != nil {
		s.logger.Error("thread delete failed", "thread_id", c.Params("id"), "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "failed to delete thread")
	}
	return c.JSON(map[string]any{
		"thread_id": c.Params("id"),
		"deleted":   n,
	})
}

func queryLimit(c *fiber.Ctx) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return n, nil
}

func notFound(err error) bool {
	var nf storage.NotFoundError
	return errors.As(err, &nf)
}
