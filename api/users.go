package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/tutor/pkg/memory"
	"github.com/papercomputeco/tutor/pkg/profile"
	"github.com/papercomputeco/tutor/pkg/stats"
	"github.com/papercomputeco/tutor/pkg/storage"
)

// ValidationErrorResponse is returned for a rejected profile update.
type ValidationErrorResponse struct {
	Error   string   `json:"error"`
	Field   string   `json:"field"`
	Value   string   `json:"value"`
	Allowed []string `json:"allowed"`
}

// MistakesResponse lists a learner's mistake patterns.
type MistakesResponse struct {
	UserID   string                      `json:"user_id"`
	Category string                      `json:"category,omitempty"`
	Count    int                         `json:"count"`
	Mistakes []*storage.RecurringMistake `json:"mistakes"`
}

func (s *Server) handleGetProfile(c *fiber.Ctx) error {
	p, err := s.config.Profiles.GetOrCreate(c.UserContext(), c.Params("id"))
	if err != nil {
		s.logger.Error("profile lookup failed", "user_id", c.Params("id"), "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "failed to load profile")
	}
	return c.JSON(p)
}

func (s *Server) handleUpdateProfile(c *fiber.Ctx) error {
	var u profile.Update
	if err := c.BodyParser(&u); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}

	updated, err := s.config.Profiles.Update(c.UserContext(), c.Params("id"), u)
	if err != nil {
		var verr *profile.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(ValidationErrorResponse{
				Error:   verr.Error(),
				Field:   verr.Field,
				Value:   verr.Value,
				Allowed: verr.Allowed,
			})
		}
		s.logger.Error("profile update failed", "user_id", c.Params("id"), "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "failed to update profile")
	}

	return c.JSON(updated)
}

func (s *Server) handleListMistakes(c *fiber.Ctx) error {
	userID := c.Params("id")
	category := c.Query("category")

	if category != "" && !memory.ValidCategory(category) {
		return errorJSON(c, fiber.StatusBadRequest, "unknown category: "+category)
	}

	var (
		found []*storage.RecurringMistake
		err   error
	)
	if category != "" {
		found, err = s.config.Mistakes.ByCategory(c.UserContext(), userID, category)
	} else {
		found, err = s.config.Mistakes.All(c.UserContext(), userID)
	}
	if err != nil {
		s.logger.Error("mistake lookup failed", "user_id", userID, "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "failed to list mistakes")
	}
	if found == nil {
		found = []*storage.RecurringMistake{}
	}

	return c.JSON(MistakesResponse{
		UserID:   userID,
		Category: category,
		Count:    len(found),
		Mistakes: found,
	})
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	days := stats.DefaultDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return errorJSON(c, fiber.StatusBadRequest, "days must be a positive integer")
		}
		days = n
	}

	report, err := s.config.Stats.Range(c.UserContext(), c.Params("id"), days)
	if err != nil {
		s.logger.Error("stats lookup failed", "user_id", c.Params("id"), "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "failed to load stats")
	}
	return c.JSON(report)
}
