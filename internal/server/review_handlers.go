package server

import (
	"strings"

	"studyhub/internal/apperr"
	"studyhub/internal/database/dto"
	"studyhub/internal/database/models"
	"studyhub/internal/database/repositories"
	"studyhub/internal/events"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func (s *FiberServer) createReview(c *fiber.Ctx) error {
	req := dto.ReviewRequest{}
	if err := bindBody(c, &req); err != nil {
		return err
	}
	review := models.Review{
		PlaceName: strings.TrimSpace(req.PlaceName),
		Rating:    req.Rating,
		Comment:   req.Comment,
		Status:    models.ReviewPending,
		UserID:    currentUser(c).ID,
	}
	if err := s.reviews.Create(c.Context(), &review); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "review submitted for moderation", "review": review})
}

func (s *FiberServer) getAllReviews(c *fiber.Ctx) error {
	q := dto.ReviewQuery{}
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	user := currentUser(c)
	reviews, total, err := s.reviews.List(c.Context(), repositories.ReviewFilter{
		ViewerID: user.ID,
		Admin:    user.IsAdmin(),
		Mine:     q.Mine,
		Status:   q.Status,
		Q:        q.Q,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.ListResponse[models.Review]{Data: reviews, Pagination: dto.NewPagination(total, q.Page)})
}

// loadReview fetches the review named by the :id parameter.
func (s *FiberServer) loadReview(c *fiber.Ctx) (*models.Review, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}
	review, err := s.reviews.GetByID(c.Context(), id)
	if err != nil {
		return nil, notFound(err, "review")
	}
	return review, nil
}

func canManage(user *models.User, owner uuid.UUID) bool {
	return user.IsAdmin() || user.ID == owner
}

func (s *FiberServer) getSingleReview(c *fiber.Ctx) error {
	review, err := s.loadReview(c)
	if err != nil {
		return err
	}
	if review.Status != models.ReviewApproved && !canManage(currentUser(c), review.UserID) {
		return apperr.Forbidden("you cannot view this review")
	}
	return c.JSON(fiber.Map{"review": review})
}

// updateReview sends a review edited by its author back to moderation.
// Approved reviews are frozen for everyone but admins.
func (s *FiberServer) updateReview(c *fiber.Ctx) error {
	review, err := s.loadReview(c)
	if err != nil {
		return err
	}
	user := currentUser(c)
	if !canManage(user, review.UserID) {
		return apperr.Forbidden("you can only edit your own reviews")
	}
	if !user.IsAdmin() && review.Status == models.ReviewApproved {
		return apperr.BadRequest("approved reviews can no longer be edited")
	}

	req := dto.ReviewRequest{}
	if err := bindBody(c, &req); err != nil {
		return err
	}
	review.PlaceName = strings.TrimSpace(req.PlaceName)
	review.Rating = req.Rating
	review.Comment = req.Comment
	if !user.IsAdmin() {
		review.Status = models.ReviewPending
	}
	if err := s.reviews.Update(c.Context(), review); err != nil {
		return notFound(err, "review")
	}
	return c.JSON(fiber.Map{"message": "review updated successfully", "review": review})
}

func (s *FiberServer) moderateReview(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	req := dto.ModerationRequest{}
	if err := bindBody(c, &req); err != nil {
		return err
	}
	review, err := s.reviews.SetStatus(c.Context(), id, req.Status)
	if err != nil {
		return notFound(err, "review")
	}
	s.publish(c.Context(), events.ReviewModerated, fiber.Map{
		"review_id":    review.ID,
		"status":       review.Status,
		"moderated_by": currentUser(c).ID,
	})
	return c.JSON(fiber.Map{"message": "review moderated", "review": review})
}

func (s *FiberServer) deleteReview(c *fiber.Ctx) error {
	review, err := s.loadReview(c)
	if err != nil {
		return err
	}
	if !canManage(currentUser(c), review.UserID) {
		return apperr.Forbidden("you can only delete your own reviews")
	}
	if err := s.reviews.Delete(c.Context(), review.ID); err != nil {
		return notFound(err, "review")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
