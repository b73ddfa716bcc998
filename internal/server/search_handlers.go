package server

import (
	"studyhub/internal/database/dto"

	"github.com/gofiber/fiber/v2"
)

func (s *FiberServer) searchHandler(c *fiber.Ctx) error {
	q := dto.SearchQuery{}
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	user := currentUser(c)
	result, err := s.search.SearchQuery(c.Context(), q.Q, user.ID, user.IsAdmin(), q.Limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"query": q.Q, "results": result})
}
