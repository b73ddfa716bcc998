package server

import (
	"studyhub/internal/database/dto"
	"studyhub/internal/database/models"

	"github.com/gofiber/fiber/v2"
)

func (s *FiberServer) listMovies(c *fiber.Ctx) error {
	q := dto.MovieQuery{}
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	list, total, err := s.catalog.List(q)
	if err != nil {
		return err
	}
	return c.JSON(dto.ListResponse[models.Movie]{Data: list, Pagination: dto.NewPagination(total, q.Page)})
}

func (s *FiberServer) getMovie(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	movie, err := s.catalog.Get(id)
	if err != nil {
		return notFound(err, "movie")
	}
	return c.JSON(fiber.Map{"movie": movie})
}

func (s *FiberServer) createMovie(c *fiber.Ctx) error {
	req := dto.MovieRequest{}
	if err := bindBody(c, &req); err != nil {
		return err
	}
	movie, err := s.catalog.Create(req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "movie added successfully", "movie": movie})
}

func (s *FiberServer) updateMovie(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	req := dto.MovieRequest{}
	if err := bindBody(c, &req); err != nil {
		return err
	}
	movie, err := s.catalog.Update(id, req)
	if err != nil {
		return notFound(err, "movie")
	}
	return c.JSON(fiber.Map{"message": "movie updated successfully", "movie": movie})
}

func (s *FiberServer) deleteMovie(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := s.catalog.Delete(id); err != nil {
		return notFound(err, "movie")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
