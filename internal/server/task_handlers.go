package server

import (
	"strings"

	"studyhub/internal/database/dto"
	"studyhub/internal/database/models"
	"studyhub/internal/database/repositories"
	"studyhub/internal/events"

	"github.com/gofiber/fiber/v2"
)

// Non-admins only ever reach their own tasks; someone else's task answers
// 404 so its existence is not revealed.

func taskFromRequest(req dto.TaskRequest) models.Task {
	task := models.Task{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	}
	if task.Status == "" {
		task.Status = models.TaskTodo
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	return task
}

func (s *FiberServer) createTask(c *fiber.Ctx) error {
	req := dto.TaskRequest{}
	if err := bindBody(c, &req); err != nil {
		return err
	}
	task := taskFromRequest(req)
	task.UserID = currentUser(c).ID
	if err := s.tasks.Create(c.Context(), &task); err != nil {
		return err
	}
	s.publish(c.Context(), events.TaskCreated, task)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "task added successfully", "task": task})
}

func (s *FiberServer) getSingleTask(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	task, err := s.tasks.GetByID(c.Context(), id, ownerScope(currentUser(c)))
	if err != nil {
		return notFound(err, "task")
	}
	return c.JSON(fiber.Map{"task": task})
}

func (s *FiberServer) getAllTasks(c *fiber.Ctx) error {
	q := dto.TaskQuery{}
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	tasks, total, err := s.tasks.List(c.Context(), repositories.TaskFilter{
		UserID:   ownerScope(currentUser(c)),
		Q:        q.Q,
		Status:   q.Status,
		Priority: q.Priority,
		SortBy:   q.SortBy,
		Order:    q.Order,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.ListResponse[models.Task]{Data: tasks, Pagination: dto.NewPagination(total, q.Page)})
}

func (s *FiberServer) getPendingTasks(c *fiber.Ctx) error {
	tasks, err := s.tasks.GetPending(c.Context(), ownerScope(currentUser(c)))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"tasks": tasks})
}

func (s *FiberServer) updateTask(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	req := dto.TaskRequest{}
	if err := bindBody(c, &req); err != nil {
		return err
	}
	task := taskFromRequest(req)
	task.ID = id
	if err := s.tasks.Update(c.Context(), &task, ownerScope(currentUser(c))); err != nil {
		return notFound(err, "task")
	}
	return c.JSON(fiber.Map{"message": "task updated successfully", "task": task})
}

func (s *FiberServer) updateTaskStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	req := dto.TaskStatusRequest{}
	if err := bindBody(c, &req); err != nil {
		return err
	}
	task, err := s.tasks.UpdateStatus(c.Context(), id, req.Status, ownerScope(currentUser(c)))
	if err != nil {
		return notFound(err, "task")
	}
	return c.JSON(fiber.Map{"message": "task updated successfully", "task": task})
}

func (s *FiberServer) deleteTask(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(c.Context(), id, ownerScope(currentUser(c))); err != nil {
		return notFound(err, "task")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
