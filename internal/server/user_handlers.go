package server

import (
	"studyhub/internal/apperr"
	"studyhub/internal/database/dto"
	"studyhub/internal/database/models"

	"github.com/gofiber/fiber/v2"
)

func (s *FiberServer) listUsers(c *fiber.Ctx) error {
	q := dto.UserQuery{}
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	users, total, err := s.users.List(c.Context(), q.Q, q.Limit, q.Offset)
	if err != nil {
		return err
	}
	return c.JSON(dto.ListResponse[models.User]{Data: users, Pagination: dto.NewPagination(total, q.Page)})
}

func (s *FiberServer) updateUserRole(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	req := dto.UpdateRoleRequest{}
	if err := bindBody(c, &req); err != nil {
		return err
	}
	user, err := s.users.UpdateRole(c.Context(), id, req.Role)
	if err != nil {
		return notFound(err, "user")
	}
	return c.JSON(fiber.Map{"message": "role updated successfully", "user": user})
}

// updateUserStatus also revokes every refresh token of a deactivated user.
func (s *FiberServer) updateUserStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	req := dto.UpdateUserStatusRequest{}
	if err := bindBody(c, &req); err != nil {
		return err
	}
	active := *req.IsActive
	if id == currentUser(c).ID && !active {
		return apperr.BadRequest("you cannot deactivate your own account")
	}

	user, err := s.users.SetActive(c.Context(), id, active)
	if err != nil {
		return notFound(err, "user")
	}
	if !active {
		if err := s.authStore.DeleteRefreshByUser(c.Context(), id); err != nil {
			return err
		}
	}
	return c.JSON(fiber.Map{"message": "status updated successfully", "user": user})
}
