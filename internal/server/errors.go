package server

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"studyhub/internal/apperr"
	"studyhub/internal/database"
	"studyhub/internal/movies"
	"studyhub/internal/notify"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

// errorHandler renders every error returned by a handler or middleware as
// {status, message, code[, errors]}.
func (s *FiberServer) errorHandler(c *fiber.Ctx, err error) error {
	e := s.toAppError(c, err)
	if e.RetryAfter > 0 {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(e.RetryAfter))
	}

	status := "fail"
	if e.Status >= fiber.StatusInternalServerError {
		status = "error"
	}
	body := fiber.Map{
		"status":  status,
		"message": e.Message,
		"code":    e.Code,
	}
	if len(e.Fields) > 0 {
		body["errors"] = e.Fields
	}
	return c.Status(e.Status).JSON(body)
}

func (s *FiberServer) toAppError(c *fiber.Ctx, err error) *apperr.Error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return apperr.New(fiberErr.Code, statusCode(fiberErr.Code), fiberErr.Message)
	}

	switch {
	case errors.Is(err, database.ErrNotFound), errors.Is(err, movies.ErrNotFound):
		return apperr.NotFound("resource")
	case errors.Is(err, database.ErrUniqueViolation):
		return apperr.Conflict("CONFLICT", "resource already exists")
	case errors.Is(err, database.ErrForeignKeyViolation):
		return apperr.New(fiber.StatusUnprocessableEntity, "INVALID_REFERENCE", "referenced record does not exist")
	case errors.Is(err, database.ErrCheckViolation):
		return apperr.New(fiber.StatusUnprocessableEntity, "VALIDATION_ERROR", "value violates a constraint")
	}

	s.log.Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Any("request_id", c.Locals("requestid")),
		zap.Error(err),
	)
	return apperr.New(fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// statusCode turns an HTTP status into an error code, e.g. 413 becomes
// REQUEST_ENTITY_TOO_LARGE.
func statusCode(status int) string {
	msg := utils.StatusMessage(status)
	if msg == "" {
		return "ERROR"
	}
	return strings.ToUpper(strings.NewReplacer(" ", "_", "-", "_").Replace(msg))
}

// inlineMail sends mail on the calling goroutine. It stands in for the
// worker pool dispatcher when none is configured.
type inlineMail struct {
	mailer notify.Mailer
}

func (m inlineMail) Enqueue(msg notify.Message) bool {
	return m.mailer.Send(context.Background(), msg) == nil
}

// notFound names the missing resource in the 404 message.
func notFound(err error, what string) error {
	if errors.Is(err, database.ErrNotFound) || errors.Is(err, movies.ErrNotFound) {
		return apperr.NotFound(what)
	}
	return err
}
