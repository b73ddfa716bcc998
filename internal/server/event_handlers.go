package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"studyhub/internal/apperr"
	"studyhub/internal/database"
	"studyhub/internal/database/dto"
	"studyhub/internal/database/models"
	"studyhub/internal/database/repositories"
	"studyhub/internal/events"
	"studyhub/internal/notify"

	"github.com/gofiber/fiber/v2"
)

func (s *FiberServer) listEvents(c *fiber.Ctx) error {
	q := dto.EventQuery{}
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	list, total, err := s.events.List(c.Context(), repositories.EventFilter{
		Q:        q.Q,
		Upcoming: q.Upcoming,
		From:     time.Now(),
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.ListResponse[models.Event]{Data: list, Pagination: dto.NewPagination(total, q.Page)})
}

func (s *FiberServer) getEvent(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	event, err := s.events.GetByID(c.Context(), id)
	if err != nil {
		return notFound(err, "event")
	}
	return c.JSON(fiber.Map{"event": event})
}

func eventFromRequest(req dto.EventRequest) models.Event {
	return models.Event{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Location:    strings.TrimSpace(req.Location),
		StartsAt:    req.StartsAt,
		Capacity:    req.Capacity,
	}
}

func (s *FiberServer) createEvent(c *fiber.Ctx) error {
	req := dto.EventRequest{}
	if err := bindBody(c, &req); err != nil {
		return err
	}
	event := eventFromRequest(req)
	creator := currentUser(c).ID
	event.CreatedBy = &creator
	if err := s.events.Create(c.Context(), &event); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "event created successfully", "event": event})
}

func (s *FiberServer) updateEvent(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	req := dto.EventRequest{}
	if err := bindBody(c, &req); err != nil {
		return err
	}
	event := eventFromRequest(req)
	event.ID = id
	err = s.events.Update(c.Context(), &event)
	if errors.Is(err, repositories.ErrCapacityTooLow) {
		return apperr.Conflict("CAPACITY_TOO_LOW", "capacity cannot be lower than the confirmed bookings")
	}
	if err != nil {
		return notFound(err, "event")
	}
	return c.JSON(fiber.Map{"message": "event updated successfully", "event": event})
}

func (s *FiberServer) deleteEvent(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := s.events.Delete(c.Context(), id); err != nil {
		return notFound(err, "event")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func bookingError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrEventFull):
		return apperr.Conflict("EVENT_FULL", "event is fully booked")
	case errors.Is(err, database.ErrUniqueViolation):
		return apperr.Conflict("ALREADY_BOOKED", "you have already booked this event")
	}
	return err
}

func (s *FiberServer) createBooking(c *fiber.Ctx) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	user := currentUser(c)
	booking, err := s.bookings.Create(c.Context(), eventID, user.ID)
	if err != nil {
		return notFound(bookingError(err), "event")
	}

	if event, err := s.events.GetByID(c.Context(), eventID); err == nil {
		s.mail.Enqueue(notify.Message{
			To:      user.Email,
			Subject: "Booking confirmed: " + event.Title,
			Text: fmt.Sprintf("Hi %s,\n\nYour seat for %q on %s is confirmed.\n",
				user.FirstName, event.Title, event.StartsAt.Format(time.RFC1123)),
		})
	}
	s.publish(c.Context(), events.BookingCreated, booking)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "booking confirmed", "booking": booking})
}

func (s *FiberServer) listBookings(c *fiber.Ctx) error {
	q := dto.Page{}
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	list, total, err := s.bookings.List(c.Context(), ownerScope(currentUser(c)), q.Limit, q.Offset)
	if err != nil {
		return err
	}
	return c.JSON(dto.ListResponse[models.Booking]{Data: list, Pagination: dto.NewPagination(total, q)})
}

func (s *FiberServer) loadBooking(c *fiber.Ctx) (*models.Booking, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}
	booking, err := s.bookings.GetByID(c.Context(), id)
	if err != nil {
		return nil, notFound(err, "booking")
	}
	if !canManage(currentUser(c), booking.UserID) {
		return nil, apperr.Forbidden("you can only manage your own bookings")
	}
	return booking, nil
}

func (s *FiberServer) updateBooking(c *fiber.Ctx) error {
	booking, err := s.loadBooking(c)
	if err != nil {
		return err
	}
	req := dto.BookingStatusRequest{}
	if err := bindBody(c, &req); err != nil {
		return err
	}
	updated, err := s.bookings.UpdateStatus(c.Context(), booking.ID, req.Status)
	if err != nil {
		return notFound(bookingError(err), "booking")
	}
	s.publish(c.Context(), events.BookingChanged, updated)
	return c.JSON(fiber.Map{"message": "booking updated successfully", "booking": updated})
}

func (s *FiberServer) deleteBooking(c *fiber.Ctx) error {
	booking, err := s.loadBooking(c)
	if err != nil {
		return err
	}
	if err := s.bookings.Delete(c.Context(), booking.ID); err != nil {
		return notFound(err, "booking")
	}
	s.publish(c.Context(), events.BookingChanged, fiber.Map{"booking_id": booking.ID, "deleted": true})
	return c.SendStatus(fiber.StatusNoContent)
}
