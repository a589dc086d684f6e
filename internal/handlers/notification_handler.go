package handlers

import (
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}

	list, err := h.notifications.List(c.UserContext(), actor)
	if err != nil {
		return respondError(c, "list_notifications", err)
	}
	return c.JSON(list)
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid notification id")
	}

	n, err := h.notifications.MarkRead(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, "mark_notification_read", err)
	}
	return c.JSON(n)
}
