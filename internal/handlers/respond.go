package handlers

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/store"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

var validate = validator.New()

// statusFor maps service errors to HTTP status codes. Unknown errors are 500.
var statusFor = []struct {
	err    error
	status int
}{
	{services.ErrInvalidAmount, fiber.StatusBadRequest},
	{services.ErrInvalidPaymentMethod, fiber.StatusBadRequest},
	{services.ErrInvalidPlan, fiber.StatusBadRequest},
	{services.ErrInvalidDate, fiber.StatusBadRequest},
	{services.ErrInsufficientFunds, fiber.StatusPaymentRequired},
	{services.ErrNotFound, fiber.StatusNotFound},
	{services.ErrSubscriptionNotAssigned, fiber.StatusNotFound},
	{services.ErrForbidden, fiber.StatusForbidden},
	{services.ErrDuplicateRequest, fiber.StatusConflict},
	{services.ErrAlreadyProcessed, fiber.StatusConflict},
	{services.ErrAlreadyRefunded, fiber.StatusConflict},
	{services.ErrAlreadyAssigned, fiber.StatusConflict},
	{services.ErrPlanInUse, fiber.StatusConflict},
	{services.ErrEmailTaken, fiber.StatusConflict},
	{services.ErrInvalidCredentials, fiber.StatusUnauthorized},
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

// respondError writes err as an ErrorResponse. Server-side failures are
// logged with the request's context attributes and answered without details.
func respondError(c *fiber.Ctx, action string, err error) error {
	for _, m := range statusFor {
		if errors.Is(err, m.err) {
			return fail(c, m.status, err.Error())
		}
	}

	attrs := []any{
		"action", action,
		"method", c.Method(),
		"path", c.Path(),
		"error", err.Error(),
	}
	if errors.Is(err, store.ErrPersistence) {
		slog.ErrorContext(c.UserContext(), "persistence failure", attrs...)
	} else {
		slog.ErrorContext(c.UserContext(), "unexpected error", attrs...)
	}
	return fail(c, fiber.StatusInternalServerError, "Internal server error")
}

// parseBody decodes and validates the JSON body into dst.
func parseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return errors.New("Invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.Newf("invalid field %s: failed %s", fe.Field(), fe.Tag())
		}
		return errors.New("Invalid request body")
	}
	return nil
}

func actorOf(c *fiber.Ctx) (services.Actor, bool) {
	actor, err := identity.GetActor(c)
	return actor, err == nil
}

func unauthorized(c *fiber.Ctx) error {
	return fail(c, fiber.StatusUnauthorized, "Unauthorized")
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

func pageOf(c *fiber.Ctx) store.Page {
	offset, err := strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return store.Page{Offset: offset, Limit: limit}
}

// parseDay reads an optional YYYY-MM-DD date.
func parseDay(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	day, err := time.ParseInLocation(time.DateOnly, *s, time.UTC)
	if err != nil {
		return nil, errors.Mark(errors.Newf("invalid date %q", *s), services.ErrInvalidDate)
	}
	return &day, nil
}
