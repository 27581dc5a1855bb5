package httpapi

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

// WeatherQuerier answers weather queries; *weather.Service implements it.
type WeatherQuerier interface {
	Query(ctx context.Context, city, units string) (weather.WeatherPayload, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. logger may be nil.
func RegisterRoutes(app *fiber.App, service WeatherQuerier, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	handle := func(c *fiber.Ctx, q weatherQuery) error {
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, validationMessage(err))
		}

		payload, err := service.Query(c.UserContext(), q.City, q.Units)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(payload)
	}

	app.Post("/api/weather", func(c *fiber.Ctx) error {
		var q weatherQuery
		if len(c.Body()) > 0 {
			// Unparseable bodies are treated as empty, like a missing city.
			if err := c.BodyParser(&q); err != nil {
				logger.Debug("ignoring unparseable request body",
					zap.Any("request_id", c.Locals("requestid")),
					zap.String("content_type", c.Get(fiber.HeaderContentType)),
					zap.Error(err),
				)
				q = weatherQuery{}
			}
		}
		return handle(c, q.normalize())
	})

	v1 := app.Group("/api/v1")
	v1.Get("/weather", func(c *fiber.Ctx) error {
		q := weatherQuery{
			City:  c.Query("city"),
			Units: c.Query("units"),
		}
		return handle(c, q.normalize())
	})
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// weatherQuery holds the inbound parameters of a weather lookup.
type weatherQuery struct {
	City  string `json:"city" form:"city" validate:"required"`
	Units string `json:"units" form:"units" validate:"oneof=metric imperial"`
}

func (q weatherQuery) normalize() weatherQuery {
	q.City = strings.TrimSpace(q.City)
	q.Units = strings.ToLower(strings.TrimSpace(q.Units))
	if q.Units == "" {
		q.Units = string(weather.Metric)
	}
	return q
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Field() {
		case "City":
			return "City is required"
		case "Units":
			return "Units must be metric or imperial"
		}
	}
	return err.Error()
}

// toHTTPError maps service errors onto status codes: bad input is 400, an
// upstream rejection is 404 with the upstream's message, an unreachable
// upstream is 502.
func toHTTPError(err error) error {
	var ve *weather.ValidationError
	if errors.As(err, &ve) {
		return fiber.NewError(fiber.StatusBadRequest, ve.Message)
	}
	var ue *weather.UpstreamError
	if errors.As(err, &ue) {
		if ue.Kind == weather.UpstreamApplication {
			return fiber.NewError(fiber.StatusNotFound, ue.Message)
		}
		return fiber.NewError(fiber.StatusBadGateway, ue.Message)
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
}
