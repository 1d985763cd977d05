package relay

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Handler exposes the relay endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler builds the relay HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

// SendLoginCodeRequest is the body of POST /send-login-code.
type SendLoginCodeRequest struct {
	Email string `json:"email" validate:"required"`
}

// VerifyCodeRequest is the body of POST /verify-code.
type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required"`
	Code  string `json:"code" validate:"required"`
}

// SendLoginCode relays a code request to the provider.
func (h *Handler) SendLoginCode(c *fiber.Ctx) error {
	var req SendLoginCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, msgInvalidBody)
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, msgEmailRequired)
	}

	result, err := h.service.SendLoginCode(c.UserContext(), req.Email)
	if err != nil {
		return toFiberError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    result.Data,
	})
}

// VerifyCode checks a code and returns the user plus their wallet.
func (h *Handler) VerifyCode(c *fiber.Ctx) error {
	var req VerifyCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, msgInvalidBody)
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, msgEmailAndCodeRequired)
	}

	result, err := h.service.VerifyCode(c.UserContext(), req.Email, req.Code)
	if err != nil {
		return toFiberError(err)
	}

	body := fiber.Map{
		"success": true,
		"userId":  result.UserID,
		"user":    result.User,
		"wallet":  result.Wallet,
	}
	if result.Wallet == nil {
		body["wallet"] = nil
		body["error"] = result.WalletError
		body["message"] = msgWalletFailed
	}
	return c.Status(http.StatusOK).JSON(body)
}

func toFiberError(err error) error {
	var (
		providerErr *ProviderError
		upstreamErr *UpstreamError
	)
	switch {
	case errors.Is(err, ErrEmailRequired):
		return fiber.NewError(http.StatusBadRequest, msgEmailRequired)
	case errors.Is(err, ErrEmailAndCodeRequired):
		return fiber.NewError(http.StatusBadRequest, msgEmailAndCodeRequired)
	case errors.Is(err, ErrUserIDMissing):
		return fiber.NewError(http.StatusBadRequest, msgUserIDMissing)
	case errors.Is(err, ErrNotConfigured):
		return fiber.NewError(http.StatusInternalServerError, msgNotConfigured)
	case errors.As(err, &providerErr):
		return fiber.NewError(providerErr.Status, string(providerErr.Body))
	case errors.As(err, &upstreamErr):
		return fiber.NewError(http.StatusInternalServerError, upstreamErr.Message())
	default:
		return err
	}
}
