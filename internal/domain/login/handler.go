package login

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Anvoria/scanly/internal/domain/signature"
)

// Handler exposes the scan-to-login protocol. Protocol endpoints always
// answer 200 with a success flag — polling clients drive the retry loop,
// and a failed poll is an expected outcome, not a transport error.
type Handler struct {
	service *Service
}

// NewHandler creates a new login handler
func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func ok(c *fiber.Ctx, fields fiber.Map) error {
	body := fiber.Map{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	return c.JSON(body)
}

func fail(c *fiber.Ctx, message string) error {
	return c.JSON(fiber.Map{"success": false, "message": message})
}

// ClientIP picks the original client address: the proxy headers in priority
// order, then the transport remote address.
func ClientIP(c *fiber.Ctx) string {
	for _, header := range []string{"X-Forwarded-For", "X-Real-IP", "CF-Connecting-IP"} {
		if v := c.Get(header); v != "" {
			return v
		}
	}
	return c.IP()
}

// Generate opens a new login attempt.
func (h *Handler) Generate(c *fiber.Ctx) error {
	res, err := h.service.Generate(ClientIP(c), c.Get("User-Agent"))
	if err != nil {
		return fail(c, MsgSessionGone)
	}

	return ok(c, fiber.Map{
		"sceneId":   res.SceneID,
		"qrCodeUrl": res.QRCodeURL,
		"expiresAt": res.ExpiresAt,
		"timestamp": res.Timestamp,
	})
}

// Status is the poll endpoint for the initiating client.
func (h *Handler) Status(c *fiber.Ctx) error {
	var req StatusRequest
	if err := c.BodyParser(&req); err != nil || req.SceneID == "" {
		return fail(c, MsgInvalidScene)
	}

	res, err := h.service.Status(req.SceneID)
	switch {
	case errors.Is(err, ErrInvalidScene):
		return fail(c, MsgInvalidScene)
	case err != nil:
		return fail(c, MsgSessionGone)
	}

	fields := fiber.Map{"status": res.Status}
	if res.UserInfo != nil {
		fields["userInfo"] = res.UserInfo
	}
	return ok(c, fields)
}

// Scan claims a waiting session for the scanning device.
func (h *Handler) Scan(c *fiber.Ctx) error {
	var req ScanRequest
	if err := c.BodyParser(&req); err != nil || req.SceneID == "" || req.Signature == "" {
		return fail(c, MsgSessionGone)
	}
	if req.Device.UserAgent == "" {
		req.Device.UserAgent = c.Get("User-Agent")
	}

	err := h.service.Scan(c.Context(), req)
	switch {
	case errors.Is(err, ErrAlreadyScanned):
		return fail(c, MsgAlreadyScanned)
	case err != nil:
		// Signature, window, replay and not-found all collapse here
		return fail(c, MsgSessionGone)
	}

	return ok(c, fiber.Map{"message": MsgScanOK, "sceneId": req.SceneID})
}

// Confirm approves the login and returns the issued token.
func (h *Handler) Confirm(c *fiber.Ctx) error {
	var req ConfirmRequest
	if err := c.BodyParser(&req); err != nil || req.SceneID == "" || req.UserID == "" {
		return fail(c, MsgSessionGone)
	}

	res, err := h.service.Confirm(req.SceneID, req.UserID)
	if err != nil {
		return fail(c, MsgSessionGone)
	}

	return ok(c, fiber.Map{"token": res.Token, "userInfo": res.UserInfo})
}

// Verify is the standalone signature check; the only endpoint where expiry
// and mismatch stay distinguishable.
func (h *Handler) Verify(c *fiber.Ctx) error {
	var req SignedRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, MsgBadSignature)
	}

	err := h.service.VerifySignature(c.Context(), req)
	switch {
	case errors.Is(err, signature.ErrExpired):
		return fail(c, MsgSceneExpired)
	case err != nil:
		return fail(c, MsgBadSignature)
	}

	return ok(c, fiber.Map{"message": MsgVerifyOK})
}

// PasswordLogin authenticates the companion app with credentials.
func (h *Handler) PasswordLogin(c *fiber.Ctx) error {
	var req PasswordLoginRequest
	if err := c.BodyParser(&req); err != nil || req.Username == "" || req.Password == "" {
		return fail(c, "invalid_body")
	}
	if req.Device.UserAgent == "" {
		req.Device.UserAgent = c.Get("User-Agent")
	}

	res, err := h.service.PasswordLogin(req)
	if err != nil {
		// Wrong user and wrong password answer identically
		return fail(c, "invalid_credentials")
	}

	return ok(c, fiber.Map{
		"token":    res.Token,
		"deviceId": res.DeviceID,
		"userInfo": res.UserInfo,
	})
}

// Devices lists the caller's logged-in devices. Requires a bearer token.
func (h *Handler) Devices(c *fiber.Ctx) error {
	identity := GetIdentity(c)
	if identity == nil {
		return fail(c, "unauthorized")
	}

	return ok(c, fiber.Map{"devices": h.service.ActiveDevices(identity.UserID)})
}

// LogoutAll terminates every session of the caller. Requires a bearer token.
func (h *Handler) LogoutAll(c *fiber.Ctx) error {
	identity := GetIdentity(c)
	if identity == nil {
		return fail(c, "unauthorized")
	}

	count := h.service.LogoutAll(identity.UserID)
	return ok(c, fiber.Map{"count": count})
}
