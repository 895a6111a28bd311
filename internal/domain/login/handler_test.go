package login

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestApp wires a fiber app with the same route table the server uses.
func newTestApp(t *testing.T) (*fiber.App, *fixture) {
	t.Helper()

	f := newFixture(t, 0, nil)
	h := NewHandler(f.svc)

	app := fiber.New()
	grp := app.Group("/login")
	grp.Post("/generate", h.Generate)
	grp.Post("/status", h.Status)
	grp.Post("/scan", h.Scan)
	grp.Post("/confirm", h.Confirm)
	grp.Post("/verify", h.Verify)
	grp.Post("/password", h.PasswordLogin)

	authed := grp.Group("", AuthMiddleware(f.svc))
	authed.Get("/devices", h.Devices)
	authed.Post("/logout-all", h.LogoutAll)

	return app, f
}

// do sends a JSON request and decodes the JSON answer.
func do(t *testing.T, app *fiber.App, method, path string, body any, header map[string]string) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func TestHandler_Generate(t *testing.T) {
	app, _ := newTestApp(t)

	code, body := do(t, app, "POST", "/login/generate", nil, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["sceneId"])
	assert.Contains(t, body["qrCodeUrl"], "sceneId=")
	assert.NotEmpty(t, body["expiresAt"])
}

func TestHandler_Status(t *testing.T) {
	app, _ := newTestApp(t)

	_, generated := do(t, app, "POST", "/login/generate", nil, nil)
	sceneID := generated["sceneId"].(string)

	t.Run("waiting session", func(t *testing.T) {
		code, body := do(t, app, "POST", "/login/status", StatusRequest{SceneID: sceneID}, nil)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "waiting", body["status"])
		assert.NotContains(t, body, "userInfo")
	})

	t.Run("malformed scene ID", func(t *testing.T) {
		code, body := do(t, app, "POST", "/login/status", StatusRequest{SceneID: "garbage"}, nil)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, MsgInvalidScene, body["message"])
	})

	t.Run("missing scene ID", func(t *testing.T) {
		code, body := do(t, app, "POST", "/login/status", StatusRequest{}, nil)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, MsgInvalidScene, body["message"])
	})

	t.Run("unknown scene ID", func(t *testing.T) {
		code, body := do(t, app, "POST", "/login/status", StatusRequest{SceneID: timestampScene(time.Now().UnixMilli())}, nil)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, MsgSessionGone, body["message"])
	})
}

// timestampScene builds a well-formed scene ID that was never issued.
func timestampScene(ms int64) string {
	return strconv.FormatInt(ms, 10) + "-deadbeef"
}

func TestHandler_ScanConfirmFlow(t *testing.T) {
	app, f := newTestApp(t)

	_, generated := do(t, app, "POST", "/login/generate", nil, nil)
	sceneID := generated["sceneId"].(string)

	scanBody := func() ScanRequest {
		return ScanRequest{SignedRequest: f.signed(sceneID), Device: testSignals}
	}

	t.Run("bad signature answers like unknown scene", func(t *testing.T) {
		req := scanBody()
		req.Signature = "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"
		code, body := do(t, app, "POST", "/login/scan", req, nil)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, MsgSessionGone, body["message"])
	})

	t.Run("scan succeeds", func(t *testing.T) {
		code, body := do(t, app, "POST", "/login/scan", scanBody(), nil)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, MsgScanOK, body["message"])
		assert.Equal(t, sceneID, body["sceneId"])
	})

	t.Run("second scan is rejected", func(t *testing.T) {
		code, body := do(t, app, "POST", "/login/scan", scanBody(), nil)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, MsgAlreadyScanned, body["message"])
	})

	t.Run("status reports scanned", func(t *testing.T) {
		_, body := do(t, app, "POST", "/login/status", StatusRequest{SceneID: sceneID}, nil)
		assert.Equal(t, "scanned", body["status"])
	})

	t.Run("confirm issues token and user info", func(t *testing.T) {
		code, body := do(t, app, "POST", "/login/confirm", ConfirmRequest{SceneID: sceneID, UserID: f.userID}, nil)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, body["success"])
		assert.NotEmpty(t, body["token"])

		claims, err := f.tokens.Verify(body["token"].(string))
		require.NoError(t, err)
		assert.Equal(t, f.userID, claims.UserID)

		info := body["userInfo"].(map[string]any)
		assert.Equal(t, f.userID, info["id"])
		assert.Equal(t, "alice", info["username"])
	})

	t.Run("status reports confirmed with user info", func(t *testing.T) {
		_, body := do(t, app, "POST", "/login/status", StatusRequest{SceneID: sceneID}, nil)
		assert.Equal(t, "confirmed", body["status"])
		info, ok := body["userInfo"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, f.userID, info["id"])
		assert.NotContains(t, body, "token", "the poll answer must never carry the token")
	})

	t.Run("confirm on unknown scene", func(t *testing.T) {
		code, body := do(t, app, "POST", "/login/confirm", ConfirmRequest{SceneID: timestampScene(time.Now().UnixMilli()), UserID: f.userID}, nil)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, MsgSessionGone, body["message"])
	})
}

func TestHandler_Verify(t *testing.T) {
	app, f := newTestApp(t)

	_, generated := do(t, app, "POST", "/login/generate", nil, nil)
	sceneID := generated["sceneId"].(string)

	t.Run("valid signature", func(t *testing.T) {
		code, body := do(t, app, "POST", "/login/verify", f.signed(sceneID), nil)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, MsgVerifyOK, body["message"])
	})

	t.Run("tampered signature", func(t *testing.T) {
		req := f.signed(sceneID)
		req.Nonce = req.Nonce + "x"
		_, body := do(t, app, "POST", "/login/verify", req, nil)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, MsgBadSignature, body["message"])
	})

	t.Run("expired timestamp is reported as such", func(t *testing.T) {
		ts := time.Now().Add(-31 * time.Minute).UnixMilli()
		req := SignedRequest{
			SceneID:   sceneID,
			Timestamp: ts,
			Nonce:     "n1",
			Signature: f.signer.Sign(sceneID, ts, "n1"),
		}
		_, body := do(t, app, "POST", "/login/verify", req, nil)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, MsgSceneExpired, body["message"])
	})
}

func TestHandler_DeviceEndpoints(t *testing.T) {
	app, f := newTestApp(t)

	// Walk the whole flow once to earn a bearer token
	_, generated := do(t, app, "POST", "/login/generate", nil, nil)
	sceneID := generated["sceneId"].(string)
	_, scanned := do(t, app, "POST", "/login/scan", ScanRequest{SignedRequest: f.signed(sceneID), Device: testSignals}, nil)
	require.Equal(t, true, scanned["success"])
	_, confirmed := do(t, app, "POST", "/login/confirm", ConfirmRequest{SceneID: sceneID, UserID: f.userID}, nil)
	require.Equal(t, true, confirmed["success"])
	bearer := map[string]string{"Authorization": "Bearer " + confirmed["token"].(string)}

	t.Run("devices without token", func(t *testing.T) {
		code, body := do(t, app, "GET", "/login/devices", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, false, body["success"])
	})

	t.Run("devices with garbage token", func(t *testing.T) {
		code, body := do(t, app, "GET", "/login/devices", nil, map[string]string{"Authorization": "Bearer garbage"})
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "invalid_token", body["message"])
	})

	t.Run("devices lists the confirmed session", func(t *testing.T) {
		code, body := do(t, app, "GET", "/login/devices", nil, bearer)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, body["success"])

		devices, ok := body["devices"].([]any)
		require.True(t, ok)
		require.Len(t, devices, 1)
		entry := devices[0].(map[string]any)
		assert.Equal(t, sceneID, entry["sceneId"])
	})

	t.Run("logout-all terminates everything", func(t *testing.T) {
		code, body := do(t, app, "POST", "/login/logout-all", nil, bearer)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, float64(1), body["count"])

		// The bearer token itself stays valid; only sessions are gone
		_, body = do(t, app, "GET", "/login/devices", nil, bearer)
		assert.Equal(t, true, body["success"])
		devices, _ := body["devices"].([]any)
		assert.Empty(t, devices)
	})
}

func TestHandler_PasswordLogin(t *testing.T) {
	app, f := newTestApp(t)

	t.Run("valid credentials", func(t *testing.T) {
		code, body := do(t, app, "POST", "/login/password", PasswordLoginRequest{Username: "alice", Password: "correct-horse", Device: testSignals}, nil)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, body["success"])
		assert.NotEmpty(t, body["token"])
		assert.NotEmpty(t, body["deviceId"])

		info := body["userInfo"].(map[string]any)
		assert.Equal(t, f.userID, info["id"])
	})

	t.Run("wrong password", func(t *testing.T) {
		code, body := do(t, app, "POST", "/login/password", PasswordLoginRequest{Username: "alice", Password: "nope", Device: testSignals}, nil)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "invalid_credentials", body["message"])
	})

	t.Run("missing fields", func(t *testing.T) {
		_, body := do(t, app, "POST", "/login/password", map[string]any{"username": "alice"}, nil)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "invalid_body", body["message"])
	})
}
