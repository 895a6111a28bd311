package login

import (
	"errors"
	"time"

	"github.com/Anvoria/scanly/internal/domain/device"
	"github.com/Anvoria/scanly/internal/domain/user"
)

// Client-facing protocol messages. The wire format is fixed; these strings
// are part of the protocol, not display text.
const (
	MsgInvalidScene   = "无效的sceneId"
	MsgSessionGone    = "会话不存在或已过期"
	MsgAlreadyScanned = "二维码已被扫描"
	MsgScanOK         = "扫码成功"
	MsgVerifyOK       = "验证成功"
	MsgBadSignature   = "签名验证失败"
	MsgSceneExpired   = "二维码已过期"
)

var (
	// ErrInvalidScene is returned for a malformed or stale scene ID
	ErrInvalidScene = errors.New("invalid scene ID")
	// ErrSessionGone covers missing, expired and otherwise unusable
	// sessions. Signature failures on scan/confirm collapse into it too,
	// so responses never reveal whether a scene exists.
	ErrSessionGone = errors.New("session not found or expired")
	// ErrAlreadyScanned is returned when a second device scans a claimed
	// code. An ordinary operational outcome, deliberately not collapsed.
	ErrAlreadyScanned = errors.New("code already scanned")
)

// GenerateResult is what a new login attempt hands to the initiating client.
type GenerateResult struct {
	SceneID   string    `json:"sceneId"`
	QRCodeURL string    `json:"qrCodeUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
	Timestamp int64     `json:"timestamp"`
}

// StatusResult is the poll answer for the initiating client.
type StatusResult struct {
	Status   string     `json:"status"`
	UserInfo *user.Info `json:"userInfo,omitempty"`
}

// ConfirmResult carries the issued token back to the confirming device.
type ConfirmResult struct {
	Token    string     `json:"token"`
	UserInfo *user.Info `json:"userInfo"`
}

// PasswordLoginResult is issued by the companion password login.
type PasswordLoginResult struct {
	Token    string     `json:"token"`
	DeviceID string     `json:"deviceId"`
	UserInfo *user.Info `json:"userInfo"`
}

// StatusRequest is the poll body.
type StatusRequest struct {
	SceneID string `json:"sceneId"`
}

// SignedRequest is the common shape of scan and verify bodies. Timestamp is
// a millisecond epoch.
type SignedRequest struct {
	SceneID   string `json:"sceneId"`
	Timestamp int64  `json:"timestamp"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

// ScanRequest adds the scanning device's signals to the signed tuple.
type ScanRequest struct {
	SignedRequest
	Device device.Signals `json:"device"`
}

// ConfirmRequest approves the login from the scanning device.
type ConfirmRequest struct {
	SceneID string `json:"sceneId"`
	UserID  string `json:"userId"`
}

// PasswordLoginRequest authenticates the companion app itself.
type PasswordLoginRequest struct {
	Username string         `json:"username"`
	Password string         `json:"password"`
	Device   device.Signals `json:"device"`
}

// DeviceSession is one logged-in device in the devices listing.
type DeviceSession struct {
	SceneID     string       `json:"sceneId"`
	Device      *device.Info `json:"deviceInfo,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	ConfirmedAt *time.Time   `json:"confirmedAt,omitempty"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	IPAddress   string       `json:"ipAddress,omitempty"`
}
