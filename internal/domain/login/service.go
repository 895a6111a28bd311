package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Anvoria/scanly/internal/domain/device"
	"github.com/Anvoria/scanly/internal/domain/scene"
	"github.com/Anvoria/scanly/internal/domain/session"
	"github.com/Anvoria/scanly/internal/domain/signature"
	"github.com/Anvoria/scanly/internal/domain/token"
	"github.com/Anvoria/scanly/internal/domain/user"
	"github.com/Anvoria/scanly/internal/metrics"
)

// UserDirectory resolves and authenticates user accounts. Backed by the
// gorm repository in production, stubbed in tests.
type UserDirectory interface {
	Authenticate(username, password string) (*user.User, error)
	Resolve(id string) (*user.User, error)
}

// NonceChecker is the optional replay guard for signed requests.
type NonceChecker interface {
	Seen(ctx context.Context, sceneID, nonce string) (bool, error)
}

// Service composes scene IDs, signature checks, the session store, device
// fingerprinting and token issuance into the scan-to-login protocol.
type Service struct {
	scenes    *scene.Identifier
	signer    *signature.Verifier
	store     session.Store
	tokens    *token.Issuer
	users     UserDirectory
	nonces    NonceChecker // nil disables replay protection
	qrBaseURL string
}

// NewService wires the orchestrator. Everything is constructed once at the
// composition root and passed in; nothing here is a lazy global.
func NewService(scenes *scene.Identifier, signer *signature.Verifier, store session.Store, tokens *token.Issuer, users UserDirectory, nonces NonceChecker, qrBaseURL string) *Service {
	return &Service{
		scenes:    scenes,
		signer:    signer,
		store:     store,
		tokens:    tokens,
		users:     users,
		nonces:    nonces,
		qrBaseURL: qrBaseURL,
	}
}

// Generate opens a new waiting session for the initiating client.
func (s *Service) Generate(ip, userAgent string) (*GenerateResult, error) {
	sceneID := s.scenes.Generate()

	sess, err := s.store.Create(sceneID, ip, userAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	metrics.SessionsGenerated.Inc()
	return &GenerateResult{
		SceneID:   sceneID,
		QRCodeURL: fmt.Sprintf("%s?sceneId=%s", s.qrBaseURL, sceneID),
		ExpiresAt: sess.ExpiresAt,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Status is the pure poll read for the initiating client. A malformed
// scene ID is called out as such; a well-formed but stale or unknown one
// gets the same generic answer as an expired session. The ID's embedded
// clock and the store's expiresAt are maintained independently and must
// agree; both are consulted here.
func (s *Service) Status(sceneID string) (*StatusResult, error) {
	if _, ok := scene.ParseTimestamp(sceneID); !ok {
		return nil, ErrInvalidScene
	}
	if !s.scenes.Validate(sceneID) {
		return nil, ErrSessionGone
	}

	sess, ok := s.store.Get(sceneID)
	if !ok || !s.store.IsValid(sceneID) {
		return nil, ErrSessionGone
	}

	res := &StatusResult{Status: string(sess.State)}
	if sess.State == session.StateConfirmed && sess.UserID != "" {
		if u, err := s.users.Resolve(sess.UserID); err == nil {
			res.UserInfo = u.PublicInfo()
		}
	}
	return res, nil
}

// Scan lets the secondary device claim a waiting session. Signature and
// window failures collapse into the generic session error so the endpoint
// is not an existence oracle; a lost race reports ErrAlreadyScanned.
func (s *Service) Scan(ctx context.Context, req ScanRequest) error {
	if err := s.checkSignature(ctx, req.SignedRequest); err != nil {
		return err
	}

	if !s.store.IsValid(req.SceneID) {
		return ErrSessionGone
	}

	info := device.Describe(req.Device)
	_, err := s.store.Transition(req.SceneID, session.StateWaiting, session.StateScanned, session.Patch{Device: info})
	switch {
	case errors.Is(err, session.ErrWrongState):
		return ErrAlreadyScanned
	case errors.Is(err, session.ErrSceneNotFound):
		return ErrSessionGone
	case err != nil:
		return fmt.Errorf("failed to mark session scanned: %w", err)
	}

	metrics.SessionsScanned.Inc()
	slog.Debug("Session scanned", "sceneId", req.SceneID, "device", info.ID)
	return nil
}

// Confirm approves the login from the scanning device. A session that is
// missing, expired or never scanned fails identically, and an unknown user
// is indistinguishable from those.
func (s *Service) Confirm(sceneID, userID string) (*ConfirmResult, error) {
	if !s.store.IsValid(sceneID) {
		return nil, ErrSessionGone
	}

	u, err := s.users.Resolve(userID)
	if err != nil {
		return nil, ErrSessionGone
	}

	sess, ok := s.store.Get(sceneID)
	if !ok {
		return nil, ErrSessionGone
	}
	deviceID := ""
	if sess.Device != nil {
		deviceID = sess.Device.ID
	}

	tok, err := s.tokens.Issue(userID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	_, err = s.store.Transition(sceneID, session.StateScanned, session.StateConfirmed, session.Patch{
		UserID: &userID,
		Token:  &tok,
	})
	if err != nil {
		// Covers confirm-from-waiting and races with expiry/termination
		return nil, ErrSessionGone
	}

	metrics.SessionsConfirmed.Inc()
	slog.Info("Login confirmed", "sceneId", sceneID, "userId", userID)
	return &ConfirmResult{Token: tok, UserInfo: u.PublicInfo()}, nil
}

// VerifySignature is the standalone check. Unlike scan/confirm it keeps
// expiry and mismatch distinguishable: the window is checked before the MAC.
func (s *Service) VerifySignature(ctx context.Context, req SignedRequest) error {
	return s.checkSignature(ctx, req)
}

// checkSignature runs the window/MAC check, then the optional replay guard.
func (s *Service) checkSignature(ctx context.Context, req SignedRequest) error {
	if err := s.signer.Verify(req.SceneID, req.Timestamp, req.Nonce, req.Signature); err != nil {
		metrics.SignatureFailures.Inc()
		return err
	}

	if s.nonces != nil {
		seen, err := s.nonces.Seen(ctx, req.SceneID, req.Nonce)
		if err != nil {
			// The guard failing open would silently drop replay
			// protection; fail the single request instead.
			return fmt.Errorf("replay check failed: %w", err)
		}
		if seen {
			metrics.SignatureFailures.Inc()
			return signature.ErrMismatch
		}
	}
	return nil
}

// PasswordLogin authenticates the companion app with classic credentials
// and issues the same device-bound token the QR flow produces.
func (s *Service) PasswordLogin(req PasswordLoginRequest) (*PasswordLoginResult, error) {
	u, err := s.users.Authenticate(req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	info := device.Describe(req.Device)
	tok, err := s.tokens.Issue(u.ID.String(), info.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &PasswordLoginResult{
		Token:    tok,
		DeviceID: info.ID,
		UserInfo: u.PublicInfo(),
	}, nil
}

// ActiveDevices lists the caller's logged-in devices.
func (s *Service) ActiveDevices(userID string) []DeviceSession {
	sessions := s.store.ActiveForUser(userID)
	out := make([]DeviceSession, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, DeviceSession{
			SceneID:     sess.SceneID,
			Device:      sess.Device,
			CreatedAt:   sess.CreatedAt,
			ConfirmedAt: sess.ConfirmedAt,
			ExpiresAt:   sess.ExpiresAt,
			IPAddress:   sess.IPAddress,
		})
	}
	return out
}

// LogoutAll force-expires every session of the user and returns the count.
func (s *Service) LogoutAll(userID string) int {
	count := s.store.TerminateAllForUser(userID)
	slog.Info("Terminated all sessions for user", "userId", userID, "count", count)
	return count
}

// VerifyToken exposes bearer-token validation to the middleware.
func (s *Service) VerifyToken(tok string) (*token.Claims, error) {
	return s.tokens.Verify(tok)
}
