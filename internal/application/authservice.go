package application

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/faith-connect-biz/faithconnect-go/internal/adapter/driven/api"
	"github.com/faith-connect-biz/faithconnect-go/internal/domain/model"
	"github.com/faith-connect-biz/faithconnect-go/internal/domain/port/driven"
)

// demoCode is the fixed, reproducible verification code issued by the
// offline fallback. Deliberately constant so UI development against a dead
// backend needs no out-of-band channel.
const demoCode = "123456"

var (
	// ErrInvalidCode means the submitted verification code does not match.
	ErrInvalidCode = errors.New("verification code does not match")
	// ErrNoPendingCode means no code was ever sent for this contact+method.
	ErrNoPendingCode = errors.New("no verification code pending for this contact")
)

// AuthService drives the OTP onboarding flow. Requests go to the real
// backend first; only a network-unreachable failure activates the offline
// fallback. A reachable server's rejection is always surfaced, never papered
// over with a demo session.
type AuthService struct {
	client  *api.Client
	session *SessionService
	demos   driven.DemoSessionStore
}

// NewAuthService creates the OTP onboarding service.
func NewAuthService(client *api.Client, session *SessionService, demos driven.DemoSessionStore) *AuthService {
	return &AuthService{
		client:  client,
		session: session,
		demos:   demos,
	}
}

type otpRequest struct {
	Contact string `json:"contact"`
	Method  string `json:"method"`
}

type verifyRequest struct {
	Contact string `json:"contact"`
	Method  string `json:"method"`
	Code    string `json:"code"`
}

type authResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    struct {
		ID string `json:"id"`
	} `json:"user"`
	IsNewUser bool `json:"is_new_user"`
}

// SendCodeResult reports how a verification code was issued.
type SendCodeResult struct {
	// Demo is true when the backend was unreachable and the code came from
	// the offline fallback.
	Demo bool
}

// VerifyResult is the outcome of a successful code verification.
type VerifyResult struct {
	Identity model.Identity
	NewUser  bool
	Demo     bool
}

// SendCode asks the backend to send a one-time code to contact via method
// ("email" or "sms"). When the backend is unreachable it issues the fixed
// offline code instead and records a demo session for the pair.
func (a *AuthService) SendCode(ctx context.Context, contact, method string) (SendCodeResult, error) {
	err := a.client.Do(ctx, http.MethodPost, "auth/initiate/", otpRequest{Contact: contact, Method: method}, nil)
	if err == nil {
		return SendCodeResult{}, nil
	}
	if !model.IsNetworkUnreachable(err) {
		return SendCodeResult{}, err
	}

	return a.issueDemoCode(ctx, contact, method)
}

// ResendCode re-requests a code for an in-progress verification. Offline, an
// existing demo session is kept as-is so the previously shown code stays
// valid.
func (a *AuthService) ResendCode(ctx context.Context, contact, method string) (SendCodeResult, error) {
	err := a.client.Do(ctx, http.MethodPost, "auth/resend-otp/", otpRequest{Contact: contact, Method: method}, nil)
	if err == nil {
		return SendCodeResult{}, nil
	}
	if !model.IsNetworkUnreachable(err) {
		return SendCodeResult{}, err
	}

	existing, getErr := a.demos.Get(ctx, contact, method)
	if getErr != nil {
		return SendCodeResult{}, getErr
	}
	if existing != nil {
		return SendCodeResult{Demo: true}, nil
	}
	return a.issueDemoCode(ctx, contact, method)
}

func (a *AuthService) issueDemoCode(ctx context.Context, contact, method string) (SendCodeResult, error) {
	sess := model.DemoSession{
		Contact:   contact,
		Method:    method,
		Code:      demoCode,
		SubjectID: uuid.NewString(),
	}
	if err := a.demos.Put(ctx, sess); err != nil {
		return SendCodeResult{}, err
	}
	slog.Warn("backend unreachable; issued offline verification code", "method", method)
	return SendCodeResult{Demo: true}, nil
}

// VerifyCode submits the one-time code. On success against the real backend
// the returned token pair is persisted and the server identity returned.
// When the backend is unreachable the code is checked against the stored
// demo session: a match yields a synthetic identity and consumes the
// session; a mismatch returns ErrInvalidCode and leaves the session intact
// for another attempt.
func (a *AuthService) VerifyCode(ctx context.Context, contact, method, code string) (VerifyResult, error) {
	var resp authResponse
	err := a.client.Do(ctx, http.MethodPost, "auth/verify-otp/", verifyRequest{Contact: contact, Method: method, Code: code}, &resp)
	if err == nil {
		return a.establishFromResponse(ctx, contact, method, resp)
	}
	if !model.IsNetworkUnreachable(err) {
		// A reachable server rejected the input; that rejection is the
		// answer.
		return VerifyResult{}, err
	}

	sess, getErr := a.demos.Get(ctx, contact, method)
	if getErr != nil {
		return VerifyResult{}, getErr
	}
	if sess == nil {
		return VerifyResult{}, ErrNoPendingCode
	}
	if sess.Code != code {
		return VerifyResult{}, ErrInvalidCode
	}

	if delErr := a.demos.Delete(ctx, contact, method); delErr != nil {
		slog.Warn("delete consumed demo session", "error", delErr)
	}
	slog.Warn("offline verification accepted; session is simulated", "method", method)
	return VerifyResult{
		Identity: model.Identity{ID: sess.SubjectID, Contact: contact, Method: method, Demo: true},
		Demo:     true,
	}, nil
}

// ProfileInput is the payload for completing a new user's profile.
type ProfileInput struct {
	Contact   string `json:"contact"`
	Method    string `json:"method"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// CompleteProfile finishes onboarding for a new user. The backend may issue
// a token pair here when the OTP step did not. No offline fallback: profile
// completion is meaningless without a server.
func (a *AuthService) CompleteProfile(ctx context.Context, input ProfileInput) (VerifyResult, error) {
	var resp authResponse
	if err := a.client.Do(ctx, http.MethodPost, "auth/complete-profile/", input, &resp); err != nil {
		return VerifyResult{}, err
	}
	return a.establishFromResponse(ctx, input.Contact, input.Method, resp)
}

func (a *AuthService) establishFromResponse(ctx context.Context, contact, method string, resp authResponse) (VerifyResult, error) {
	if resp.Access != "" {
		pair := model.TokenPair{Access: resp.Access, Refresh: resp.Refresh}
		if err := a.session.Establish(ctx, pair); err != nil {
			return VerifyResult{}, err
		}
	}
	return VerifyResult{
		Identity: model.Identity{ID: resp.User.ID, Contact: contact, Method: method},
		NewUser:  resp.IsNewUser,
	}, nil
}
