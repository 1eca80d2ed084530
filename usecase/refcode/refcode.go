// Package refcode issues and resolves the short reference codes customers
// use to resume an application or check its status without the full session
// id. National-ID lookups are a separate strategy over the same store.
package refcode

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bancozim/origination/domain"
	"github.com/bancozim/origination/repository"
)

// codeAlphabet intentionally has no lowercase: codes are read out over the
// phone and typed on feature-phone keypads.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// minLookupLength is the cheap guard: anything shorter is rejected before
// storage is queried.
const minLookupLength = 5

// Config controls code shape and retry bounds.
type Config struct {
	Length      int
	TTL         time.Duration
	MaxAttempts int
}

type UseCase struct {
	states repository.StateRepository
	logger *zap.Logger
	cfg    Config
}

func New(states repository.StateRepository, logger *zap.Logger, cfg Config) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Length <= 0 {
		cfg.Length = 6
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 72 * time.Hour
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &UseCase{states: states, logger: logger, cfg: cfg}
}

// Generate issues a code unique among currently-valid codes for the given
// session. Collisions retry with a fresh random code up to MaxAttempts, then
// surface a conflict error.
func (uc *UseCase) Generate(ctx context.Context, sessionID string) (string, error) {
	state, err := uc.states.GetBySessionID(ctx, sessionID)
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().Add(uc.cfg.TTL)
	for attempt := 0; attempt < uc.cfg.MaxAttempts; attempt++ {
		code, err := randomCode(uc.cfg.Length)
		if err != nil {
			return "", err
		}
		err = uc.states.SetReferenceCode(ctx, state.ID, code, expiresAt)
		if err == nil {
			return code, nil
		}
		if !domain.IsDomainError(err, domain.ErrCodeConflict) {
			return "", err
		}
		uc.logger.Warn("reference code collision, retrying",
			zap.String("session_id", sessionID),
			zap.Int("attempt", attempt+1))
	}
	return "", domain.ErrCodeGeneration
}

// Normalize strips non-alphanumeric characters and uppercases, so codes
// survive being typed with spaces or dashes.
func Normalize(code string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(code) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate reports whether the code resolves to a live application. Expired
// and never-existed codes are indistinguishable to the caller.
func (uc *UseCase) Validate(ctx context.Context, code string) error {
	_, err := uc.Resolve(ctx, code)
	return err
}

// Resolve returns the application a code points at, or not-found.
func (uc *UseCase) Resolve(ctx context.Context, code string) (*domain.ApplicationState, error) {
	normalized := Normalize(code)
	if len(normalized) < minLookupLength {
		return nil, domain.ErrRefCodeNotFound
	}
	state, err := uc.states.GetByReferenceCode(ctx, normalized)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil, domain.ErrRefCodeNotFound
		}
		return nil, err
	}
	return state, nil
}

// ResolveNationalID looks an application up by the customer's national ID.
// This is a distinct strategy from generated codes: it matches the
// user_identifier column, not reference_code, and carries no expiry of its
// own.
func (uc *UseCase) ResolveNationalID(ctx context.Context, nationalID string) (*domain.ApplicationState, error) {
	normalized := Normalize(nationalID)
	if len(normalized) < minLookupLength {
		return nil, domain.ErrStateNotFound
	}
	return uc.states.GetByUserIdentifier(ctx, normalized)
}

func randomCode(length int) (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}
