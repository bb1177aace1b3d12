package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/Shayennn/ptm-noti/internal/api"
	"github.com/Shayennn/ptm-noti/internal/state"
)

// ErrAuthentication means the authenticate step could not produce an
// access token. There is no fallback; the run aborts.
var ErrAuthentication = errors.New("authentication failed")

// Manager decides, once per run, whether the cached token is still
// valid, needs a proactive refresh, or must be replaced outright.
// Refresh failures are recovered by a full re-authentication; only
// authentication failures are fatal.
type Manager struct {
	api       *api.Client
	store     *state.Store
	threshold time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

func NewManager(client *api.Client, store *state.Store, thresholdSeconds int, log zerolog.Logger) *Manager {
	return &Manager{
		api:       client,
		store:     store,
		threshold: time.Duration(thresholdSeconds) * time.Second,
		log:       log,
		now:       time.Now,
	}
}

// Token returns a valid access token, authenticating or refreshing as
// needed and persisting any new token through the state store.
func (m *Manager) Token(ctx context.Context) (string, error) {
	st := m.store.Load()

	if st.AccessToken == "" || st.ExpiresAt == nil {
		m.log.Info().Msg("no valid token, authenticating")
		return m.authenticate(ctx, st)
	}

	expiresAt := *st.ExpiresAt
	if claimExp := claimExpiry(st.AccessToken); claimExp != nil && claimExp.Before(expiresAt) {
		m.log.Debug().
			Time("recorded", expiresAt).
			Time("claim", *claimExp).
			Msg("token exp claim earlier than recorded expiry")
		expiresAt = *claimExp
	}

	remaining := expiresAt.Sub(m.now())
	if remaining < m.threshold {
		m.log.Info().Dur("remaining", remaining).Msg("token near expiry, refreshing")
		if token, ok := m.refresh(ctx, st); ok {
			return token, nil
		}
		m.log.Info().Msg("refresh failed, re-authenticating")
		return m.authenticate(ctx, st)
	}

	m.log.Info().Dur("remaining", remaining).Msg("token valid")
	return st.AccessToken, nil
}

func (m *Manager) authenticate(ctx context.Context, st state.PersistedState) (string, error) {
	res, err := m.api.Authenticate(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	expiresAt := m.now().UTC().Add(time.Duration(res.ExpiresIn) * time.Second)
	st.SetToken(res.AccessToken, res.RefreshToken, expiresAt)
	if err := m.store.Save(st); err != nil {
		return "", fmt.Errorf("failed to persist token state: %w", err)
	}
	m.log.Info().Time("expires_at", expiresAt).Msg("authenticated successfully")
	return res.AccessToken, nil
}

// refresh attempts a token refresh. All failure modes, including a
// missing refresh token, are signaled with ok=false rather than an
// error so the caller can fall back to a full authenticate.
func (m *Manager) refresh(ctx context.Context, st state.PersistedState) (string, bool) {
	if st.RefreshToken == "" {
		m.log.Debug().Msg("no refresh token held")
		return "", false
	}

	res, err := m.api.Refresh(ctx, st.AccessToken, st.RefreshToken)
	if err != nil {
		m.log.Debug().Err(err).Msg("refresh request failed")
		return "", false
	}

	expiresAt := m.now().UTC().Add(time.Duration(res.ExpiresIn) * time.Second)
	st.SetToken(res.AccessToken, res.RefreshToken, expiresAt)
	if err := m.store.Save(st); err != nil {
		m.log.Error().Err(err).Msg("failed to persist refreshed token")
		return "", false
	}
	m.log.Info().Time("expires_at", expiresAt).Msg("token refreshed successfully")
	return res.AccessToken, true
}

// claimExpiry reads the exp claim from the access token without
// verifying the signature. The PTM service signs with a key we do not
// hold; the claim is only used to tighten the recorded expiry.
func claimExpiry(accessToken string) *time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	return &claims.ExpiresAt.Time
}
