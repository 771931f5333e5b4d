package auth

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memStore struct {
	staff    map[string]Staff
	sessions map[string]Session
	nextID   int
}

func newMemStore() *memStore {
	return &memStore{staff: map[string]Staff{}, sessions: map[string]Session{}}
}

func (m *memStore) addStaff(t *testing.T, st Staff, pin string) Staff {
	t.Helper()
	hash, err := HashPIN(pin)
	require.NoError(t, err)
	st.PINHash = hash
	m.staff[st.ID] = st
	return st
}

func (m *memStore) StaffByEmail(_ context.Context, storeID, email string) (Staff, error) {
	for _, st := range m.staff {
		if st.StoreID == storeID && st.Email == email {
			return st, nil
		}
	}
	return Staff{}, ErrStaffNotFound
}

func (m *memStore) StaffByID(_ context.Context, id string) (Staff, error) {
	st, ok := m.staff[id]
	if !ok {
		return Staff{}, ErrStaffNotFound
	}
	return st, nil
}

func (m *memStore) CreateSession(_ context.Context, sess Session) error {
	m.nextID++
	sess.ID = "sess-" + strconv.Itoa(m.nextID)
	m.sessions[sess.TokenHash] = sess
	return nil
}

func (m *memStore) SessionByToken(_ context.Context, tokenHash string) (Session, error) {
	sess, ok := m.sessions[tokenHash]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (m *memStore) RotateSession(_ context.Context, sessionID, tokenHash string, expiresAt time.Time) error {
	for hash, sess := range m.sessions {
		if sess.ID == sessionID {
			delete(m.sessions, hash)
			sess.TokenHash = tokenHash
			sess.ExpiresAt = expiresAt
			m.sessions[tokenHash] = sess
			return nil
		}
	}
	return ErrSessionNotFound
}

func (m *memStore) DeleteSessionByToken(_ context.Context, tokenHash string) error {
	if _, ok := m.sessions[tokenHash]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, tokenHash)
	return nil
}

func (m *memStore) DeleteSessionsByStaff(_ context.Context, staffID string) error {
	for hash, sess := range m.sessions {
		if sess.StaffID == staffID {
			delete(m.sessions, hash)
		}
	}
	return nil
}

func newTestAuth(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	svc, err := NewService(Config{
		Store:   store,
		StoreID: "store-1",
		Secret:  "test-secret-test-secret-test-secret",
	})
	require.NoError(t, err)
	store.addStaff(t, Staff{
		ID:      "staff-1",
		StoreID: "store-1",
		Name:    "Dana",
		Email:   "dana@example.com",
		Role:    RoleCashier,
		Active:  true,
	}, "4321")
	return svc, store
}

func TestLoginIssuesTokenPair(t *testing.T) {
	svc, store := newTestAuth(t)

	result, err := svc.Login(context.Background(), "Dana@Example.com", "4321", "register-2", "10.0.0.5")
	require.NoError(t, err)
	require.Equal(t, "staff-1", result.Staff.ID)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)
	require.Len(t, store.sessions, 1)
	for _, sess := range store.sessions {
		require.Equal(t, "register-2", sess.Terminal)
	}

	id, err := svc.ParseAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "staff-1", id.StaffID)
	require.Equal(t, RoleCashier, id.Role)
}

func TestLoginRejectsWrongPIN(t *testing.T) {
	svc, _ := newTestAuth(t)

	_, err := svc.Login(context.Background(), "dana@example.com", "9999", "", "")
	require.Error(t, err)
}

func TestLoginRejectsDeactivatedStaff(t *testing.T) {
	svc, store := newTestAuth(t)
	store.addStaff(t, Staff{
		ID:      "staff-2",
		StoreID: "store-1",
		Email:   "gone@example.com",
		Role:    RoleCashier,
		Active:  false,
	}, "4321")

	_, err := svc.Login(context.Background(), "gone@example.com", "4321", "", "")
	require.Error(t, err)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _ := newTestAuth(t)

	login, err := svc.Login(context.Background(), "dana@example.com", "4321", "", "")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The rotated-out token no longer resolves.
	_, err = svc.Refresh(context.Background(), login.RefreshToken)
	require.Error(t, err)

	_, err = svc.Refresh(context.Background(), refreshed.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRejectsExpiredSession(t *testing.T) {
	svc, _ := newTestAuth(t)

	login, err := svc.Login(context.Background(), "dana@example.com", "4321", "", "")
	require.NoError(t, err)

	svc.WithNow(func() time.Time { return time.Now().Add(13 * time.Hour) })
	_, err = svc.Refresh(context.Background(), login.RefreshToken)
	require.Error(t, err)
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, store := newTestAuth(t)

	login, err := svc.Login(context.Background(), "dana@example.com", "4321", "", "")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken))
	require.Empty(t, store.sessions)

	// Logging out an already-revoked token is a no-op.
	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken))
}

func TestParseAccessTokenRejectsTampering(t *testing.T) {
	svc, _ := newTestAuth(t)

	login, err := svc.Login(context.Background(), "dana@example.com", "4321", "", "")
	require.NoError(t, err)

	tampered := login.AccessToken[:len(login.AccessToken)-4] + "AAAA"
	_, err = svc.ParseAccessToken(tampered)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	svc, _ := newTestAuth(t)

	login, err := svc.Login(context.Background(), "dana@example.com", "4321", "", "")
	require.NoError(t, err)

	svc.WithNow(func() time.Time { return time.Now().Add(time.Hour) })
	_, err = svc.ParseAccessToken(login.AccessToken)
	require.Error(t, err)
}

func TestHashPINRejectsShort(t *testing.T) {
	_, err := HashPIN("12")
	require.Error(t, err)
}
