package session

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviebuzz/internal/catalogtest"
	"moviebuzz/models"
	"moviebuzz/services/catalog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) (*catalogtest.Server, *Service, *Store) {
	t.Helper()
	srv := catalogtest.New()
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	client := catalog.NewClient(ts.URL+"/api", ts.Client(), testLogger())
	store := NewStore(afero.NewMemMapFs(), "session")
	return srv, NewService(client, store, testLogger()), store
}

func TestRestoreWithoutCredential(t *testing.T) {
	_, svc, _ := newFixture(t)
	assert.Nil(t, svc.Restore(context.Background()))
	assert.Nil(t, svc.Current())
}

func TestRestoreValidCredential(t *testing.T) {
	srv, svc, store := newFixture(t)
	srv.Authorize("good-token", "u1")

	saved := models.Session{
		User:  models.User{ID: "u1", UserName: "neo", Email: "neo@matrix.io", PersonName: "Neo"},
		Token: "good-token",
	}
	require.NoError(t, store.Save(saved))

	sess := svc.Restore(context.Background())
	require.NotNil(t, sess)
	assert.Equal(t, "good-token", sess.Token)
	assert.Equal(t, "Neo", sess.User.PersonName)
	require.NotNil(t, svc.Current())
}

func TestRestoreInvalidCredentialClearsState(t *testing.T) {
	_, svc, store := newFixture(t)

	saved := models.Session{
		User:  models.User{ID: "u1", UserName: "neo", Email: "neo@matrix.io"},
		Token: "revoked-token",
	}
	require.NoError(t, store.Save(saved))

	assert.Nil(t, svc.Restore(context.Background()))
	assert.Nil(t, svc.Current())

	_, ok := store.Load()
	assert.False(t, ok, "persisted credential must be cleared after failed revalidation")
}

func TestLoginWithNestedUser(t *testing.T) {
	srv, svc, store := newFixture(t)
	srv.SetLoginBody(`{"token":"abc","user":{"id":"u1","userName":"neo","email":"neo@matrix.io","personName":"Neo","role":"Admin"}}`)

	sess, err := svc.Login(context.Background(), "neo@matrix.io", "pw")
	require.NoError(t, err)
	assert.Equal(t, "abc", sess.Token)
	assert.Equal(t, "Neo", sess.User.PersonName)
	assert.True(t, sess.User.IsAdmin())

	persisted, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, "abc", persisted.Token)
}

func TestLoginWithFlatPayload(t *testing.T) {
	srv, svc, _ := newFixture(t)
	srv.SetLoginBody(`{"accessToken":"xyz","id":"u2","userName":"trinity","email":"trinity@matrix.io"}`)

	sess, err := svc.Login(context.Background(), "trinity@matrix.io", "pw")
	require.NoError(t, err)
	assert.Equal(t, "xyz", sess.Token)
	assert.Equal(t, "trinity", sess.User.PersonName)
	assert.Equal(t, models.RoleClient, sess.User.Role)
}

func TestLoginWithBareTokenBody(t *testing.T) {
	srv, svc, _ := newFixture(t)
	srv.SetLoginBody(`"just-a-token"`)

	sess, err := svc.Login(context.Background(), "morpheus@matrix.io", "pw")
	require.NoError(t, err)
	assert.Equal(t, "just-a-token", sess.Token)
	assert.Equal(t, "morpheus@matrix.io", sess.User.Email)
	assert.Equal(t, "morpheus", sess.User.PersonName, "display name defaults to the email local part")
}

func TestLoginRejectedCredentials(t *testing.T) {
	// No login body configured means the account endpoint answers 401.
	_, svc, _ := newFixture(t)

	_, err := svc.Login(context.Background(), "nobody@matrix.io", "wrong")
	assert.ErrorIs(t, err, catalog.ErrUnauthorized)
	assert.Nil(t, svc.Current())
}

func TestLogoutClearsEverything(t *testing.T) {
	srv, svc, store := newFixture(t)
	srv.SetLoginBody(`{"token":"abc","user":{"id":"u1","personName":"Neo"}}`)

	_, err := svc.Login(context.Background(), "neo@matrix.io", "pw")
	require.NoError(t, err)

	svc.Logout()
	assert.Nil(t, svc.Current())
	_, ok := store.Load()
	assert.False(t, ok)
}

func TestNormalizeLoginMissingCredential(t *testing.T) {
	_, err := normalizeLogin([]byte(`{"user":{"id":"u1"}}`), "neo@matrix.io")
	assert.ErrorIs(t, err, ErrMalformedLogin)
}
