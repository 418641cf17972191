package pg

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/sawatantra/api/shared/domain"
	internal_errors "github.com/sawatantra/api/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveUser(t *testing.T) {
	ctx := context.Background()
	id, err := storage.SaveUser(ctx, domain.User{Email: "save@example.com", Name: "Save", PassHash: "hash"})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	_, err = storage.SaveUser(ctx, domain.User{Email: "save@example.com", PassHash: "hash"})
	var e *internal_errors.ErrorWithStatusCode
	require.ErrorAs(t, err, &e, "Saving user twice should return an error")
	assert.Equal(t, http.StatusConflict, e.StatusCode)
}

func TestUser(t *testing.T) {
	ctx := context.Background()
	_, err := storage.SaveUser(ctx, domain.User{Email: "testuser@example.com", Name: "Test User", PassHash: "password"})
	require.NoError(t, err)

	user, err := storage.User(ctx, "testuser@example.com")
	require.NoError(t, err)
	assert.Equal(t, "testuser@example.com", user.Email)
	assert.Equal(t, "Test User", user.Name)
	assert.Equal(t, "password", user.PassHash)
	assert.False(t, user.CreatedAt.IsZero())

	_, err = storage.User(ctx, "nonexistent@example.com")
	assert.ErrorIs(t, err, internal_errors.ErrUserNotFound)
}

func TestConfirmationData(t *testing.T) {
	ctx := context.Background()
	email := "confirm@example.com"
	expires := time.Now().Add(5 * time.Minute).UTC().Truncate(time.Second)

	_, err := storage.ConfirmationData(ctx, email)
	assert.True(t, internal_errors.IsNotFound(err))

	require.NoError(t, storage.SaveConfirmationData(ctx, domain.ConfirmationData{
		Email: email, Name: "First", NewPassHash: "p1", ConfirmationCodeHash: "c1", Expires: expires,
	}))
	// a second registration replaces the pending one
	require.NoError(t, storage.SaveConfirmationData(ctx, domain.ConfirmationData{
		Email: email, Name: "Second", NewPassHash: "p2", ConfirmationCodeHash: "c2", Expires: expires,
	}))

	data, err := storage.ConfirmationData(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, "Second", data.Name)
	assert.Equal(t, "p2", data.NewPassHash)
	assert.Equal(t, "c2", data.ConfirmationCodeHash)
	assert.True(t, expires.Equal(data.Expires))

	require.NoError(t, storage.DeleteConfirmationData(ctx, email))
	assert.True(t, internal_errors.IsNotFound(storage.DeleteConfirmationData(ctx, email)))
}

func TestConfirmUser(t *testing.T) {
	ctx := context.Background()
	email := "confirmuser@example.com"
	require.NoError(t, storage.SaveConfirmationData(ctx, domain.ConfirmationData{
		Email: email, Name: "Conf", NewPassHash: "p", ConfirmationCodeHash: "c", Expires: time.Now().Add(time.Minute),
	}))

	id, err := storage.ConfirmUser(ctx, domain.User{Email: email, Name: "Conf", PassHash: "p"})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	_, err = storage.ConfirmationData(ctx, email)
	assert.True(t, internal_errors.IsNotFound(err), "confirmation data must be consumed")

	// nothing to consume: the whole transaction rolls back
	_, err = storage.ConfirmUser(ctx, domain.User{Email: "noconf@example.com", PassHash: "p"})
	assert.True(t, internal_errors.IsNotFound(err))
	_, err = storage.User(ctx, "noconf@example.com")
	assert.ErrorIs(t, err, internal_errors.ErrUserNotFound)
}

func TestDirectory(t *testing.T) {
	ctx := context.Background()
	for _, u := range []domain.User{
		{Email: "dir.alice@corp.io", Name: "Alice Walker"},
		{Email: "dir.bob@corp.io", Name: "Bob 100%"},
		{Email: "dir.carol@other.io", Name: "Carol"},
	} {
		u.PassHash = "x"
		_, err := storage.SaveUser(ctx, u)
		require.NoError(t, err)
	}

	all, err := storage.Users(ctx)
	require.NoError(t, err)
	emails := make([]string, 0, len(all))
	for _, e := range all {
		emails = append(emails, e.Email)
	}
	assert.Subset(t, emails, []string{"dir.alice@corp.io", "dir.bob@corp.io", "dir.carol@other.io"})

	found, err := storage.SearchUsers(ctx, "WALKER", 10)
	require.NoError(t, err)
	assert.Equal(t, []domain.DirectoryEntry{{Email: "dir.alice@corp.io", Name: "Alice Walker"}}, found)

	found, err = storage.SearchUsers(ctx, "100%", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "dir.bob@corp.io", found[0].Email)

	found, err = storage.SearchUsers(ctx, "dir.", 1)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	byEmail, err := storage.UsersByEmails(ctx, []string{"DIR.Carol@other.io", "missing@x.io"})
	require.NoError(t, err)
	assert.Equal(t, []domain.DirectoryEntry{{Email: "dir.carol@other.io", Name: "Carol"}}, byEmail)

	none, err := storage.UsersByEmails(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
