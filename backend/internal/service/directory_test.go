package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sawatantra/api/shared/domain"
	internal_errors "github.com/sawatantra/api/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockDirectoryStorage struct {
	UsersFunc       func(ctx context.Context) ([]domain.DirectoryEntry, error)
	SearchUsersFunc func(ctx context.Context, query string, limit int) ([]domain.DirectoryEntry, error)
}

func (m *MockDirectoryStorage) Users(ctx context.Context) ([]domain.DirectoryEntry, error) {
	if m.UsersFunc != nil {
		return m.UsersFunc(ctx)
	}
	return nil, nil
}

func (m *MockDirectoryStorage) SearchUsers(ctx context.Context, query string, limit int) ([]domain.DirectoryEntry, error) {
	if m.SearchUsersFunc != nil {
		return m.SearchUsersFunc(ctx, query, limit)
	}
	return nil, nil
}

func TestDirectory(t *testing.T) {
	ctx := context.Background()
	everyone := []domain.DirectoryEntry{{Email: "a@x.com", Name: "Alice"}, {Email: "b@x.com", Name: "Bob"}}

	t.Run("search trims and limits", func(t *testing.T) {
		storage := &MockDirectoryStorage{
			SearchUsersFunc: func(ctx context.Context, query string, limit int) ([]domain.DirectoryEntry, error) {
				assert.Equal(t, "ali", query)
				assert.Equal(t, searchLimit, limit)
				return everyone[:1], nil
			},
		}
		users, err := NewDirectory(storage).Search(ctx, "  ali ")
		require.NoError(t, err)
		assert.Equal(t, everyone[:1], users)
	})

	t.Run("empty query lists everyone", func(t *testing.T) {
		storage := &MockDirectoryStorage{
			UsersFunc: func(ctx context.Context) ([]domain.DirectoryEntry, error) { return everyone, nil },
			SearchUsersFunc: func(ctx context.Context, query string, limit int) ([]domain.DirectoryEntry, error) {
				t.Fatal("SearchUsers must not be called")
				return nil, nil
			},
		}
		users, err := NewDirectory(storage).Search(ctx, " ")
		require.NoError(t, err)
		assert.Equal(t, everyone, users)
	})

	t.Run("storage error", func(t *testing.T) {
		storage := &MockDirectoryStorage{
			UsersFunc: func(ctx context.Context) ([]domain.DirectoryEntry, error) { return nil, errors.New("down") },
		}
		_, err := NewDirectory(storage).List(ctx)
		var pe *internal_errors.PersistenceError
		assert.ErrorAs(t, err, &pe)
	})
}
