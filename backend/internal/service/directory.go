package service

import (
	"context"
	"strings"

	"github.com/sawatantra/api/shared/domain"
	"github.com/sawatantra/api/shared/errors"
)

const searchLimit = 50

type DirectoryService interface {
	List(ctx context.Context) ([]domain.DirectoryEntry, error)
	Search(ctx context.Context, query string) ([]domain.DirectoryEntry, error)
}

type DirectoryStorage interface {
	Users(ctx context.Context) ([]domain.DirectoryEntry, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]domain.DirectoryEntry, error)
}

type Directory struct {
	storage DirectoryStorage
}

func NewDirectory(storage DirectoryStorage) DirectoryService {
	return &Directory{storage: storage}
}

func (d *Directory) List(ctx context.Context) ([]domain.DirectoryEntry, error) {
	users, err := d.storage.Users(ctx)
	if err != nil {
		return nil, errors.Persistence("list users", err)
	}
	return users, nil
}

// Search matches the query against emails and names. An empty query lists everyone.
func (d *Directory) Search(ctx context.Context, query string) ([]domain.DirectoryEntry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return d.List(ctx)
	}
	users, err := d.storage.SearchUsers(ctx, query, searchLimit)
	if err != nil {
		return nil, errors.Persistence("search users", err)
	}
	return users, nil
}
