package pruner

import (
	"context"

	"tweetpruner/pkg/models"
)

// Client defines the remote operations the pruner needs.
// A missing item must surface as an errors.ErrorTypeNotFound error.
type Client interface {
	FetchPostsPage(ctx context.Context, cursor models.Cursor) ([]models.Item, error)
	FetchLikedPage(ctx context.Context, cursor models.Cursor) ([]models.Item, error)
	DeletePost(ctx context.Context, id int64) error
	UnlikePost(ctx context.Context, id int64) error
	ResolvePinnedItemID(ctx context.Context, handle string) (int64, bool, error)
}
