package history

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/example/realtime-chat-server/modules/session"
)

// ErrDuplicateID is returned when a record with the same id already
// exists in the store.
var ErrDuplicateID = errors.New("duplicate message id")

// Repository provides access to durable message storage.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new message repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert saves a new message. The write is durable once Insert returns
// without error; an id collision fails with ErrDuplicateID.
func (r *Repository) Insert(ctx context.Context, msg session.Message) error {
	rec := fromMessage(msg)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("insert message %d: %w", msg.ID, ErrDuplicateID)
		}
		return fmt.Errorf("insert message %d: %w", msg.ID, err)
	}
	return nil
}

// Recent returns up to limit of the newest messages. Retrieval is by id
// descending, then re-ordered ascending, so callers get "newest limit,
// oldest first".
func (r *Repository) Recent(ctx context.Context, limit int) ([]session.Message, error) {
	var records []Record
	if err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}

	messages := make([]session.Message, len(records))
	for i, rec := range records {
		messages[len(records)-1-i] = rec.toMessage()
	}
	return messages, nil
}

// All returns every stored message ascending by timestamp.
func (r *Repository) All(ctx context.Context) ([]session.Message, error) {
	var records []Record
	if err := r.db.WithContext(ctx).Order("timestamp ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query all messages: %w", err)
	}

	messages := make([]session.Message, len(records))
	for i, rec := range records {
		messages[i] = rec.toMessage()
	}
	return messages, nil
}
