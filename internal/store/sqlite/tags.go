package sqlite

import (
	"context"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
)

// ListTags returns all tags ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	var rows []tagRow
	err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}

	tags := make([]*domain.Tag, 0, len(rows))
	for i := range rows {
		tags = append(tags, toDomainTag(&rows[i]))
	}
	return tags, nil
}
