package domain

import "time"

// Tag labels books. Names are unique and shared across all books; there is
// no ownership model. Membership on a book is replaced wholesale on update
// rather than diffed.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (t *Tag) Touch() {
	t.UpdatedAt = time.Now()
}
