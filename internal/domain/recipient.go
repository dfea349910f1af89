package domain

import "time"

// Recipient is a subscriber address. Emails are unique and normalized to
// lowercase on write.
type Recipient struct {
	ID          int64     `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	DisplayName *string   `db:"display_name" json:"displayName,omitempty"`
	Comment     *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
