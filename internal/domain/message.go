package domain

import "time"

// Message is the mail content a schedule delivers. At most one schedule may
// reference a message; deleting a referenced message is rejected.
type Message struct {
	ID        int64     `db:"id" json:"id"`
	Subject   string    `db:"subject" json:"subject"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
