// Package domain defines the persistence model for ingested webhook messages
// and the aggregate shapes derived from it. Message is mapped with GORM and
// is the only table owned by the service.
package domain

// TimestampLayout is the layout used for server-assigned timestamps
// (created_at): UTC, microsecond precision, literal "Z" suffix.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Message is a single webhook record, keyed by the sender-supplied
// message_id. Rows are inserted once and never updated or deleted.
//
// Fields:
//   - MessageID: opaque, non-empty primary key chosen by the sender.
//   - From / To: E.164-like numbers ("+" followed by digits).
//   - TS: sender timestamp, ISO-8601 UTC with a trailing "Z"; stored as text
//     so lexical ordering matches chronological ordering.
//   - Text: optional body, at most MaxTextRunes characters; NULL when absent.
//   - TextFolded: Unicode case-folded Text, written by the store and used
//     only for the q filter; never serialized.
//   - CreatedAt: server-assigned at insert time (TimestampLayout).
type Message struct {
	MessageID  string  `json:"message_id" gorm:"column:message_id;type:text;primaryKey"`
	From       string  `json:"from"       gorm:"column:from_msisdn;type:text;not null;index:idx_messages_from"`
	To         string  `json:"to"         gorm:"column:to_msisdn;type:text;not null"`
	TS         string  `json:"ts"         gorm:"column:ts;type:text;not null;index:idx_messages_ts"`
	Text       *string `json:"text"       gorm:"column:text;type:text"`
	TextFolded *string `json:"-"          gorm:"column:text_folded;type:text"`
	CreatedAt  string  `json:"-"          gorm:"column:created_at;type:text;not null;autoCreateTime:false"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// SenderCount is one row of the per-sender breakdown in Stats.
type SenderCount struct {
	From  string `json:"from"`
	Count int64  `json:"count"`
}

// Stats is an aggregate snapshot over all stored messages.
// FirstMessageTS and LastMessageTS are nil when the table is empty.
type Stats struct {
	TotalMessages     int64         `json:"total_messages"`
	SendersCount      int64         `json:"senders_count"`
	MessagesPerSender []SenderCount `json:"messages_per_sender"`
	FirstMessageTS    *string       `json:"first_message_ts"`
	LastMessageTS     *string       `json:"last_message_ts"`
}

// MessageFilter holds the optional, AND-combined predicates for listing
// messages. Empty fields are ignored.
type MessageFilter struct {
	From  string // exact sender match
	Since string // inclusive lower bound on ts
	Q     string // case-insensitive substring of text
}
