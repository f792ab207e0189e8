package history

import (
	"time"

	"github.com/example/realtime-chat-server/modules/session"
)

// Record is the durable form of a chat message. The id is assigned by
// the coordinator, not the database, so autoincrement is disabled and a
// duplicate insert must fail on the primary key.
type Record struct {
	ID        int64     `gorm:"primarykey;autoIncrement:false" json:"id"`
	Sender    string    `gorm:"size:100;not null" json:"sender"`
	SenderID  string    `gorm:"size:64;not null" json:"senderId"`
	Body      string    `gorm:"not null" json:"message"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
	IsPrivate bool      `gorm:"not null;default:false" json:"isPrivate"`
}

// TableName returns the table name for Record.
func (Record) TableName() string {
	return "messages"
}

func fromMessage(msg session.Message) Record {
	return Record{
		ID:        msg.ID,
		Sender:    msg.Sender,
		SenderID:  msg.SenderID,
		Body:      msg.Body,
		Timestamp: msg.Timestamp,
		IsPrivate: msg.IsPrivate,
	}
}

func (r Record) toMessage() session.Message {
	return session.Message{
		ID:        r.ID,
		Sender:    r.Sender,
		SenderID:  r.SenderID,
		Body:      r.Body,
		Timestamp: r.Timestamp,
		IsPrivate: r.IsPrivate,
	}
}
