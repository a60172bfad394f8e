// Package telegram is the chat transport: a Bot API client plus the
// long-poll bridge that feeds inbound messages to the bot core.
package telegram

// Update is one entry from getUpdates.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is an inbound chat message. Only text messages are handled;
// everything else is ignored by the bridge.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text"`
}

// User identifies the sender of a message.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// Chat identifies where to send replies.
type Chat struct {
	ID int64 `json:"id"`
}
