package domain

import "time"

// Media types allowed on message attachments.
const (
	MediaImage = "image"
	MediaVideo = "video"
	MediaAudio = "audio"
	MediaFile  = "file"
)

// Media is a single attachment on a message.
type Media struct {
	URL  string `bson:"url" json:"url"`
	Type string `bson:"type" json:"type"`
}

// Conversation represents a chat between two users (direct) or more (group).
// Direct conversations carry a ParticipantsKey: the two participant ids
// sorted lexicographically and joined with ":". At most one conversation may
// exist per key; the store enforces this with a unique constraint. Group
// conversations never populate the key.
type Conversation struct {
	ID              string    `json:"id"`
	Participants    []string  `json:"participants"`
	ParticipantsKey string    `json:"-"`
	IsGroup         bool      `json:"isGroup"`
	GroupName       string    `json:"groupName,omitempty"`
	GroupAvatar     string    `json:"groupAvatar,omitempty"`
	LastMessageID   string    `json:"lastMessageId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Message is a single chat message. Immutable after creation except for
// SeenBy, which only ever grows.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	ReceiverID     string    `json:"receiverId"`
	Text           string    `json:"text"`
	Media          []Media   `json:"media,omitempty"`
	ReplyTo        string    `json:"replyTo,omitempty"`
	SeenBy         []string  `json:"seenBy"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Profile is display metadata for a user, owned by the remote user service.
// It is fetched per request and never cached here.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	FullName string `json:"fullName,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// ChatSummary is one row of a user's chat list.
type ChatSummary struct {
	ConversationID string    `json:"conversationId"`
	Participants   []string  `json:"participants"`
	CounterpartID  string    `json:"counterpartId,omitempty"`
	Counterpart    *Profile  `json:"counterpartInfo"`
	IsGroup        bool      `json:"isGroup"`
	GroupName      string    `json:"groupName,omitempty"`
	GroupAvatar    string    `json:"groupAvatar,omitempty"`
	LastMessage    *Message  `json:"lastMessage"`
	UnreadCount    int64     `json:"unreadCount"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
