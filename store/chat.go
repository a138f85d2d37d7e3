package store

// Sender identifies who produced a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ChatSession is one conversation between a user and the assistant.
type ChatSession struct {
	ID        int32
	UID       string
	Title     string
	CreatedTs int64
}

type FindChatSession struct {
	ID  *int32
	UID *string
}

type UpdateChatSession struct {
	ID    int32
	Title *string
}

type DeleteChatSession struct {
	ID int32
}

// ChatSessionStats are the derived aggregates of one session.
type ChatSessionStats struct {
	MessageCount int
	TotalCost    float64
}

// ChatMessage is one turn in a session. Immutable once created.
type ChatMessage struct {
	ID        int32
	UID       string
	SessionID int32
	Sender    Sender
	Content   string
	// Cost is the monetary cost incurred producing the message,
	// zero for user messages.
	Cost      float64
	HasImage  bool
	Image     []byte
	PlotTag   string
	CreatedTs int64
}

type FindChatMessage struct {
	ID        *int32
	UID       *string
	SessionID *int32
}
