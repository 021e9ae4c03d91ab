package supchat

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoAgentAvailable    = errors.New("no agent available")
	ErrChatAlreadyClosed   = errors.New("chat already closed")
	ErrNoActiveChat        = errors.New("no active chat")
	ErrChatStillOpen       = errors.New("chat still open")
	ErrInvalidCsat         = errors.New("csat must be between 1 and 5")
	ErrCsatAlreadySet      = errors.New("csat already set")
	ErrInvalidChatCount    = errors.New("invalid chat count")
	ErrAgentNotFound       = errors.New("assigned agent not found in directory")
	ErrClientAlreadyInChat = errors.New("client already has a chat in progress")
	ErrUnknownPerson       = errors.New("unknown person")
	ErrUnknownChat         = errors.New("unknown chat")
	ErrEmptyMessage        = errors.New("message text is empty")
	ErrNotAnAgent          = errors.New("person is not an agent")
	ErrNotAClient          = errors.New("person is not a client")
)

const (
	MinCsat = 1
	MaxCsat = 5
)

type Role string

const (
	RoleAgent  Role = "agent"
	RoleClient Role = "client"
)

// Post is an agent's seniority level.
type Post string

const (
	PostL1 Post = "L1"
	PostL2 Post = "L2"
	PostL3 Post = "L3"
	PostTL Post = "TL"
	PostQA Post = "QA"
)

var Posts = []Post{PostL1, PostL2, PostL3, PostTL, PostQA}

// Person is the identity record shared by agents and clients.
// Agent-only state lives in Agent and is nil for clients.
type Person struct {
	ID               string
	FullName         string
	City             string
	DateOfBirth      time.Time
	ExperienceMonths int
	CurrentChatID    string
	Role             Role
	Agent            *AgentProfile
}

type AgentProfile struct {
	Post      Post
	Available bool

	// LastChatID is the chat this agent most recently closed.
	LastChatID string
}

func NewAgent(fullName, city string, dob time.Time, experienceMonths int, post Post) *Person {
	return &Person{
		ID:               uuid.NewString(),
		FullName:         fullName,
		City:             city,
		DateOfBirth:      dob,
		ExperienceMonths: experienceMonths,
		Role:             RoleAgent,
		Agent:            &AgentProfile{Post: post, Available: true},
	}
}

func NewClient(fullName, city string, dob time.Time, experienceMonths int) *Person {
	return &Person{
		ID:               uuid.NewString(),
		FullName:         fullName,
		City:             city,
		DateOfBirth:      dob,
		ExperienceMonths: experienceMonths,
		Role:             RoleClient,
	}
}

func (p *Person) IsAgent() bool  { return p.Role == RoleAgent && p.Agent != nil }
func (p *Person) IsClient() bool { return p.Role == RoleClient }

// IsAvailable reports whether the person is an agent free to take a chat.
func (p *Person) IsAvailable() bool { return p.IsAgent() && p.Agent.Available }

func (p *Person) clone() Person {
	cp := *p
	if p.Agent != nil {
		a := *p.Agent
		cp.Agent = &a
	}
	return cp
}

var messageTemplates = [...]string{
	"Hello",
	"Missing item",
	"Wrong order delivered",
	"Where is my order",
	"Wrong item",
}

// MessageTemplates returns the canned opening messages clients pick from.
func MessageTemplates() []string {
	return slices.Clone(messageTemplates[:])
}

type Message struct {
	Text     string
	SenderID string
	SentAt   time.Time
}

type Chat struct {
	ID       string
	ClientID string
	AgentIDs []string
	OpenedAt time.Time
	ClosedAt *time.Time
	IsOpen   bool
	Csat     *int
	Messages []Message
}

func (c *Chat) HasAgent(personID string) bool {
	return slices.Contains(c.AgentIDs, personID)
}

// Involves reports whether the person is the chat's client or one of its agents.
func (c *Chat) Involves(personID string) bool {
	return c.ClientID == personID || c.HasAgent(personID)
}

func (c *Chat) clone() Chat {
	cp := *c
	cp.AgentIDs = slices.Clone(c.AgentIDs)
	cp.Messages = slices.Clone(c.Messages)
	if c.Csat != nil {
		v := *c.Csat
		cp.Csat = &v
	}
	if c.ClosedAt != nil {
		t := *c.ClosedAt
		cp.ClosedAt = &t
	}
	return cp
}

type EventType string

const (
	EventChatOpened    EventType = "chat.opened"
	EventMessageSent   EventType = "chat.message"
	EventChatEscalated EventType = "chat.escalated"
	EventChatClosed    EventType = "chat.closed"
	EventCsatSet       EventType = "chat.csat"
)

// Event describes a completed lifecycle mutation.
type Event struct {
	Type     EventType `json:"type"`
	ChatID   string    `json:"chat_id"`
	PersonID string    `json:"person_id,omitempty"`
	Text     string    `json:"text,omitempty"`
	Csat     int       `json:"csat,omitempty"`
	Time     time.Time `json:"time"`
}

// Generator builds fully populated people.
type Generator interface {
	BuildAgent() *Person
	BuildClient() *Person
}

// Publisher — outbound lifecycle notifications
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// SnapshotRepo — persistence of exported snapshots
type SnapshotRepo interface {
	Save(ctx context.Context, snap Snapshot) error
}

// Service — chat lifecycle over a Directory
type Service interface {
	OpenChat(ctx context.Context, clientID string) (Chat, error)
	SendMessage(ctx context.Context, personID, text string) error
	CloseChat(ctx context.Context, agentID string) error
	SetCsat(ctx context.Context, clientID string, score int) error
	Escalate(ctx context.Context, chatID string) (Person, error)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }
