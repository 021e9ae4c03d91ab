package supchat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

type service struct {
	dir       *Directory
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(dir *Directory, publisher Publisher, logger *slog.Logger) Service {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		dir:       dir,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *service) OpenChat(ctx context.Context, clientID string) (Chat, error) {
	chat, err := s.openChat(clientID)
	if err != nil {
		return Chat{}, err
	}
	s.logger.Info("chat opened",
		slog.String("chat_id", chat.ID),
		slog.String("client_id", chat.ClientID),
		slog.String("agent_id", chat.AgentIDs[0]),
	)
	s.publish(ctx, Event{Type: EventChatOpened, ChatID: chat.ID, PersonID: chat.AgentIDs[0], Time: chat.OpenedAt})
	return chat, nil
}

// openChat picks the agent and flips its availability under one lock.
func (s *service) openChat(clientID string) (Chat, error) {
	s.dir.mu.Lock()
	defer s.dir.mu.Unlock()

	client, ok := s.dir.people[clientID]
	if !ok {
		return Chat{}, fmt.Errorf("open chat for %s: %w", clientID, ErrUnknownPerson)
	}
	if !client.IsClient() {
		return Chat{}, fmt.Errorf("open chat for %s: %w", clientID, ErrNotAClient)
	}
	if cur := s.dir.chatByID[client.CurrentChatID]; cur != nil && cur.IsOpen {
		return Chat{}, fmt.Errorf("open chat for %s: %w", clientID, ErrClientAlreadyInChat)
	}

	agent := s.dir.pickAvailableLocked()
	if agent == nil {
		return Chat{}, fmt.Errorf("open chat for %s: %w", clientID, ErrNoAgentAvailable)
	}

	chat := &Chat{
		ID:       uuid.NewString(),
		ClientID: client.ID,
		AgentIDs: []string{agent.ID},
		OpenedAt: s.now(),
		IsOpen:   true,
	}
	client.CurrentChatID = chat.ID
	agent.CurrentChatID = chat.ID
	agent.Agent.Available = false
	s.dir.addChatLocked(chat)

	return chat.clone(), nil
}

// SendMessage appends text to the sender's current chat. A person without an
// open chat is silently ignored.
func (s *service) SendMessage(ctx context.Context, personID, text string) error {
	msg, chatID, err := s.sendMessage(personID, text)
	if err != nil || chatID == "" {
		return err
	}
	s.publish(ctx, Event{Type: EventMessageSent, ChatID: chatID, PersonID: personID, Text: msg.Text, Time: msg.SentAt})
	return nil
}

func (s *service) sendMessage(personID, text string) (Message, string, error) {
	s.dir.mu.Lock()
	defer s.dir.mu.Unlock()

	person, ok := s.dir.people[personID]
	if !ok {
		return Message{}, "", fmt.Errorf("send message from %s: %w", personID, ErrUnknownPerson)
	}
	chat := s.dir.chatByID[person.CurrentChatID]
	if chat == nil || !chat.IsOpen {
		return Message{}, "", nil
	}
	if strings.TrimSpace(text) == "" {
		return Message{}, "", fmt.Errorf("send message from %s: %w", personID, ErrEmptyMessage)
	}

	msg := Message{Text: text, SenderID: person.ID, SentAt: s.now()}
	chat.Messages = append(chat.Messages, msg)
	return msg, chat.ID, nil
}

func (s *service) CloseChat(ctx context.Context, agentID string) error {
	chat, err := s.closeChat(agentID)
	if err != nil {
		return err
	}
	s.logger.Info("chat closed", slog.String("chat_id", chat.ID), slog.String("agent_id", agentID))
	s.publish(ctx, Event{Type: EventChatClosed, ChatID: chat.ID, PersonID: agentID, Time: *chat.ClosedAt})
	return nil
}

// closeChat frees every agent still attached to the chat. The client keeps
// pointing at the closed chat so it can rate it.
func (s *service) closeChat(agentID string) (Chat, error) {
	s.dir.mu.Lock()
	defer s.dir.mu.Unlock()

	agent, ok := s.dir.people[agentID]
	if !ok {
		return Chat{}, fmt.Errorf("close chat by %s: %w", agentID, ErrUnknownPerson)
	}
	if !agent.IsAgent() {
		return Chat{}, fmt.Errorf("close chat by %s: %w", agentID, ErrNotAnAgent)
	}

	if agent.CurrentChatID == "" {
		if last := s.dir.chatByID[agent.Agent.LastChatID]; last != nil && !last.IsOpen {
			return Chat{}, fmt.Errorf("close chat %s: %w", last.ID, ErrChatAlreadyClosed)
		}
		return Chat{}, fmt.Errorf("close chat by %s: %w", agentID, ErrNoActiveChat)
	}
	chat := s.dir.chatByID[agent.CurrentChatID]
	if chat == nil {
		return Chat{}, fmt.Errorf("close chat %s: %w", agent.CurrentChatID, ErrUnknownChat)
	}
	if !chat.IsOpen {
		return Chat{}, fmt.Errorf("close chat %s: %w", chat.ID, ErrChatAlreadyClosed)
	}

	closedAt := s.now()
	chat.IsOpen = false
	chat.ClosedAt = &closedAt
	for _, id := range chat.AgentIDs {
		a, ok := s.dir.people[id]
		if !ok || !a.IsAgent() || a.CurrentChatID != chat.ID {
			continue
		}
		a.CurrentChatID = ""
		a.Agent.Available = true
		a.Agent.LastChatID = chat.ID
	}
	return chat.clone(), nil
}

func (s *service) SetCsat(ctx context.Context, clientID string, score int) error {
	chatID, err := s.setCsat(clientID, score)
	if err != nil {
		return err
	}
	s.logger.Info("csat recorded", slog.String("chat_id", chatID), slog.Int("csat", score))
	s.publish(ctx, Event{Type: EventCsatSet, ChatID: chatID, PersonID: clientID, Csat: score, Time: s.now()})
	return nil
}

func (s *service) setCsat(clientID string, score int) (string, error) {
	s.dir.mu.Lock()
	defer s.dir.mu.Unlock()

	client, ok := s.dir.people[clientID]
	if !ok {
		return "", fmt.Errorf("set csat by %s: %w", clientID, ErrUnknownPerson)
	}
	if !client.IsClient() {
		return "", fmt.Errorf("set csat by %s: %w", clientID, ErrNotAClient)
	}
	chat := s.dir.chatByID[client.CurrentChatID]
	if chat == nil || chat.IsOpen {
		return "", fmt.Errorf("set csat by %s: %w", clientID, ErrChatStillOpen)
	}
	if score < MinCsat || score > MaxCsat {
		return "", fmt.Errorf("set csat %d on %s: %w", score, chat.ID, ErrInvalidCsat)
	}
	if chat.Csat != nil {
		return "", fmt.Errorf("set csat on %s: %w", chat.ID, ErrCsatAlreadySet)
	}
	chat.Csat = &score
	return chat.ID, nil
}

// Escalate attaches one more available agent to an open chat.
func (s *service) Escalate(ctx context.Context, chatID string) (Person, error) {
	agent, err := s.escalate(chatID)
	if err != nil {
		return Person{}, err
	}
	s.logger.Info("chat escalated", slog.String("chat_id", chatID), slog.String("agent_id", agent.ID))
	s.publish(ctx, Event{Type: EventChatEscalated, ChatID: chatID, PersonID: agent.ID, Time: s.now()})
	return agent, nil
}

func (s *service) escalate(chatID string) (Person, error) {
	s.dir.mu.Lock()
	defer s.dir.mu.Unlock()

	chat, ok := s.dir.chatByID[chatID]
	if !ok {
		return Person{}, fmt.Errorf("escalate %s: %w", chatID, ErrUnknownChat)
	}
	if !chat.IsOpen {
		return Person{}, fmt.Errorf("escalate %s: %w", chatID, ErrChatAlreadyClosed)
	}
	agent := s.dir.pickAvailableLocked()
	if agent == nil {
		return Person{}, fmt.Errorf("escalate %s: %w", chatID, ErrNoAgentAvailable)
	}

	chat.AgentIDs = append(chat.AgentIDs, agent.ID)
	agent.CurrentChatID = chat.ID
	agent.Agent.Available = false
	return agent.clone(), nil
}

// publish is best effort: the mutation has already happened.
func (s *service) publish(ctx context.Context, ev Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish event failed",
			slog.String("type", string(ev.Type)),
			slog.String("chat_id", ev.ChatID),
			slog.Any("error", err),
		)
	}
}
