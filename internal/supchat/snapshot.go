package supchat

import "time"

const dateLayout = "2006-01-02"

// Snapshot is the plain, cycle-free view of a Directory.
type Snapshot struct {
	Agents  []AgentRecord  `json:"agents"`
	Clients []ClientRecord `json:"clients"`
	Chats   []ChatRecord   `json:"chats"`
}

type PersonRecord struct {
	ID               string  `json:"id"`
	FullName         string  `json:"fullName"`
	City             string  `json:"city"`
	DateOfBirth      string  `json:"dateOfBirth"`
	ExperienceMonths int     `json:"experienceMonths"`
	CurrentChatID    *string `json:"currentChatId"`
}

type AgentRecord struct {
	PersonRecord
	Post        Post `json:"post"`
	IsAvailable bool `json:"isAvailable"`
}

type ClientRecord struct {
	PersonRecord
}

type ChatRecord struct {
	ID         string          `json:"id"`
	ClientID   string          `json:"clientId"`
	SupportIDs []string        `json:"supportIds"`
	OpenedAt   string          `json:"openedAt"`
	ClosedAt   *string         `json:"closedAt"`
	IsOpen     bool            `json:"isOpen"`
	Csat       *int            `json:"csat"`
	Messages   []MessageRecord `json:"messages"`
}

type MessageRecord struct {
	Text     string `json:"text"`
	SenderID string `json:"senderId"`
	SentAt   string `json:"sentAt"`
}

// Snapshot renders every agent, client and chat in insertion order.
func (d *Directory) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	snap := Snapshot{
		Agents:  make([]AgentRecord, 0, len(d.agents)),
		Clients: make([]ClientRecord, 0, len(d.clients)),
		Chats:   make([]ChatRecord, 0, len(d.chats)),
	}
	for _, a := range d.agents {
		snap.Agents = append(snap.Agents, a.agentRecord())
	}
	for _, c := range d.clients {
		snap.Clients = append(snap.Clients, ClientRecord{PersonRecord: c.personRecord()})
	}
	for _, c := range d.chats {
		snap.Chats = append(snap.Chats, c.record())
	}
	return snap
}

func (p *Person) personRecord() PersonRecord {
	r := PersonRecord{
		ID:               p.ID,
		FullName:         p.FullName,
		City:             p.City,
		DateOfBirth:      p.DateOfBirth.Format(dateLayout),
		ExperienceMonths: p.ExperienceMonths,
	}
	if p.CurrentChatID != "" {
		id := p.CurrentChatID
		r.CurrentChatID = &id
	}
	return r
}

func (p *Person) agentRecord() AgentRecord {
	r := AgentRecord{PersonRecord: p.personRecord()}
	if p.Agent != nil {
		r.Post = p.Agent.Post
		r.IsAvailable = p.Agent.Available
	}
	return r
}

func (c *Chat) record() ChatRecord {
	r := ChatRecord{
		ID:         c.ID,
		ClientID:   c.ClientID,
		SupportIDs: append([]string{}, c.AgentIDs...),
		OpenedAt:   timestamp(c.OpenedAt),
		IsOpen:     c.IsOpen,
		Messages:   make([]MessageRecord, 0, len(c.Messages)),
	}
	if c.ClosedAt != nil {
		ts := timestamp(*c.ClosedAt)
		r.ClosedAt = &ts
	}
	if c.Csat != nil {
		v := *c.Csat
		r.Csat = &v
	}
	for _, m := range c.Messages {
		r.Messages = append(r.Messages, MessageRecord{Text: m.Text, SenderID: m.SenderID, SentAt: timestamp(m.SentAt)})
	}
	return r
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
