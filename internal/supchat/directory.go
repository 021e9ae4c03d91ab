package supchat

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// Directory owns every agent, client and chat. Cross references between
// people and chats are ids resolved through its indexes.
//
// Reads return copies; mutation of held records happens only in service.go
// while mu is held.
type Directory struct {
	mu  sync.RWMutex
	rng *rand.Rand

	agents  []*Person
	clients []*Person
	chats   []*Chat

	people   map[string]*Person
	chatByID map[string]*Chat
}

// NewDirectory creates an empty directory. rng drives agent selection.
func NewDirectory(rng *rand.Rand) *Directory {
	return &Directory{
		rng:      rng,
		people:   make(map[string]*Person),
		chatByID: make(map[string]*Chat),
	}
}

func (d *Directory) AddAgent(p *Person) error {
	if !p.IsAgent() {
		return fmt.Errorf("add agent %s: %w", p.ID, ErrNotAnAgent)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.agents = append(d.agents, p)
	d.people[p.ID] = p
	return nil
}

func (d *Directory) AddClient(p *Person) error {
	if !p.IsClient() {
		return fmt.Errorf("add client %s: %w", p.ID, ErrNotAClient)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clients = append(d.clients, p)
	d.people[p.ID] = p
	return nil
}

func (d *Directory) AddChat(c *Chat) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addChatLocked(c)
}

func (d *Directory) addChatLocked(c *Chat) {
	d.chats = append(d.chats, c)
	d.chatByID[c.ID] = c
}

// PickAvailableAgent returns a uniformly random available agent, or false
// when every agent is busy.
func (d *Directory) PickAvailableAgent() (Person, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a := d.pickAvailableLocked()
	if a == nil {
		return Person{}, false
	}
	return a.clone(), true
}

// pickAvailableLocked needs the write lock: it advances rng.
func (d *Directory) pickAvailableLocked() *Person {
	free := make([]*Person, 0, len(d.agents))
	for _, a := range d.agents {
		if a.IsAvailable() {
			free = append(free, a)
		}
	}
	if len(free) == 0 {
		return nil
	}
	return free[d.rng.IntN(len(free))]
}

func (d *Directory) Agent(id string) (Person, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.people[id]
	if !ok || !p.IsAgent() {
		return Person{}, false
	}
	return p.clone(), true
}

func (d *Directory) Client(id string) (Person, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.people[id]
	if !ok || !p.IsClient() {
		return Person{}, false
	}
	return p.clone(), true
}

func (d *Directory) Chat(id string) (Chat, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.chatByID[id]
	if !ok {
		return Chat{}, false
	}
	return c.clone(), true
}

func (d *Directory) Agents() []Person {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return clonePeople(d.agents)
}

func (d *Directory) Clients() []Person {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return clonePeople(d.clients)
}

func (d *Directory) Chats() []Chat {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Chat, 0, len(d.chats))
	for _, c := range d.chats {
		out = append(out, c.clone())
	}
	return out
}

// OpenChatIDs lists open chats in creation order.
func (d *Directory) OpenChatIDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var ids []string
	for _, c := range d.chats {
		if c.IsOpen {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// IdleClientIDs lists clients that have no open chat, in insertion order.
func (d *Directory) IdleClientIDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var ids []string
	for _, c := range d.clients {
		if cur := d.chatByID[c.CurrentChatID]; cur != nil && cur.IsOpen {
			continue
		}
		ids = append(ids, c.ID)
	}
	return ids
}

// ChatsForPerson returns chats where the person is the client or an assigned agent.
func (d *Directory) ChatsForPerson(personID string) []Chat {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Chat
	for _, c := range d.chats {
		if c.Involves(personID) {
			out = append(out, c.clone())
		}
	}
	return out
}

func clonePeople(in []*Person) []Person {
	out := make([]Person, 0, len(in))
	for _, p := range in {
		out = append(out, p.clone())
	}
	return out
}
