package supchat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Vovarama1992/supchat/internal/ai"
)

var testDOB = time.Date(1990, time.March, 14, 0, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	dir     *Directory
	svc     *service
	pub     *recordingPublisher
	agents  []string
	clients []string
}

func newFixture(t *testing.T, agents, clients int) *fixture {
	t.Helper()
	dir := NewDirectory(testRand(1))
	pub := &recordingPublisher{}
	svc := NewService(dir, pub, discardLogger()).(*service)

	var tick time.Duration
	base := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		tick += time.Second
		return base.Add(tick)
	}

	f := &fixture{dir: dir, svc: svc, pub: pub}
	for range agents {
		a := NewAgent("Tyan Lev Vadimovich", "Omsk", testDOB, 12, PostL1)
		require.NoError(t, dir.AddAgent(a))
		f.agents = append(f.agents, a.ID)
	}
	for range clients {
		c := NewClient("Kochin Makar Sergeevich", "Kazan", testDOB, 3)
		require.NoError(t, dir.AddClient(c))
		f.clients = append(f.clients, c.ID)
	}
	return f
}

// checkInvariants asserts the availability and single-assignment rules over
// the whole directory.
func checkInvariants(t *testing.T, d *Directory) {
	t.Helper()
	owner := make(map[string]string)
	for _, c := range d.Chats() {
		if c.Csat != nil {
			require.False(t, c.IsOpen, "chat %s rated while open", c.ID)
			require.True(t, *c.Csat >= MinCsat && *c.Csat <= MaxCsat, "chat %s csat %d", c.ID, *c.Csat)
		}
		if !c.IsOpen {
			continue
		}
		require.NotEmpty(t, c.AgentIDs)
		for _, id := range c.AgentIDs {
			prev, taken := owner[id]
			require.False(t, taken, "agent %s in open chats %s and %s", id, prev, c.ID)
			owner[id] = c.ID
		}
	}
	for _, a := range d.Agents() {
		require.Equal(t, a.CurrentChatID == "", a.Agent.Available,
			"agent %s available=%v current=%q", a.ID, a.Agent.Available, a.CurrentChatID)
		if a.CurrentChatID != "" {
			require.Equal(t, a.CurrentChatID, owner[a.ID])
		}
	}
}

type fakeGenerator struct{ n int }

func (g *fakeGenerator) BuildAgent() *Person {
	g.n++
	return NewAgent("Agent", "Ufa", testDOB, g.n, PostL2)
}

func (g *fakeGenerator) BuildClient() *Person {
	g.n++
	return NewClient("Client", "Sochi", testDOB, g.n)
}

type fakeReplier struct {
	reply   string
	err     error
	calls   int
	history []ai.Message
}

func (r *fakeReplier) GetReply(_ context.Context, history []ai.Message) (string, error) {
	r.calls++
	r.history = history
	return r.reply, r.err
}

var errBoom = errors.New("boom")
