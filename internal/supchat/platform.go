package supchat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/Vovarama1992/supchat/internal/ai"
)

const (
	DefaultCloseProbability = 0.3
	DefaultCsatProbability  = 0.7
)

// Platform seeds a Directory and drives the scripted simulation.
type Platform struct {
	dir     *Directory
	svc     Service
	gen     Generator
	replier ai.AI
	logger  *slog.Logger

	mu        sync.Mutex // guards rng and serializes runs
	rng       *rand.Rand
	closeProb float64
	csatProb  float64
}

type Option func(*Platform)

// WithReplier makes assigned agents answer open chats on every step.
func WithReplier(r ai.AI) Option {
	return func(p *Platform) { p.replier = r }
}

func WithProbabilities(closeProb, csatProb float64) Option {
	return func(p *Platform) {
		p.closeProb = closeProb
		p.csatProb = csatProb
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Platform) { p.logger = l }
}

func NewPlatform(dir *Directory, svc Service, gen Generator, rng *rand.Rand, opts ...Option) *Platform {
	p := &Platform{
		dir:       dir,
		svc:       svc,
		gen:       gen,
		rng:       rng,
		logger:    slog.Default(),
		closeProb: DefaultCloseProbability,
		csatProb:  DefaultCsatProbability,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Platform) Directory() *Directory { return p.dir }

// Seed adds generated clients and agents. Non-positive counts add nothing.
func (p *Platform) Seed(clientCount, agentCount int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for range max(agentCount, 0) {
		if err := p.dir.AddAgent(p.gen.BuildAgent()); err != nil {
			return fmt.Errorf("seed agents: %w", err)
		}
	}
	for range max(clientCount, 0) {
		if err := p.dir.AddClient(p.gen.BuildClient()); err != nil {
			return fmt.Errorf("seed clients: %w", err)
		}
	}
	p.logger.Info("directory seeded", slog.Int("clients", clientCount), slog.Int("agents", agentCount))
	return nil
}

type ClientFailure struct {
	ClientID string
	Err      error
}

type StartReport struct {
	Opened   []string // chat ids
	Failures []ClientFailure
}

// StartChats opens chats for count distinct idle clients chosen at random.
// A client that cannot get an agent is reported, not fatal.
func (p *Platform) StartChats(ctx context.Context, count int) (StartReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idle := p.dir.IdleClientIDs()
	if count < 0 || count > len(idle) {
		return StartReport{}, fmt.Errorf("start %d chats with %d idle clients: %w", count, len(idle), ErrInvalidChatCount)
	}

	templates := MessageTemplates()
	var report StartReport
	for _, i := range p.rng.Perm(len(idle))[:count] {
		clientID := idle[i]

		chat, err := p.svc.OpenChat(ctx, clientID)
		if err != nil {
			p.logger.Warn("open chat failed", slog.String("client_id", clientID), slog.Any("error", err))
			report.Failures = append(report.Failures, ClientFailure{ClientID: clientID, Err: err})
			continue
		}
		report.Opened = append(report.Opened, chat.ID)

		text := templates[p.rng.IntN(len(templates))]
		if err := p.svc.SendMessage(ctx, clientID, text); err != nil {
			report.Failures = append(report.Failures, ClientFailure{ClientID: clientID, Err: err})
		}
	}
	return report, nil
}

type StepReport struct {
	Closed  []string
	Rated   map[string]int // chat id -> csat
	Replies int
}

// Step runs one tick over every open chat: close with closeProb, then rate
// with csatProb. Chats left open get an agent reply when a replier is set.
//
// ErrAgentNotFound aborts the step; it means the directory is inconsistent.
// A chat closed or rated by someone else in the meantime is skipped.
func (p *Platform) Step(ctx context.Context) (StepReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	report := StepReport{Rated: make(map[string]int)}
	for _, chatID := range p.dir.OpenChatIDs() {
		chat, ok := p.dir.Chat(chatID)
		if !ok || !chat.IsOpen {
			continue
		}

		if p.rng.Float64() >= p.closeProb {
			if p.reply(ctx, chat) {
				report.Replies++
			}
			continue
		}

		agentID, err := p.assignedAgent(chat)
		if err != nil {
			p.logger.Error("directory inconsistent",
				slog.String("chat_id", chat.ID),
				slog.Any("agent_ids", chat.AgentIDs),
				slog.Any("error", err),
			)
			return report, err
		}
		if err := p.svc.CloseChat(ctx, agentID); err != nil {
			if errors.Is(err, ErrChatAlreadyClosed) || errors.Is(err, ErrNoActiveChat) {
				p.logger.Warn("step close skipped", slog.String("chat_id", chat.ID), slog.Any("error", err))
				continue
			}
			return report, fmt.Errorf("step close %s: %w", chat.ID, err)
		}
		report.Closed = append(report.Closed, chat.ID)

		if p.rng.Float64() < p.csatProb {
			score := MinCsat + p.rng.IntN(MaxCsat-MinCsat+1)
			if err := p.svc.SetCsat(ctx, chat.ClientID, score); err != nil {
				if errors.Is(err, ErrCsatAlreadySet) || errors.Is(err, ErrChatStillOpen) {
					p.logger.Warn("step csat skipped", slog.String("chat_id", chat.ID), slog.Any("error", err))
					continue
				}
				return report, fmt.Errorf("step csat %s: %w", chat.ID, err)
			}
			report.Rated[chat.ID] = score
		}
	}
	return report, nil
}

// assignedAgent returns the first of the chat's agents known to the directory.
func (p *Platform) assignedAgent(chat Chat) (string, error) {
	for _, id := range chat.AgentIDs {
		if _, ok := p.dir.Agent(id); ok {
			return id, nil
		}
	}
	return "", fmt.Errorf("chat %s: %w", chat.ID, ErrAgentNotFound)
}

func (p *Platform) reply(ctx context.Context, chat Chat) bool {
	if p.replier == nil {
		return false
	}
	var agentID string
	for _, id := range chat.AgentIDs {
		if a, ok := p.dir.Agent(id); ok && a.CurrentChatID == chat.ID {
			agentID = id
			break
		}
	}
	if agentID == "" {
		return false
	}

	history := make([]ai.Message, 0, len(chat.Messages))
	for _, m := range chat.Messages {
		role := ai.RoleAssistant
		if m.SenderID == chat.ClientID {
			role = ai.RoleUser
		}
		history = append(history, ai.Message{Role: role, Text: m.Text})
	}

	text, err := p.replier.GetReply(ctx, history)
	if err != nil || text == "" {
		if err != nil {
			p.logger.Warn("agent reply failed", slog.String("chat_id", chat.ID), slog.Any("error", err))
		}
		return false
	}
	if err := p.svc.SendMessage(ctx, agentID, text); err != nil {
		if !errors.Is(err, ErrEmptyMessage) {
			p.logger.Warn("agent reply not sent", slog.String("chat_id", chat.ID), slog.Any("error", err))
		}
		return false
	}
	return true
}
