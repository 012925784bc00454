package report

import (
	"context"
	"fmt"
	"sync"

	"github.com/whatsapp-digest/internal/models"
)

type fakeStore struct {
	mu       sync.Mutex
	settings *models.Settings
	prompts  map[string]*models.Prompt
	groups   []models.Group
	reports  map[string]*models.Report
	nextID   int

	createPromptCalls int
	failCreateReport  error
	failUpdateStatus  error
}

func newFakeStore(settings *models.Settings, groups ...models.Group) *fakeStore {
	return &fakeStore{
		settings: settings,
		prompts:  map[string]*models.Prompt{},
		groups:   groups,
		reports:  map[string]*models.Report{},
	}
}

func (s *fakeStore) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *fakeStore) GetSettings(ctx context.Context) (*models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return nil, nil
	}
	copied := *s.settings
	return &copied, nil
}

func (s *fakeStore) SetDefaultPrompt(ctx context.Context, promptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.DefaultPromptID = &promptID
	return nil
}

func (s *fakeStore) GetPrompt(ctx context.Context, id string) (*models.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompts[id], nil
}

func (s *fakeStore) FindPromptByName(ctx context.Context, name string) (*models.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.prompts {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CreatePrompt(ctx context.Context, prompt *models.Prompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createPromptCalls++
	prompt.ID = s.id("prompt")
	s.prompts[prompt.ID] = prompt
	return nil
}

func (s *fakeStore) ListTargetGroups(ctx context.Context, ids []string) ([]models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := map[string]bool{}
	for _, id := range ids {
		wanted[id] = true
	}

	var out []models.Group
	for _, g := range s.groups {
		if !g.IsActive {
			continue
		}
		if len(ids) > 0 && !wanted[g.ID] {
			continue
		}
		if len(ids) == 0 && !g.IncludeInAutoReport {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *fakeStore) CreateReport(ctx context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreateReport != nil {
		return s.failCreateReport
	}
	report.ID = s.id("report")
	copied := *report
	s.reports[report.ID] = &copied
	return nil
}

func (s *fakeStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	for i := range s.groups {
		if r.GroupID != nil && s.groups[i].ID == *r.GroupID {
			g := s.groups[i]
			copied.Group = &g
		}
	}
	return &copied, nil
}

func (s *fakeStore) UpdateReportStatus(ctx context.Context, id string, status models.ReportStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdateStatus != nil {
		return s.failUpdateStatus
	}
	r, ok := s.reports[id]
	if !ok {
		return fmt.Errorf("report %s not found", id)
	}
	r.Status = status
	return nil
}

func (s *fakeStore) ReportExists(ctx context.Context, groupID, dateRef string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r.GroupID != nil && *r.GroupID == groupID && r.DateRef == dateRef &&
			r.Status != models.ReportError {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) reportList() []*models.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Report, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r)
	}
	return out
}

type sentMessage struct {
	JID  string
	Text string
}

type fakeGateway struct {
	mu       sync.Mutex
	history  map[string][]models.RawMessage
	fetchErr map[string]error
	sendErr  error
	fetched  []string
	sent     []sentMessage
	maxPages int
}

func (g *fakeGateway) FetchMessages(ctx context.Context, jid string, maxPages int) ([]models.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.fetched = append(g.fetched, jid)
	g.maxPages = maxPages
	if err := g.fetchErr[jid]; err != nil {
		return nil, err
	}
	return g.history[jid], nil
}

func (g *fakeGateway) SendMessage(ctx context.Context, jid, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if g.sendErr != nil {
		return g.sendErr
	}
	g.sent = append(g.sent, sentMessage{JID: jid, Text: text})
	return nil
}

type generateCall struct {
	BatchJSON    string
	DateLabel    string
	Instructions string
	Subject      string
}

type fakeGenerator struct {
	mu       sync.Mutex
	markdown string
	err      error
	calls    []generateCall
	closed   bool

	// runs before each generation, outside the lock
	onGenerate func()
}

func (g *fakeGenerator) GenerateReport(ctx context.Context, batchJSON, dateLabel, instructions, subject string) (string, error) {
	if g.onGenerate != nil {
		g.onGenerate()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, generateCall{batchJSON, dateLabel, instructions, subject})
	if g.err != nil {
		return "", g.err
	}
	return g.markdown, nil
}

func (g *fakeGenerator) Close() error {
	g.closed = true
	return nil
}

type fakeStructuredGenerator struct {
	fakeGenerator
	sections models.ReportSections
}

func (g *fakeStructuredGenerator) GenerateSections(ctx context.Context, batchJSON, dateLabel, instructions, subject string) (*models.ReportSections, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, generateCall{batchJSON, dateLabel, instructions, subject})
	sections := g.sections
	return &sections, nil
}
