package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/whatsapp-digest/internal/models"
	"golang.org/x/sync/singleflight"
)

// SettingsStore reads and links the singleton settings row
type SettingsStore interface {
	// GetSettings returns nil, nil when the row does not exist
	GetSettings(ctx context.Context) (*models.Settings, error)
	SetDefaultPrompt(ctx context.Context, promptID string) error
}

// PromptStore reads and creates prompt templates
type PromptStore interface {
	GetPrompt(ctx context.Context, id string) (*models.Prompt, error)
	FindPromptByName(ctx context.Context, name string) (*models.Prompt, error)
	CreatePrompt(ctx context.Context, prompt *models.Prompt) error
}

// GroupStore resolves the groups a run targets
type GroupStore interface {
	// ListTargetGroups returns active groups with the given ids, or every
	// active auto-report group when ids is empty. Prompts are attached.
	ListTargetGroups(ctx context.Context, ids []string) ([]models.Group, error)
}

// ReportStore persists reports
type ReportStore interface {
	CreateReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
	UpdateReportStatus(ctx context.Context, id string, status models.ReportStatus) error
	ReportExists(ctx context.Context, groupID, dateRef string) (bool, error)
}

// Store is everything the processor reads and writes
type Store interface {
	SettingsStore
	PromptStore
	GroupStore
	ReportStore
}

// Gateway is the messaging gateway used to read history and deliver reports
type Gateway interface {
	FetchMessages(ctx context.Context, jid string, maxPages int) ([]models.RawMessage, error)
	SendMessage(ctx context.Context, jid, text string) error
}

// Generator turns a message batch into a Markdown report
type Generator interface {
	GenerateReport(ctx context.Context, batchJSON, dateLabel, instructions, subject string) (string, error)
}

// StructuredGenerator is implemented by generators that can return the
// report sections as typed fields instead of Markdown
type StructuredGenerator interface {
	GenerateSections(ctx context.Context, batchJSON, dateLabel, instructions, subject string) (*models.ReportSections, error)
}

// GatewayFactory builds a gateway from the current settings
type GatewayFactory func(settings *models.Settings) (Gateway, error)

// GeneratorFactory builds a generator for the given model name
type GeneratorFactory func(ctx context.Context, settings *models.Settings, model string) (Generator, error)

// Config holds the processor's infrastructure limits
type Config struct {
	MaxPages     int
	GroupTimeout time.Duration
	Location     *time.Location
}

// Processor drives report generation for one or more groups
type Processor struct {
	store        Store
	newGateway   GatewayFactory
	newGenerator GeneratorFactory
	config       Config
	validate     *validator.Validate
	seed         singleflight.Group
	logger       zerolog.Logger
	now          func() time.Time
}

// NewProcessor creates a new report processor
func NewProcessor(store Store, newGateway GatewayFactory, newGenerator GeneratorFactory, config Config, logger zerolog.Logger) *Processor {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.MaxPages <= 0 {
		config.MaxPages = 100
	}
	if config.GroupTimeout <= 0 {
		config.GroupTimeout = 5 * time.Minute
	}

	return &Processor{
		store:        store,
		newGateway:   newGateway,
		newGenerator: newGenerator,
		config:       config,
		validate:     validator.New(),
		logger:       logger.With().Str("component", "report_processor").Logger(),
		now:          time.Now,
	}
}

// run carries the values shared by every group of one Process call
type run struct {
	settings  *models.Settings
	window    Window
	model     string
	dedupe    bool
	gateway   Gateway
	generator Generator
}

// Process generates, stores and delivers reports for the groups selected by
// opts. Per-group failures are reported in the result; only configuration
// problems and invalid dates fail the whole call.
func (p *Processor) Process(ctx context.Context, opts models.ProcessOptions) (*models.ProcessResult, error) {
	if err := p.validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	settings, err := p.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := p.EnsureDefaultPrompt(ctx, settings); err != nil {
		return nil, err
	}

	groups, err := p.store.ListTargetGroups(ctx, opts.GroupIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list target groups: %w", err)
	}
	if len(groups) == 0 {
		p.logger.Info().
			Strs("group_ids", opts.GroupIDs).
			Msg("No active groups match the run criteria, skipping")
		return &models.ProcessResult{Status: models.RunSkipped, Reason: ErrNoTargetGroups.Error()}, nil
	}

	now := p.now()
	startDate, endDate := resolveDates(opts.StartDate, opts.EndDate, settings.Period(), now)
	window, err := NewWindow(startDate, endDate, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	model := opts.Model
	if model == "" {
		model = settings.Model().String()
	}

	r, err := p.newRun(ctx, settings, window, model)
	if err != nil {
		return nil, err
	}
	r.dedupe = opts.Dedupe
	defer closeGenerator(r.generator, p.logger)

	p.logger.Info().
		Int("group_count", len(groups)).
		Str("start_date", window.StartDate).
		Str("end_date", window.EndDate).
		Str("model", model).
		Bool("dedupe", opts.Dedupe).
		Msg("Starting report run")

	result := &models.ProcessResult{
		Status:  models.RunCompleted,
		Results: make([]models.GroupOutcome, 0, len(groups)),
	}

	for i := range groups {
		if err := ctx.Err(); err != nil {
			p.logger.Warn().
				Err(err).
				Int("processed", i).
				Int("remaining", len(groups)-i).
				Msg("Report run cancelled between groups")
			return result, err
		}

		// A group that has started runs to completion under its own budget;
		// cancellation is only observed between groups
		group := &groups[i]
		groupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.config.GroupTimeout)
		outcome := p.processGroup(groupCtx, r, group)
		cancel()

		result.Results = append(result.Results, models.GroupOutcome{Group: group.Name, Result: outcome})
	}

	p.logger.Info().
		Int("group_count", len(groups)).
		Msg("Report run completed")

	return result, nil
}

// loadSettings reads and validates the settings row
func (p *Processor) loadSettings(ctx context.Context) (*models.Settings, error) {
	settings, err := p.store.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if settings == nil {
		return nil, ErrConfiguration
	}
	if err := p.validate.Struct(settings); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return settings, nil
}

func (p *Processor) newRun(ctx context.Context, settings *models.Settings, window Window, model string) (*run, error) {
	gw, err := p.newGateway(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: gateway: %v", ErrConfiguration, err)
	}

	gen, err := p.newGenerator(ctx, settings, model)
	if err != nil {
		return nil, fmt.Errorf("%w: generator: %v", ErrConfiguration, err)
	}

	return &run{
		settings:  settings,
		window:    window,
		model:     model,
		gateway:   gw,
		generator: gen,
	}, nil
}

// EnsureDefaultPrompt makes sure the seeded default prompt exists and, when
// settings has no default prompt linked, links it. Concurrent callers share
// one seeding pass. Settings may be nil, in which case nothing is linked.
func (p *Processor) EnsureDefaultPrompt(ctx context.Context, settings *models.Settings) (string, error) {
	if settings != nil && settings.DefaultPromptID != nil && *settings.DefaultPromptID != "" {
		return *settings.DefaultPromptID, nil
	}

	v, err, _ := p.seed.Do(DefaultPromptName, func() (interface{}, error) {
		prompt, err := p.store.FindPromptByName(ctx, DefaultPromptName)
		if err != nil {
			return "", fmt.Errorf("failed to look up default prompt: %w", err)
		}

		if prompt == nil {
			prompt = &models.Prompt{Name: DefaultPromptName, Content: DefaultPromptContent}
			if err := p.store.CreatePrompt(ctx, prompt); err != nil {
				return "", fmt.Errorf("failed to seed default prompt: %w", err)
			}
			p.logger.Info().Str("prompt_id", prompt.ID).Msg("Seeded default system prompt")
		}

		return prompt.ID, nil
	})
	if err != nil {
		return "", err
	}

	promptID := v.(string)
	if settings == nil {
		return promptID, nil
	}

	if err := p.store.SetDefaultPrompt(ctx, promptID); err != nil {
		return "", fmt.Errorf("failed to link default prompt: %w", err)
	}
	settings.DefaultPromptID = &promptID

	p.logger.Info().Str("prompt_id", promptID).Msg("Linked default prompt")
	return promptID, nil
}

// processGroup runs the pipeline for one group and never returns an error:
// every failure is folded into the group result
func (p *Processor) processGroup(ctx context.Context, r *run, group *models.Group) models.GroupResult {
	logger := p.logger.With().
		Str("group", group.Name).
		Str("group_id", group.ID).
		Str("date_ref", r.window.DateRef).
		Logger()

	logger.Info().Str("jid", group.JID).Msg("Processing group")

	failed := func(err error, reportID string) models.GroupResult {
		logger.Error().Err(err).Str("report_id", reportID).Msg("Failed to process group")
		return models.GroupResult{Status: models.OutcomeError, ReportID: reportID, Error: err.Error()}
	}

	if r.dedupe {
		exists, err := p.store.ReportExists(ctx, group.ID, r.window.DateRef)
		if err != nil {
			return failed(fmt.Errorf("failed to check existing report: %w", err), "")
		}
		if exists {
			logger.Info().Msg("Report already exists for this date, skipping")
			return models.GroupResult{
				Status: models.OutcomeSkipped,
				Reason: "report already exists for " + r.window.DateRef,
			}
		}
	}

	// Fetch
	messages, err := r.gateway.FetchMessages(ctx, group.JID, p.config.MaxPages)
	if err != nil {
		return failed(&GatewayFetchError{JID: group.JID, Err: err}, "")
	}

	// Filter
	filtered := filterMessages(messages, r.window)
	logger.Debug().
		Int("fetched", len(messages)).
		Int("in_window", len(filtered)).
		Msg("Filtered group history")

	if len(filtered) == 0 {
		return p.emptyReport(ctx, r, group, logger)
	}

	// Order and cap
	ordered, dropped := orderAndCap(filtered)
	if dropped > 0 {
		logger.Warn().
			Int("original_count", len(filtered)).
			Int("kept", len(ordered)).
			Msg("Truncating message batch to the newest messages")
	}

	// Normalize
	batchJSON, err := encodeBatch(normalize(ordered, p.config.Location))
	if err != nil {
		return failed(err, "")
	}

	// Prompt
	template, err := resolveTemplate(ctx, p.store, r.settings, group)
	if err != nil {
		return failed(err, "")
	}
	instructions := buildInstructions(template, group.Name, r.window.DateRef)

	// Generate and extract
	markdown, sections, err := p.generate(ctx, r, group, batchJSON, instructions)
	if err != nil {
		return failed(&GenerativeClientError{Model: r.model, Err: err}, "")
	}

	// Persist
	report := &models.Report{
		GroupID:       &group.ID,
		DateRef:       r.window.DateRef,
		Status:        models.ReportGenerated,
		ProcessedData: batchJSON,
	}
	applySections(report, markdown, sections)

	if err := p.store.CreateReport(ctx, report); err != nil {
		return failed(fmt.Errorf("failed to save report: %w", err), "")
	}

	// Deliver
	target := group.DeliveryJID()
	logger.Info().
		Str("report_id", report.ID).
		Str("target_jid", target).
		Bool("custom_destination", target != group.JID).
		Msg("Sending report")

	if err := r.gateway.SendMessage(ctx, target, deliveryText(markdown, sections)); err != nil {
		return failed(&GatewayDeliveryError{JID: target, ReportID: report.ID, Err: err}, report.ID)
	}

	// Finalize
	if err := p.store.UpdateReportStatus(ctx, report.ID, models.ReportSent); err != nil {
		return failed(fmt.Errorf("report delivered but status update failed: %w", err), report.ID)
	}

	logger.Info().
		Str("report_id", report.ID).
		Int("message_count", len(ordered)).
		Msg("Report sent successfully")

	return models.GroupResult{Status: models.OutcomeSuccess, ReportID: report.ID}
}

// emptyReport stores the placeholder report for a window without messages
func (p *Processor) emptyReport(ctx context.Context, r *run, group *models.Group, logger zerolog.Logger) models.GroupResult {
	logger.Warn().Msg("No messages found in window, creating EMPTY report")

	report := &models.Report{
		GroupID:       &group.ID,
		DateRef:       r.window.DateRef,
		Summary:       "Sem mensagens no período.",
		FullText:      "Nenhuma mensagem encontrada para gerar o relatório neste período.",
		Occurrences:   "[]",
		Problems:      "[]",
		Orders:        "[]",
		Actions:       "[]",
		Engagement:    "",
		Status:        models.ReportEmpty,
		ProcessedData: "[]",
	}

	if err := p.store.CreateReport(ctx, report); err != nil {
		logger.Error().Err(err).Msg("Failed to save empty report")
		return models.GroupResult{Status: models.OutcomeError, Error: fmt.Sprintf("failed to save empty report: %v", err)}
	}

	return models.GroupResult{Status: models.OutcomeEmpty, ReportID: report.ID, Reason: "No messages found"}
}

var errEmptyReport = errors.New("generator returned an empty report")

// generate asks for typed sections when enabled and supported, and falls
// back to Markdown extraction otherwise
func (p *Processor) generate(ctx context.Context, r *run, group *models.Group, batchJSON, instructions string) (string, models.ReportSections, error) {
	if sg, ok := r.generator.(StructuredGenerator); ok && r.settings.StructuredOutput {
		sections, err := sg.GenerateSections(ctx, batchJSON, r.window.DateRef, instructions, group.Name)
		if err != nil {
			return "", models.ReportSections{}, err
		}
		return RenderMarkdown(group.Name, r.window.DateRef, *sections), *sections, nil
	}

	markdown, err := r.generator.GenerateReport(ctx, batchJSON, r.window.DateRef, instructions, group.Name)
	if err != nil {
		return "", models.ReportSections{}, err
	}
	if markdown == "" {
		return "", models.ReportSections{}, errEmptyReport
	}

	return markdown, ExtractReportSections(markdown), nil
}

// Resend delivers a stored report again and marks it SENT. It is the manual
// recovery path for reports left GENERATED by a failed delivery.
func (p *Processor) Resend(ctx context.Context, reportID string) (*models.Report, error) {
	settings, err := p.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	report, err := p.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	if report == nil {
		return nil, ErrReportNotFound
	}
	if report.Group == nil {
		return nil, fmt.Errorf("report %s has no group to deliver to", reportID)
	}
	if report.Status == models.ReportEmpty || report.FullText == "" {
		return nil, fmt.Errorf("report %s has no content to deliver", reportID)
	}

	gw, err := p.newGateway(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: gateway: %v", ErrConfiguration, err)
	}

	target := report.Group.DeliveryJID()
	text := deliveryText(report.FullText, models.ReportSections{
		WhatsappText: ExtractSection(report.FullText, HeadingWhatsappText),
	})

	if err := gw.SendMessage(ctx, target, text); err != nil {
		return nil, &GatewayDeliveryError{JID: target, ReportID: report.ID, Err: err}
	}

	if err := p.store.UpdateReportStatus(ctx, report.ID, models.ReportSent); err != nil {
		return nil, fmt.Errorf("report delivered but status update failed: %w", err)
	}
	report.Status = models.ReportSent

	p.logger.Info().
		Str("report_id", report.ID).
		Str("target_jid", target).
		Msg("Report resent")

	return report, nil
}

func closeGenerator(gen Generator, logger zerolog.Logger) {
	if c, ok := gen.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close generator")
		}
	}
}
