package report

import (
	"regexp"
	"strings"

	"github.com/whatsapp-digest/internal/models"
)

// Headings of the fixed report template. They must match the generated
// Markdown byte for byte, emoji included.
const (
	HeadingSummary      = "✅ Resumo executivo"
	HeadingTimeline     = "🧭 O que aconteceu (linha do tempo)"
	HeadingDecisions    = "🧾 Decisões"
	HeadingRequests     = "📥 Pedidos e solicitações"
	HeadingProblems     = "🚨 Problemas e ocorrências"
	HeadingActions      = "🛠️ Ações tomadas"
	HeadingOpenLoops    = "🔁 Pendências (open loops)"
	HeadingEngagement   = "😊 Engajamento e humor do grupo"
	HeadingRisks        = "⚠️ Riscos e pontos de atenção"
	HeadingWhatsappText = "📲 Texto pronto para WhatsApp"
)

// Headings lists the template sections in document order
var Headings = []string{
	HeadingSummary,
	HeadingTimeline,
	HeadingDecisions,
	HeadingRequests,
	HeadingProblems,
	HeadingActions,
	HeadingOpenLoops,
	HeadingEngagement,
	HeadingRisks,
	HeadingWhatsappText,
}

// Sub-headings used when folding secondary sections into stored columns
const (
	subHeadingDecisions = "\n\n### DECISÕES\n"
	subHeadingRisks     = "\n\n### RISCOS E ATENÇÃO\n"
	subHeadingOpenLoops = "\n\n### PENDÊNCIAS\n"
)

// summaryFallbackLen is how much of the document is stored as summary
// when the summary section is missing
const summaryFallbackLen = 500

// section terminators: a horizontal rule or the next level-2 heading
var sectionEnds = []string{"\n--", "\n## "}

// ExtractSection returns the trimmed body of the "## <title>" section of
// markdown, or "" when the heading is absent. The title is matched literally
// and case-insensitively. The body ends at the next horizontal rule, the
// next "## " heading or the end of the document.
func ExtractSection(markdown, title string) string {
	re, err := regexp.Compile(`(?i)## ` + regexp.QuoteMeta(title))
	if err != nil {
		return ""
	}

	loc := re.FindStringIndex(markdown)
	if loc == nil {
		return ""
	}

	body := markdown[loc[1]:]
	end := len(body)
	for _, marker := range sectionEnds {
		if i := strings.Index(body, marker); i >= 0 && i < end {
			end = i
		}
	}

	return strings.TrimSpace(body[:end])
}

// ExtractReportSections splits a template document into its ten sections
func ExtractReportSections(markdown string) models.ReportSections {
	return models.ReportSections{
		Summary:      ExtractSection(markdown, HeadingSummary),
		Timeline:     ExtractSection(markdown, HeadingTimeline),
		Decisions:    ExtractSection(markdown, HeadingDecisions),
		Requests:     ExtractSection(markdown, HeadingRequests),
		Problems:     ExtractSection(markdown, HeadingProblems),
		Actions:      ExtractSection(markdown, HeadingActions),
		OpenLoops:    ExtractSection(markdown, HeadingOpenLoops),
		Engagement:   ExtractSection(markdown, HeadingEngagement),
		Risks:        ExtractSection(markdown, HeadingRisks),
		WhatsappText: ExtractSection(markdown, HeadingWhatsappText),
	}
}

// RenderMarkdown writes sections back into the template layout. Structured
// generators use it so stored full text always follows the same headings.
func RenderMarkdown(groupName, dateRef string, s models.ReportSections) string {
	bodies := []string{
		s.Summary, s.Timeline, s.Decisions, s.Requests, s.Problems,
		s.Actions, s.OpenLoops, s.Engagement, s.Risks, s.WhatsappText,
	}

	var sb strings.Builder
	sb.WriteString("# 📌 Grupo: " + groupName + "\n")
	sb.WriteString("**Data:** " + dateRef + "\n")
	for i, heading := range Headings {
		sb.WriteString("\n---\n\n## " + heading + "\n")
		sb.WriteString(strings.TrimSpace(bodies[i]) + "\n")
	}

	return sb.String()
}

// applySections maps extracted sections onto the stored report columns
func applySections(r *models.Report, markdown string, s models.ReportSections) {
	r.FullText = markdown

	r.Summary = s.Summary
	if r.Summary == "" {
		r.Summary = truncateRunes(markdown, summaryFallbackLen)
	}

	r.Occurrences = orEmptyList(appendSub(s.Timeline, subHeadingDecisions, s.Decisions))
	r.Problems = orEmptyList(appendSub(s.Problems, subHeadingRisks, s.Risks))
	r.Orders = orEmptyList(appendSub(s.Requests, subHeadingOpenLoops, s.OpenLoops))
	r.Actions = orEmptyList(s.Actions)
	r.Engagement = s.Engagement
}

// deliveryText is the text sent back to the chat
func deliveryText(markdown string, s models.ReportSections) string {
	if s.WhatsappText != "" {
		return s.WhatsappText
	}
	return markdown
}

func appendSub(main, heading, extra string) string {
	if extra == "" {
		return main
	}
	return main + heading + extra
}

func orEmptyList(s string) string {
	if s == "" {
		return "[]"
	}
	return s
}

// truncateRunes cuts s to at most n runes without splitting a character
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
