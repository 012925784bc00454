package report

import (
	"strings"
	"testing"

	"github.com/whatsapp-digest/internal/models"
)

func TestExtractSectionAllHeadings(t *testing.T) {
	md := sampleMarkdown("Obra Centro")

	first := make([]string, len(Headings))
	for i, h := range Headings {
		got := ExtractSection(md, h)
		if got == "" {
			t.Errorf("ExtractSection(%q) returned empty", h)
		}
		first[i] = got
	}

	for i, h := range Headings {
		if again := ExtractSection(md, h); again != first[i] {
			t.Errorf("ExtractSection(%q) not stable: %q then %q", h, first[i], again)
		}
	}
}

func TestExtractSection(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		title    string
		expected string
	}{
		{
			name:     "stops at horizontal rule",
			markdown: "## ✅ Resumo executivo\nTudo certo.\n---\n## 🧾 Decisões\nNada.",
			title:    HeadingSummary,
			expected: "Tudo certo.",
		},
		{
			name:     "stops at next heading without rule",
			markdown: "## 🧾 Decisões\n- comprar cimento\n## 📥 Pedidos e solicitações\n- pedido",
			title:    HeadingDecisions,
			expected: "- comprar cimento",
		},
		{
			name:     "runs to end of document",
			markdown: "intro\n## 📲 Texto pronto para WhatsApp\nBom dia, equipe!\nSegue o resumo.",
			title:    HeadingWhatsappText,
			expected: "Bom dia, equipe!\nSegue o resumo.",
		},
		{
			name:     "parentheses are literal",
			markdown: "## 🔁 Pendências (open loops)\n- revisar orçamento\n",
			title:    HeadingOpenLoops,
			expected: "- revisar orçamento",
		},
		{
			name:     "parentheses do not act as a group",
			markdown: "## 🔁 Pendências open loops\n- revisar orçamento\n",
			title:    HeadingOpenLoops,
			expected: "",
		},
		{
			name:     "case insensitive",
			markdown: "## ✅ RESUMO EXECUTIVO\nCurto.",
			title:    HeadingSummary,
			expected: "Curto.",
		},
		{
			name:     "double dash ends the section",
			markdown: "## 🚨 Problemas e ocorrências\nVazamento no 3º andar\n--\nrodapé",
			title:    HeadingProblems,
			expected: "Vazamento no 3º andar",
		},
		{
			name:     "missing heading",
			markdown: "# 📌 Grupo: X\nsem seções",
			title:    HeadingRisks,
			expected: "",
		},
		{
			name:     "emoji must match",
			markdown: "## Resumo executivo\ntexto",
			title:    HeadingSummary,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractSection(tt.markdown, tt.title); got != tt.expected {
				t.Errorf("ExtractSection() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestApplySections(t *testing.T) {
	md := sampleMarkdown("G")
	r := &models.Report{}
	applySections(r, md, ExtractReportSections(md))

	if r.FullText != md {
		t.Error("FullText must hold the raw document")
	}
	if r.Problems != "conteúdo 4\n\n### RISCOS E ATENÇÃO\nconteúdo 8" {
		t.Errorf("Problems = %q", r.Problems)
	}
	if r.Orders != "conteúdo 3\n\n### PENDÊNCIAS\nconteúdo 6" {
		t.Errorf("Orders = %q", r.Orders)
	}
	if r.Actions != "conteúdo 5" {
		t.Errorf("Actions = %q", r.Actions)
	}
	if r.Engagement != "conteúdo 7" {
		t.Errorf("Engagement = %q", r.Engagement)
	}
}

func TestApplySectionsFallbacks(t *testing.T) {
	md := strings.Repeat("á", 600)
	sections := ExtractReportSections(md)

	r := &models.Report{}
	applySections(r, md, sections)

	if r.Summary != strings.Repeat("á", summaryFallbackLen) {
		t.Errorf("Summary fallback has %d runes, want %d", len([]rune(r.Summary)), summaryFallbackLen)
	}
	for name, v := range map[string]string{
		"occurrences": r.Occurrences,
		"problems":    r.Problems,
		"orders":      r.Orders,
		"actions":     r.Actions,
	} {
		if v != "[]" {
			t.Errorf("%s = %q, want []", name, v)
		}
	}
	if r.Engagement != "" {
		t.Errorf("Engagement = %q, want empty", r.Engagement)
	}
	if got := deliveryText(md, sections); got != md {
		t.Error("delivery text should fall back to the full document")
	}
}

func TestRenderMarkdownRoundTrip(t *testing.T) {
	in := models.ReportSections{
		Summary:      "Resumo",
		Timeline:     "- 08:00 início",
		Decisions:    "- manter turno",
		Requests:     "- mais EPIs",
		Problems:     "- falta de água",
		Actions:      "- chamado aberto",
		OpenLoops:    "- aguardar fornecedor",
		Engagement:   "Calmo",
		Risks:        "- atraso",
		WhatsappText: "Bom dia!",
	}

	md := RenderMarkdown("Obra", "01/01/2025", in)
	if !strings.HasPrefix(md, "# 📌 Grupo: Obra\n**Data:** 01/01/2025\n") {
		t.Errorf("unexpected header: %q", md[:40])
	}
	if out := ExtractReportSections(md); out != in {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}
