package llm

import (
	"fmt"
	"strings"

	"github.com/whatsapp-digest/internal/report"
)

// RewriteSystemPrompt instructs the model to return only the rewritten text
const RewriteSystemPrompt = "Você é um assistente de redação experiente. Sua tarefa é reescrever o texto fornecido seguindo as instruções. Retorne APENAS o texto reescrito."

// sectionHints are the placeholders shown under each heading of the template,
// in the same order as report.Headings
var sectionHints = []string{
	"Resumo curto e direto do dia (3-6 linhas)",
	"Liste os acontecimentos em ordem cronológica",
	"Liste as decisões tomadas",
	"Liste solicitações e responsáveis",
	"Liste falhas técnicas e incidentes",
	"O que foi resolvido",
	"Próximos passos e prioridades",
	"Análise de clima e engajamento",
	"Riscos operacionais ou de conflito",
	"Texto final resumido, respeitando a linha do tempo e os acontecimentos relatados, com emojis para enviar ao grupo",
}

// sectionKeys are the JSON keys of the structured output, in heading order
var sectionKeys = []string{
	"summary",
	"timeline",
	"decisions",
	"requests",
	"problems",
	"actions",
	"open_loops",
	"engagement",
	"risks",
	"whatsapp_text",
}

// isRange reports whether a date label covers more than one day
func isRange(dateLabel string) bool {
	return strings.Contains(dateLabel, " a ")
}

// BuildReportPrompt builds the system prompt for a group report. The caller's
// instructions are appended after the fixed output format. With structured
// set the format asks for a JSON object instead of Markdown.
func BuildReportPrompt(groupName, dateLabel, instructions string, structured bool) string {
	dateDesc, timeDesc, unit := "dia "+dateLabel, "naquele dia", "dia"
	if isRange(dateLabel) {
		dateDesc, timeDesc, unit = "período "+dateLabel, "nesse período", "período"
	}

	var sb strings.Builder

	sb.WriteString("Você é um Especialista Sênior em Análise de Grupos de WhatsApp (OSINT leve + análise comportamental + resumo executivo).\n")
	sb.WriteString(fmt.Sprintf("Seu trabalho é analisar um conjunto de mensagens do grupo \"%s\" (referentes ao %s) e explicar, com clareza, o que ocorreu %s.\n\n", groupName, dateDesc, timeDesc))

	sb.WriteString("OBJETIVO\n")
	sb.WriteString(fmt.Sprintf("- Transformar mensagens caóticas em um retrato fiel do %s: acontecimentos, decisões, problemas, pedidos, ações e próximos passos.\n", unit))
	sb.WriteString("- Diferenciar fatos vs. suposições/boatos.\n")
	sb.WriteString("- Identificar mudanças de humor/engajamento e possíveis conflitos.\n")
	sb.WriteString("- Preservar contexto sem expor dados sensíveis desnecessários.\n\n")

	sb.WriteString("REGRAS CRÍTICAS\n")
	sb.WriteString("1) NÃO invente nada. Se algo não estiver explícito, marque como “não confirmado”.\n")
	sb.WriteString("2) NÃO vaze dados sensíveis. Mascarar: telefones, e-mails, CPF, placas, endereços completos. Ex.: “(tel. final 1234)”.\n")
	sb.WriteString("3) Separar “O que aconteceu” de “Interpretação/Leituras”.\n")
	sb.WriteString("4) Resumir com fidelidade: manter intenções, decisões e problemas, sem distorcer.\n")
	sb.WriteString("5) Quando houver conflito, registrar: quem discordou (se relevante), motivo e se houve resolução.\n")
	sb.WriteString("6) Mensagens repetidas/ruído: agrupar e reduzir.\n\n")

	sb.WriteString("TAREFAS DE ANÁLISE (checklist mental)\n")
	sb.WriteString("- Linha do tempo do dia (manhã/tarde/noite). Use as horas das mensagens (Fuso Horário de Brasília) para classificar.\n")
	sb.WriteString("- Eventos/ocorrências principais\n")
	sb.WriteString("- Problemas relatados e impacto\n")
	sb.WriteString("- Pedidos/solicitações e responsáveis\n")
	sb.WriteString("- Ações executadas e status (feito / em andamento / pendente)\n")
	sb.WriteString("- Decisões tomadas e justificativas (se houver)\n")
	sb.WriteString("- Pendências e próximos passos\n")
	sb.WriteString("- Engajamento e humor (calmo, tenso, brincalhão, crítico, apático etc.)\n")
	sb.WriteString("- Riscos (ex.: escalada de conflito, falha operacional, desinformação, vazamento)\n\n")

	if structured {
		writeJSONFormat(&sb)
	} else {
		writeMarkdownFormat(&sb, groupName, dateLabel)
	}

	if instructions != "" {
		sb.WriteString("\n")
		sb.WriteString(instructions)
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeMarkdownFormat(sb *strings.Builder, groupName, dateLabel string) {
	sb.WriteString("FORMATO DE SAÍDA (MARKDOWN OBRIGATÓRIO)\n")
	sb.WriteString("Você deve retornar APENAS o documento em Markdown (MD), seguindo EXATAMENTE esta estrutura e títulos:\n\n")
	sb.WriteString(fmt.Sprintf("# 📌 Grupo: %s\n**Data:** %s\n", groupName, dateLabel))

	for i, heading := range report.Headings {
		sb.WriteString(fmt.Sprintf("\n---\n\n## %s\n{%s}\n", heading, sectionHints[i]))
	}
}

func writeJSONFormat(sb *strings.Builder) {
	sb.WriteString("FORMATO DE SAÍDA (JSON OBRIGATÓRIO)\n")
	sb.WriteString("Retorne APENAS um objeto JSON com as chaves abaixo. Cada valor é texto em Markdown, sem o título da seção:\n\n")

	for i, key := range sectionKeys {
		sb.WriteString(fmt.Sprintf("- %s (%s): %s\n", key, report.Headings[i], sectionHints[i]))
	}
}

// ReportUserMessage wraps the message batch for the report request
func ReportUserMessage(dateLabel, groupName, batchJSON string) string {
	return fmt.Sprintf("Analise as mensagens do dia %s for generic group %s:\n%s", dateLabel, groupName, batchJSON)
}

// RewriteUserMessage wraps the text to rewrite with its instruction
func RewriteUserMessage(text, instruction string) string {
	return fmt.Sprintf("Instrução: %s\n\nTexto Original:\n%s", instruction, text)
}

// stripCodeFence removes a Markdown code fence wrapping the whole answer
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return trimmed
	}

	body := strings.TrimSuffix(trimmed[3:], "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], " #{") {
		// drop the language tag line
		body = body[nl+1:]
	}
	return strings.TrimSpace(body)
}
