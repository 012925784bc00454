package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/whatsapp-digest/internal/models"
)

// DefaultPromptName is the name of the prompt seeded when none is linked
const DefaultPromptName = "Sistema - Business Analyst (Padrão)"

// DefaultPromptContent is the seeded instruction template
const DefaultPromptContent = `Agente de Resumos: Senior Business Analyst.

CRITÉRIOS DE ANÁLISE:
1. FILTRAGEM: Ignore saudações simples ("Bom dia", "Boa tarde", "Ok", "👍"), figurinhas e mensagens irrelevantes.
2. CATEGORIZAÇÃO: Separe claramente Problemas (FALHAS) de Solicitações (PEDIDOS) e Ações (RESOLUÇÕES).
3. TOM: Profissional, direto e focado em resultados.

CRITÉRIOS DE SAÍDA (FORMATO JSON OBRIGATÓRIO):
Você deve retornar um objeto JSON válido com a seguinte estrutura:
{
  "summary": "Resumo executivo de alto nível (2-3 frases).",
  "occurrences": ["Fato 1", "Fato 2..."],
  "problems": ["Problema 1", "Problema 2..."],
  "orders": ["Pedido 1", "Pedido 2..."],
  "actions": ["Ação 1", "Ação 2..."],
  "engagement": "Clima: Positivo/Neutro/Tenso + Justificativa.",
  "fullText": "Texto formatado com emojis para envio no WhatsApp (Ex: 📊 *Resumo*, ⚠️ *Problemas*)."
}`

const builtinInstructionsTemplate = `Agente de Resumos para Grupo de WhatsApp: %s
CONTEXTO:
- O título do relatório deve ser SEMPRE: RESUMO EXECUTIVO - %s
- Você receberá mensagens de texto e localizações (Latitude, Longitude).
- IMPORTANTE: Sempre que encontrar uma localização (ex: "📍 Localização: -30.0..., -51.0..."), você DEVE converter essas coordenadas para o endereço aproximado (Rua, Bairro, Cidade) ou nome do local conhecido no texto do relatório. Use seu conhecimento geográfico para isso.`

const metadataTemplate = `[METADADOS OBRIGATÓRIOS DO RELATÓRIO]
NOME DO GRUPO: %[1]s
DATA DE REFERÊNCIA: %[2]s

[INSTRUÇÃO DO USUÁRIO]
%[3]s

[REGRAS PRIORITÁRIAS DE FORMATAÇÃO]
1. O Título do Relatório DEVE obrigatoriamente conter o nome do grupo: "%[1]s".
2. Se houver conflito entre a instrução e os metadados, os metadados ("%[1]s") prevalecem.`

// resolveTemplate picks the instruction template for a group:
// group prompt, then the settings default prompt, then the legacy settings
// system prompt. The legacy prompt only applies when no default is linked.
// An empty result means the built-in instructions apply.
func resolveTemplate(ctx context.Context, prompts PromptStore, settings *models.Settings, group *models.Group) (string, error) {
	if group.Prompt != nil && strings.TrimSpace(group.Prompt.Content) != "" {
		return group.Prompt.Content, nil
	}

	if settings.DefaultPromptID != nil && *settings.DefaultPromptID != "" {
		prompt, err := prompts.GetPrompt(ctx, *settings.DefaultPromptID)
		if err != nil {
			return "", fmt.Errorf("failed to load default prompt: %w", err)
		}
		if prompt != nil {
			return prompt.Content, nil
		}
		return "", nil
	}

	if settings.SystemPrompt != nil && strings.TrimSpace(*settings.SystemPrompt) != "" {
		return *settings.SystemPrompt, nil
	}

	return "", nil
}

// substitutePlaceholders fills {GROUP_NAME}, ${GROUP_NAME}, {DATE} and ${DATE}
func substitutePlaceholders(template, groupName, dateRef string) string {
	r := strings.NewReplacer(
		"${GROUP_NAME}", groupName,
		"{GROUP_NAME}", groupName,
		"${DATE}", dateRef,
		"{DATE}", dateRef,
	)
	return r.Replace(template)
}

// buildInstructions wraps a resolved template in the metadata preamble,
// or returns the built-in instructions when there is no template
func buildInstructions(template, groupName, dateRef string) string {
	if template == "" {
		return fmt.Sprintf(builtinInstructionsTemplate, groupName, strings.ToUpper(groupName))
	}

	return fmt.Sprintf(metadataTemplate, groupName, dateRef, substitutePlaceholders(template, groupName, dateRef))
}
