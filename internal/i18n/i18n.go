// Package i18n maps message keys and timestamps to display text for the
// dashboard's two locales, Brazilian Portuguese (default) and US English.
package i18n

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Supported locales.
const (
	PtBR = "pt-BR"
	EnUS = "en-US"

	Default = PtBR
)

var supported = []string{PtBR, EnUS}

var matcher = language.NewMatcher([]language.Tag{
	language.BrazilianPortuguese,
	language.AmericanEnglish,
})

var translations = map[string]map[string]string{
	PtBR: {
		"noProblems":            "Nenhum problema encontrado",
		"noProblemsAssigned":    "Nenhum problema atribuído a você",
		"errorLoading":          "Erro ao carregar problemas",
		"errorReports":          "Erro ao carregar relatórios",
		"statusUpdated":         "Status atualizado!",
		"problemUpdated":        "Problema atualizado com sucesso!",
		"errorUpdate":           "Erro ao atualizar: ",
		"notificationsActive":   "Notificações ativas",
		"notificationsDisabled": "Notificações desativadas",
		"newProblem":            "Novo Problema",
		"accessDenied":          "Acesso negado: Apenas responsáveis podem acessar este painel.",
		"conflict":              "O problema foi alterado por outra pessoa. Recarregue e tente novamente.",

		"field.description":  "Descrição",
		"field.municipality": "Município",
		"field.neighborhood": "Bairro",
		"field.category":     "Categoria",
		"field.urgency":      "Urgência",
		"field.responsible":  "Responsável",
		"field.status":       "Status",
		"field.suggestion":   "Sugestão",
		"field.createdAt":    "Criado em",
		"field.image":        "Imagem do problema",

		"empty.title":         "Sem título",
		"empty.description":   "Sem descrição",
		"empty.municipality":  "Sem município",
		"empty.neighborhood":  "Sem bairro",
		"empty.category":      "Sem categoria",
		"empty.urgency":       "Sem urgência",
		"empty.status":        "Sem status",
		"empty.suggestion":    "Sem sugestão",
		"empty.image":         "Sem imagem",
		"empty.date":          "Sem data",
		"empty.responsible":   "Sem responsável",
		"missing.responsible": "Responsável não encontrado",

		"status.Pending":    "Aguardando",
		"status.InProgress": "Em Andamento",
		"status.Resolved":   "Resolvido",
		"urgency.Low":       "Baixa",
		"urgency.Medium":    "Média",
		"urgency.High":      "Alta",

		"page.prev": "Anterior",
		"page.next": "Próximo",

		"filters.clear": "Limpar filtros",

		"relay.message": `Seu problema "%s" (ID: %s) foi atualizado para: %s`,
		"relay.sent":    "Notificação enviada com sucesso",
	},
	EnUS: {
		"noProblems":            "No problems found",
		"noProblemsAssigned":    "No problems assigned to you",
		"errorLoading":          "Error loading problems",
		"errorReports":          "Error loading reports",
		"statusUpdated":         "Status updated!",
		"problemUpdated":        "Problem updated successfully!",
		"errorUpdate":           "Error updating: ",
		"notificationsActive":   "Notifications active",
		"notificationsDisabled": "Notifications disabled",
		"newProblem":            "New Problem",
		"accessDenied":          "Access denied: only responsibles can access this dashboard.",
		"conflict":              "The problem was changed by someone else. Reload and try again.",

		"field.description":  "Description",
		"field.municipality": "Municipality",
		"field.neighborhood": "Neighborhood",
		"field.category":     "Category",
		"field.urgency":      "Urgency",
		"field.responsible":  "Responsible",
		"field.status":       "Status",
		"field.suggestion":   "Suggestion",
		"field.createdAt":    "Created at",
		"field.image":        "Problem image",

		"empty.title":         "Untitled",
		"empty.description":   "No description",
		"empty.municipality":  "No municipality",
		"empty.neighborhood":  "No neighborhood",
		"empty.category":      "No category",
		"empty.urgency":       "No urgency",
		"empty.status":        "No status",
		"empty.suggestion":    "No suggestion",
		"empty.image":         "No image",
		"empty.date":          "No date",
		"empty.responsible":   "No responsible",
		"missing.responsible": "Responsible not found",

		"status.Pending":    "Pending",
		"status.InProgress": "In Progress",
		"status.Resolved":   "Resolved",
		"urgency.Low":       "Low",
		"urgency.Medium":    "Medium",
		"urgency.High":      "High",

		"page.prev": "Previous",
		"page.next": "Next",

		"filters.clear": "Clear filters",

		"relay.message": `Your problem "%s" (ID: %s) was updated to: %s`,
		"relay.sent":    "Notification sent successfully",
	},
}

// Translate returns the text for key in locale. Unknown locales and keys
// missing from a table fall back to the default locale. Unknown keys come back unchanged.
func Translate(locale, key string) string {
	table, ok := translations[locale]
	if !ok {
		table = translations[Default]
	}
	if s, ok := table[key]; ok {
		return s
	}
	if s, ok := translations[Default][key]; ok {
		return s
	}
	return key
}

// Sprintf translates key and uses the result as a format string.
func Sprintf(locale, key string, args ...any) string {
	return fmt.Sprintf(Translate(locale, key), args...)
}

// Negotiate picks a supported locale from an Accept-Language header or a
// plain language value such as "en" or "pt-BR".
func Negotiate(values ...string) string {
	var nonEmpty []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			nonEmpty = append(nonEmpty, v)
		}
	}
	if len(nonEmpty) == 0 {
		return Default
	}
	_, idx := language.MatchStrings(matcher, nonEmpty...)
	if idx < 0 || idx >= len(supported) {
		return Default
	}
	return supported[idx]
}

var monthsPt = [...]string{"jan.", "fev.", "mar.", "abr.", "mai.", "jun.", "jul.", "ago.", "set.", "out.", "nov.", "dez."}

// FormatDate renders an epoch-millisecond timestamp with a medium date and a
// short time in the given locale. Zero renders as the localized "no date".
func FormatDate(locale string, ms int64, loc *time.Location) string {
	if ms == 0 {
		return Translate(locale, "empty.date")
	}
	if loc == nil {
		loc = time.UTC
	}
	t := time.UnixMilli(ms).In(loc)

	switch locale {
	case EnUS:
		return t.Format("Jan 2, 2006, 3:04 PM")
	default:
		return fmt.Sprintf("%d de %s de %d %s", t.Day(), monthsPt[t.Month()-1], t.Year(), t.Format("15:04"))
	}
}
