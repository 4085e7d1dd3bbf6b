// internal/service/template_service.go
package service

import (
	"sort"
	"strings"

	"github.com/unclebandit/dcrm-backend/internal/model"
)

// RenderTemplate substitutes every {key} in one pass. Substituted values are
// never rescanned, so lead data containing braces is inserted verbatim.
func RenderTemplate(template string, data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", data[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// ComposeMessage joins the non-empty message parts with blank lines.
func ComposeMessage(m *model.Message) string {
	parts := []string{}
	for _, p := range []string{m.Intro, m.Content, m.CTA, m.PS, m.PPS} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n")
}

// LeadPlaceholders maps template placeholders to lead fields. Name
// placeholders fall back to "there" so greetings still read; {company} is the
// older spelling of {company_name} and falls back to "your company".
func LeadPlaceholders(l *model.Lead) map[string]string {
	firstName := l.FirstName
	if firstName == "" {
		firstName = "there"
	}
	fullName := l.FullName
	if fullName == "" {
		fullName = firstName
	}
	company := l.CompanyName
	if company == "" {
		company = "your company"
	}
	return map[string]string{
		"first_name":   firstName,
		"last_name":    l.LastName,
		"full_name":    fullName,
		"position":     l.Position,
		"company_name": l.CompanyName,
		"company":      company,
	}
}
