// internal/model/lead.go
package model

import "time"

type LeadType string

const (
	LeadTypeCold     LeadType = "cold"
	LeadTypeWarm     LeadType = "warm"
	LeadTypeHot      LeadType = "hot"
	LeadTypeCustomer LeadType = "customer"
)

type LeadSource string

const (
	LeadSourceLinkedIn   LeadSource = "linkedin_scrape"
	LeadSourceSocial     LeadSource = "social"
	LeadSourceNewsletter LeadSource = "newsletter"
	LeadSourceForm       LeadSource = "form"
)

// Choice is a value/label pair offered to the admin form.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var LeadTypeChoices = []Choice{
	{Value: string(LeadTypeCold), Label: "Cold"},
	{Value: string(LeadTypeWarm), Label: "Warm"},
	{Value: string(LeadTypeHot), Label: "Hot"},
	{Value: string(LeadTypeCustomer), Label: "Customer"},
}

var LeadSourceChoices = []Choice{
	{Value: string(LeadSourceLinkedIn), Label: "LinkedIn Scrape"},
	{Value: string(LeadSourceSocial), Label: "Social Media"},
	{Value: string(LeadSourceNewsletter), Label: "Newsletter Opt-in"},
	{Value: string(LeadSourceForm), Label: "Free Consultation Form"},
}

func (t LeadType) Valid() bool {
	return hasChoice(LeadTypeChoices, string(t))
}

func (s LeadSource) Valid() bool {
	return hasChoice(LeadSourceChoices, string(s))
}

func hasChoice(choices []Choice, v string) bool {
	for _, c := range choices {
		if c.Value == v {
			return true
		}
	}
	return false
}

type Lead struct {
	ID          int        `db:"id" json:"id"`
	FullName    string     `db:"full_name" json:"full_name"`
	FirstName   string     `db:"first_name" json:"first_name"`
	LastName    string     `db:"last_name" json:"last_name"`
	Position    string     `db:"position" json:"position"`
	Email       string     `db:"email" json:"email"`
	CompanyName string     `db:"company_name" json:"company_name"`
	Type        LeadType   `db:"lead_type" json:"lead_type"`
	Source      LeadSource `db:"source" json:"source"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

func (l *Lead) DisplayText() string {
	return l.FullName + " - " + string(l.Type) + " - " + string(l.Source)
}
