package domain

import (
	"net/url"
	"strings"
	"time"
)

// linkedInSearchURL is the people-search endpoint used when no address verifies.
const linkedInSearchURL = "https://www.linkedin.com/search/results/people/"

// Lookup is a persisted record of one email discovery request. Status carries
// the verification provider's status for the returned address.
type Lookup struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Domain      string    `json:"domain"`
	CompanyName string    `json:"company_name,omitempty"`
	Email       string    `json:"email,omitempty"`
	Status      string    `json:"status"`
	Verified    bool      `json:"verified"`
	Pattern     string    `json:"pattern,omitempty"`
	Reason      Reason    `json:"reason,omitempty"`
	FallbackURL string    `json:"fallback_url,omitempty"`
	Cached      bool      `json:"cached"`
	CreatedAt   time.Time `json:"created_at"`
}

// LinkedInSearchURL builds a people-search URL for a person at a company.
// The company name is preferred; the domain is used when it is empty.
func LinkedInSearchURL(firstName, lastName, company, domain string) string {
	org := strings.TrimSpace(company)
	if org == "" {
		org = strings.TrimSpace(domain)
	}
	terms := strings.Join(strings.Fields(strings.Join([]string{firstName, lastName, org}, " ")), " ")
	return linkedInSearchURL + "?" + url.Values{"keywords": {terms}}.Encode()
}
