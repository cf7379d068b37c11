package domain

import "time"

// EmailTemplate is the content referenced by email and linkedin steps.
// Subject and bodies use Liquid syntax, e.g. {{ firstName }}.
type EmailTemplate struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Subject   string    `json:"subject" db:"subject"`
	BodyHTML  string    `json:"body_html" db:"body_html"`
	BodyText  string    `json:"body_text" db:"body_text"`
	Category  string    `json:"category" db:"category"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TemplateVariables lists the variables contacts expose to templates.
var TemplateVariables = []string{
	"firstName", "lastName", "fullName", "email", "company", "jobTitle", "industry",
}
