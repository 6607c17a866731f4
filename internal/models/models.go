// Package models defines the data structures used across the application.
// These map to the PostgreSQL schema in internal/database/migrations.
package models

import "time"

// Problem is a citizen-submitted issue assigned to a single responsible.
// CreatedAt is epoch milliseconds; zero means the submission carried no date.
type Problem struct {
	ID            string  `json:"id" db:"id"`
	Title         string  `json:"title" db:"title"`
	Description   string  `json:"description" db:"description"`
	Municipality  string  `json:"municipality" db:"municipality"`
	Neighborhood  string  `json:"neighborhood" db:"neighborhood"`
	Category      string  `json:"category" db:"category"`
	Urgency       Urgency `json:"urgency" db:"urgency"`
	Status        Status  `json:"status" db:"status"`
	Suggestion    string  `json:"suggestion" db:"suggestion"`
	ImageURL      string  `json:"imageUrl" db:"image_url"`
	CreatedAt     int64   `json:"createdAt" db:"created_at"`
	ResponsibleID string  `json:"responsibleId" db:"responsible_id"`
	Version       int64   `json:"version" db:"version"`
}

// ProblemPatch is the request body for a full-field edit. Nil fields are left untouched.
type ProblemPatch struct {
	Title        *string  `json:"title,omitempty"`
	Description  *string  `json:"description,omitempty"`
	Municipality *string  `json:"municipality,omitempty"`
	Neighborhood *string  `json:"neighborhood,omitempty"`
	Category     *string  `json:"category,omitempty"`
	Urgency      *Urgency `json:"urgency,omitempty"`
	Status       *Status  `json:"status,omitempty"`
	Suggestion   *string  `json:"suggestion,omitempty"`
	ImageURL     *string  `json:"imageUrl,omitempty"`
}

// Empty reports whether the patch carries no field at all.
func (p ProblemPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Municipality == nil &&
		p.Neighborhood == nil && p.Category == nil && p.Urgency == nil &&
		p.Status == nil && p.Suggestion == nil && p.ImageURL == nil
}

// StatusUpdate is the request body for PATCH /problems/{id}/status
type StatusUpdate struct {
	Status string `json:"status"`
}

// Responsible is a municipal user profile stored in "usuarios".
type Responsible struct {
	ID            string `json:"id" db:"id"`
	Name          string `json:"nome" db:"nome"`
	Email         string `json:"email" db:"email"`
	EmailOrPhone  string `json:"emailOrPhone" db:"email_or_phone"`
	IsResponsible bool   `json:"isResponsible" db:"is_responsible"`
	Municipality  string `json:"municipality" db:"municipality"`
	CreatedAt     int64  `json:"data_criacao" db:"data_criacao"`
}

// Identity is what an authentication provider tells us about a signed-in user.
type Identity struct {
	UID   string
	Email string
	Name  string
}

// ReportEntry is a row of the historical report source ("relatorios_problemas").
type ReportEntry struct {
	ProblemID     string  `json:"problemId" db:"problem_id"`
	Category      string  `json:"category" db:"category"`
	Status        Status  `json:"status" db:"status"`
	Urgency       Urgency `json:"urgency" db:"urgency"`
	ResponsibleID string  `json:"responsibleId" db:"responsible_id"`
	CreatedAt     int64   `json:"createdAt" db:"created_at"`
}

// ReportAggregate holds chart counts for one viewer and time window.
// ByStatus and ByUrgency always carry every enum key, zero or not.
type ReportAggregate struct {
	ByStatus      map[Status]int             `json:"byStatus"`
	ByUrgency     map[Urgency]int            `json:"byUrgency"`
	ByCategory    []CategoryDistribution     `json:"byCategory"`
	StatusUrgency map[Status]map[Urgency]int `json:"statusByUrgency"`
	Total         int                        `json:"total"`
	WindowDays    int                        `json:"windowDays"`
	WindowStart   int64                      `json:"windowStart"`
	GeneratedAt   time.Time                  `json:"generatedAt"`
}

// CategoryDistribution for pie/bar charts
type CategoryDistribution struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Toast is a transient message shown to a viewer.
type Toast struct {
	Level     string    `json:"level"` // "success" | "warning" | "danger" | "info"
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PushStatus is the visible state of browser push notifications.
type PushStatus struct {
	State   string `json:"state"` // "active" | "disabled"
	Label   string `json:"label"`
	Token   string `json:"token,omitempty"`
	Attempt int    `json:"attempts"`
}

// RelayRequest is the body accepted by the WhatsApp notification relay.
type RelayRequest struct {
	PhoneNumber  string `json:"phoneNumber"`
	ProblemID    string `json:"problemId"`
	ProblemTitle string `json:"problemTitle"`
	NewStatus    string `json:"newStatus"`
	Language     string `json:"language,omitempty"`
}

// HealthStatus represents the server health check response
type HealthStatus struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Database string `json:"database,omitempty"`
	Redis    string `json:"redis,omitempty"`
}
