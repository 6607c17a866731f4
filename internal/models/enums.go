package models

import "strings"

// Status is the workflow state of a problem.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusResolved   Status = "Resolved"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusResolved}

// Urgency is the three-level severity of a problem.
type Urgency string

const (
	UrgencyLow    Urgency = "Low"
	UrgencyMedium Urgency = "Medium"
	UrgencyHigh   Urgency = "High"
)

// Urgencies lists every urgency in display order.
var Urgencies = []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh}

// Older clients wrote the Portuguese labels straight into the database.
var legacyStatus = map[string]Status{
	"aguardando":   StatusPending,
	"pendente":     StatusPending,
	"em andamento": StatusInProgress,
	"in progress":  StatusInProgress,
	"resolvido":    StatusResolved,
}

var legacyUrgency = map[string]Urgency{
	"baixa": UrgencyLow,
	"média": UrgencyMedium,
	"media": UrgencyMedium,
	"alta":  UrgencyHigh,
}

// ParseStatus maps a canonical or legacy status label to a Status.
func ParseStatus(s string) (Status, bool) {
	s = strings.TrimSpace(s)
	for _, st := range Statuses {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	st, ok := legacyStatus[strings.ToLower(s)]
	return st, ok
}

// ParseUrgency maps a canonical or legacy urgency label to an Urgency.
func ParseUrgency(s string) (Urgency, bool) {
	s = strings.TrimSpace(s)
	for _, u := range Urgencies {
		if strings.EqualFold(s, string(u)) {
			return u, true
		}
	}
	u, ok := legacyUrgency[strings.ToLower(s)]
	return u, ok
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := ParseStatus(string(s))
	return ok && s != ""
}

// Normalize returns the canonical form of s, or s unchanged when unknown.
func (s Status) Normalize() Status {
	if st, ok := ParseStatus(string(s)); ok {
		return st
	}
	return s
}

// Valid reports whether u is one of the known urgencies.
func (u Urgency) Valid() bool {
	_, ok := ParseUrgency(string(u))
	return ok && u != ""
}

// Normalize returns the canonical form of u, or u unchanged when unknown.
func (u Urgency) Normalize() Urgency {
	if v, ok := ParseUrgency(string(u)); ok {
		return v
	}
	return u
}
