package dashboard

import (
	"embed"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/emanueledman/fixa-admin/internal/i18n"
	"github.com/emanueledman/fixa-admin/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var listTemplate = template.Must(template.ParseFS(templateFS, "templates/list.html"))

// Option is one entry of the per-card status selector.
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// Card is the display projection of one problem.
type Card struct {
	ID           string   `json:"id"`
	Version      int64    `json:"version"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Municipality string   `json:"municipality"`
	Neighborhood string   `json:"neighborhood"`
	Category     string   `json:"category"`
	Urgency      string   `json:"urgency"`
	UrgencyClass string   `json:"urgencyClass"`
	Responsible  string   `json:"responsible"`
	Status       string   `json:"status"`
	Suggestion   string   `json:"suggestion"`
	CreatedAt    string   `json:"createdAt"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	StatusURL    string   `json:"statusUrl"`
	EditURL      string   `json:"editUrl"`
	Options      []Option `json:"statusOptions"`
}

// PageLink is a numbered pagination link.
type PageLink struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

// NavLink is the Prev or Next control.
type NavLink struct {
	Label    string `json:"label"`
	URL      string `json:"url,omitempty"`
	Disabled bool   `json:"disabled"`
}

// Pagination is the control rendered under the cards.
type Pagination struct {
	Links []PageLink `json:"links"`
	Prev  NavLink    `json:"prev"`
	Next  NavLink    `json:"next"`
}

// ListView is everything the problems page needs to draw itself.
type ListView struct {
	Cards        []Card      `json:"cards"`
	Pagination   *Pagination `json:"pagination,omitempty"`
	EmptyMessage string      `json:"emptyMessage,omitempty"`
	State        State       `json:"state"`
	Total        int         `json:"total"`
	Pages        int         `json:"pages"`
	// ClearFilters is disabled while no filter is active.
	ClearFilters NavLink `json:"clearFilters"`
}

// Renderer turns pages into ListViews for one locale.
type Renderer struct {
	Locale          string
	Location        *time.Location
	ResponsibleName string
	// BasePath is the list URL that pagination links point at.
	BasePath string
	// ActionPath is the prefix of per-problem mutation URLs.
	ActionPath string
}

// Build projects page into a ListView. assigned is the number of records the
// viewer owns before filtering; it selects which empty message is shown.
func (r Renderer) Build(page Page, state State, assigned int) ListView {
	lv := ListView{
		Cards: make([]Card, 0, len(page.Items)),
		State: state,
		Total: page.Total,
		Pages: page.Pages,
	}
	lv.State.Page = page.Number
	lv.ClearFilters = NavLink{Label: i18n.Translate(r.Locale, "filters.clear"), Disabled: state.Filter.IsZero()}
	if !lv.ClearFilters.Disabled {
		lv.ClearFilters.URL = r.BasePath + "?action=clear"
	}

	if page.Empty() {
		key := "noProblems"
		if assigned == 0 {
			key = "noProblemsAssigned"
		}
		lv.EmptyMessage = i18n.Translate(r.Locale, key)
		return lv
	}

	for _, p := range page.Items {
		lv.Cards = append(lv.Cards, r.card(p))
	}
	lv.Pagination = r.pagination(page, lv.State)
	return lv
}

func (r Renderer) card(p models.Problem) Card {
	status := p.Status.Normalize()
	urgency := p.Urgency.Normalize()

	c := Card{
		ID:           p.ID,
		Version:      p.Version,
		Title:        r.orEmpty(p.Title, "empty.title"),
		Description:  r.orEmpty(p.Description, "empty.description"),
		Municipality: r.orEmpty(p.Municipality, "empty.municipality"),
		Neighborhood: r.orEmpty(p.Neighborhood, "empty.neighborhood"),
		Category:     r.orEmpty(p.Category, "empty.category"),
		Urgency:      r.label("urgency.", string(urgency), "empty.urgency"),
		UrgencyClass: urgencyClass(urgency),
		Responsible:  r.orEmpty(r.ResponsibleName, "empty.responsible"),
		Status:       r.label("status.", string(status), "empty.status"),
		Suggestion:   r.orEmpty(p.Suggestion, "empty.suggestion"),
		CreatedAt:    i18n.FormatDate(r.Locale, p.CreatedAt, r.Location),
		ImageURL:     p.ImageURL,
		StatusURL:    r.ActionPath + "/" + url.PathEscape(p.ID) + "/status",
		EditURL:      r.ActionPath + "/" + url.PathEscape(p.ID),
	}
	for _, st := range models.Statuses {
		c.Options = append(c.Options, Option{
			Value:    string(st),
			Label:    i18n.Translate(r.Locale, "status."+string(st)),
			Selected: st == status,
		})
	}
	return c
}

func (r Renderer) pagination(page Page, state State) *Pagination {
	pg := &Pagination{
		Prev: NavLink{Label: i18n.Translate(r.Locale, "page.prev"), Disabled: page.Number <= 1},
		Next: NavLink{Label: i18n.Translate(r.Locale, "page.next"), Disabled: page.Number >= page.Pages},
	}
	for n := 1; n <= page.Pages; n++ {
		pg.Links = append(pg.Links, PageLink{Number: n, URL: r.pageURL(state, n), Active: n == page.Number})
	}
	if !pg.Prev.Disabled {
		pg.Prev.URL = r.pageURL(state, page.Number-1)
	}
	if !pg.Next.Disabled {
		pg.Next.URL = r.pageURL(state, page.Number+1)
	}
	return pg
}

func (r Renderer) pageURL(state State, n int) string {
	q := EncodeState(state)
	q.Set("page", strconv.Itoa(n))
	return r.BasePath + "?" + q.Encode()
}

func (r Renderer) orEmpty(v, key string) string {
	if v == "" {
		return i18n.Translate(r.Locale, key)
	}
	return v
}

func (r Renderer) label(prefix, v, emptyKey string) string {
	if v == "" {
		return i18n.Translate(r.Locale, emptyKey)
	}
	s := i18n.Translate(r.Locale, prefix+v)
	if s == prefix+v {
		// unknown value, show it raw
		return v
	}
	return s
}

func urgencyClass(u models.Urgency) string {
	switch u {
	case models.UrgencyHigh:
		return "text-red-500"
	case models.UrgencyMedium:
		return "text-yellow-500"
	default:
		return "text-green-500"
	}
}

// RenderHTML writes the list fragment.
func (r Renderer) RenderHTML(w io.Writer, lv ListView) error {
	return listTemplate.Execute(w, struct {
		ListView
		Labels map[string]string
	}{
		ListView: lv,
		Labels:   r.labels(),
	})
}

func (r Renderer) labels() map[string]string {
	keys := []string{
		"field.description", "field.municipality", "field.neighborhood", "field.category",
		"field.urgency", "field.responsible", "field.status", "field.suggestion",
		"field.createdAt", "field.image", "empty.image",
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = i18n.Translate(r.Locale, k)
	}
	return out
}

// EncodeState writes the filter part of a state as query parameters.
func EncodeState(s State) url.Values {
	q := url.Values{}
	if s.Filter.Search != "" {
		q.Set("search", s.Filter.Search)
	}
	if s.Filter.Status != "" {
		q.Set("status", string(s.Filter.Status))
	}
	if s.Filter.Urgency != "" {
		q.Set("urgency", string(s.Filter.Urgency))
	}
	if s.Page > 1 {
		q.Set("page", strconv.Itoa(s.Page))
	}
	return q
}

// DecodeState reads a state from query parameters. Unknown status or urgency
// values are kept verbatim so they match nothing rather than everything.
func DecodeState(q url.Values) State {
	s := NewState()
	s.Filter.Search = q.Get("search")
	if v := q.Get("status"); v != "" {
		if st, ok := models.ParseStatus(v); ok {
			s.Filter.Status = st
		} else {
			s.Filter.Status = models.Status(v)
		}
	}
	if v := q.Get("urgency"); v != "" {
		if u, ok := models.ParseUrgency(v); ok {
			s.Filter.Urgency = u
		} else {
			s.Filter.Urgency = models.Urgency(v)
		}
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		s.Page = n
	}
	return s
}
