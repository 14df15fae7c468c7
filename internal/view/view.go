// Package view composes grouped occurrences into the schedule page: a
// navigation rail with one entry per day and one section per day.
package view

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"dayschedule/internal/civil"
	"dayschedule/internal/model"
	"dayschedule/internal/schedule"
)

// ItemRenderer turns one prepared occurrence into displayable markup.
type ItemRenderer interface {
	RenderItem(occ model.Occurrence) (template.HTML, error)
}

// RendererFunc adapts a function to ItemRenderer.
type RendererFunc func(occ model.Occurrence) (template.HTML, error)

func (f RendererFunc) RenderItem(occ model.Occurrence) (template.HTML, error) {
	return f(occ)
}

// NavItem is one entry of the day navigation rail.
type NavItem struct {
	Key     string
	Anchor  string
	Day     string // "20"
	Weekday string // "Thu"
	Today   bool
}

// Item is one occurrence inside a day section.
type Item struct {
	// Key is "<eventName>-<position within the day>".
	Key        string
	Occurrence model.Occurrence

	// Rollover marks occurrences ending before 06:00; EffectiveDate is the
	// date they are displayed next to. Neither affects grouping.
	Rollover      bool
	EffectiveDate string

	Body template.HTML
}

// Section is the block of one day.
type Section struct {
	Key     string
	Anchor  string
	Heading string // "Thursday, June 20"
	Today   bool
	Items   []Item
}

// Page is everything the templates need for one render pass.
type Page struct {
	Now      time.Time
	Zone     string
	Nav      []NavItem
	Sections []Section
}

// Compose builds the page for groups as seen at now. A nil renderer uses
// DefaultRenderer.
func Compose(groups []schedule.DayGroup, now time.Time, zone civil.Zone, r ItemRenderer) (Page, error) {
	if r == nil {
		r = DefaultRenderer
	}
	page := Page{
		Now:      now.In(zone.Location()),
		Zone:     zone.String(),
		Nav:      make([]NavItem, 0, len(groups)),
		Sections: make([]Section, 0, len(groups)),
	}

	for _, g := range groups {
		day, err := zone.ParseDate(g.Key)
		if err != nil {
			return Page{}, fmt.Errorf("view: group %q: %w", g.Key, err)
		}
		today := schedule.IsToday(zone, now, day)

		page.Nav = append(page.Nav, NavItem{
			Key:     g.Key,
			Anchor:  g.Anchor(),
			Day:     zone.DayNumber(day),
			Weekday: zone.WeekdayShort(day),
			Today:   today,
		})

		sec := Section{
			Key:     g.Key,
			Anchor:  g.Anchor(),
			Heading: zone.Heading(day),
			Today:   today,
			Items:   make([]Item, 0, len(g.Occurrences)),
		}
		for i, occ := range g.Occurrences {
			eff, err := schedule.EffectiveDate(occ, zone)
			if err != nil {
				return Page{}, fmt.Errorf("view: occurrence %q: %w", occ.EventName, err)
			}
			body, err := r.RenderItem(occ)
			if err != nil {
				return Page{}, fmt.Errorf("view: render %q: %w", occ.EventName, err)
			}
			sec.Items = append(sec.Items, Item{
				Key:           occ.EventName + "-" + strconv.Itoa(i),
				Occurrence:    occ,
				Rollover:      schedule.Rollover(occ),
				EffectiveDate: zone.DateKey(eff),
				Body:          body,
			})
		}
		page.Sections = append(page.Sections, sec)
	}
	return page, nil
}

var itemTmpl = template.Must(template.New("item").Parse(
	`<article class="event">` +
		`<span class="time">{{.StartTime}}{{if .EndTime}}&ndash;{{.EndTime}}{{end}}</span>` +
		`<h3>{{if .URL}}<a href="{{.URL}}">{{.EventName}}</a>{{else}}{{.EventName}}{{end}}</h3>` +
		`{{if gt .TotalDays 1}}<span class="day">Day {{.DayIndex}}/{{.TotalDays}}</span>{{end}}` +
		`{{if .Location}}<span class="location">{{.Location}}</span>{{end}}` +
		`{{if .Description}}<p>{{.Description}}</p>{{end}}` +
		`</article>`))

// DefaultRenderer renders an occurrence as a small HTML card.
var DefaultRenderer ItemRenderer = RendererFunc(func(occ model.Occurrence) (template.HTML, error) {
	var buf bytes.Buffer
	if err := itemTmpl.Execute(&buf, occ); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
})
