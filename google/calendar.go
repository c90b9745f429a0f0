// ABOUTME: Google Calendar operations and the incremental event feed
// ABOUTME: Handles pagination, sync tokens, and the 410 fallback to a time window
package google

import (
	"context"
	"errors"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/harperreed/deskhand/models"
)

const (
	maxEventsPerPage = 250 // Google Calendar API max per page
	eventSyncWindow  = 30 * 24 * time.Hour
	defaultLookahead = 7 * 24 * time.Hour
)

// GetCalendarEvents lists events in a window, defaulting to the next seven days.
func (p *Provider) GetCalendarEvents(ctx context.Context, q models.EventQuery) ([]models.Event, error) {
	s, err := p.services(ctx)
	if err != nil {
		return nil, p.fail("getCalendarEvents", err)
	}

	timeMin := p.now()
	if q.TimeMin != nil {
		timeMin = *q.TimeMin
	}
	timeMax := timeMin.Add(defaultLookahead)
	if q.TimeMax != nil {
		timeMax = *q.TimeMax
	}
	limit := int64(25)
	if q.MaxResults > 0 {
		limit = int64(q.MaxResults)
	}

	call := s.calendar.Events.List(p.calendarID).
		Context(ctx).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		MaxResults(limit)
	if q.Query != "" {
		call = call.Q(q.Query)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, p.fail("getCalendarEvents", err)
	}

	events := make([]models.Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Status == "cancelled" {
			continue
		}
		events = append(events, toEvent(item))
	}
	return events, nil
}

// CreateEvent inserts an event on the configured calendar.
func (p *Provider) CreateEvent(ctx context.Context, details models.EventDetails) (*models.Event, error) {
	s, err := p.services(ctx)
	if err != nil {
		return nil, p.fail("createEvent", err)
	}

	event := &calendar.Event{
		Summary:     details.Summary,
		Description: details.Description,
		Location:    details.Location,
		Start:       &calendar.EventDateTime{DateTime: details.Start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: details.End.Format(time.RFC3339)},
	}
	for _, email := range details.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}

	created, err := s.calendar.Events.Insert(p.calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, p.fail("createEvent", err)
	}

	out := toEvent(created)
	return &out, nil
}

// UpdateEvent patches only the fields set on update.
func (p *Provider) UpdateEvent(ctx context.Context, update models.EventUpdate) (*models.Event, error) {
	s, err := p.services(ctx)
	if err != nil {
		return nil, p.fail("updateEvent", err)
	}

	patch := &calendar.Event{}
	if update.Summary != nil {
		patch.Summary = *update.Summary
	}
	if update.Description != nil {
		patch.Description = *update.Description
		patch.ForceSendFields = append(patch.ForceSendFields, "Description")
	}
	if update.Location != nil {
		patch.Location = *update.Location
		patch.ForceSendFields = append(patch.ForceSendFields, "Location")
	}
	if update.Start != nil {
		patch.Start = &calendar.EventDateTime{DateTime: update.Start.Format(time.RFC3339)}
	}
	if update.End != nil {
		patch.End = &calendar.EventDateTime{DateTime: update.End.Format(time.RFC3339)}
	}

	updated, err := s.calendar.Events.Patch(p.calendarID, update.ID, patch).Context(ctx).Do()
	if err != nil {
		return nil, p.fail("updateEvent", err)
	}

	out := toEvent(updated)
	return &out, nil
}

// DeleteEvent removes an event.
func (p *Provider) DeleteEvent(ctx context.Context, id string) error {
	s, err := p.services(ctx)
	if err != nil {
		return p.fail("deleteEvent", err)
	}
	if err := s.calendar.Events.Delete(p.calendarID, id).Context(ctx).Do(); err != nil {
		return p.fail("deleteEvent", err)
	}
	return nil
}

// ListChangedEvents returns events changed since cursor (a Google sync token)
// and the next cursor. Without a cursor, or when Google rejects it as expired,
// it falls back to the last thirty days.
func (p *Provider) ListChangedEvents(ctx context.Context, cursor string) ([]models.Event, string, error) {
	s, err := p.services(ctx)
	if err != nil {
		return nil, "", p.fail("listChangedEvents", err)
	}

	events, next, err := p.pageEvents(ctx, s, cursor)
	if err != nil && cursor != "" && isGone(err) {
		// Sync token invalid, fall back to time-based sync
		events, next, err = p.pageEvents(ctx, s, "")
	}
	if err != nil {
		return nil, "", p.fail("listChangedEvents", err)
	}
	return events, next, nil
}

func (p *Provider) pageEvents(ctx context.Context, s *services, cursor string) ([]models.Event, string, error) {
	var events []models.Event
	pageToken := ""

	for {
		call := s.calendar.Events.List(p.calendarID).
			Context(ctx).
			SingleEvents(true).
			MaxResults(maxEventsPerPage)
		if cursor != "" {
			call = call.SyncToken(cursor)
		} else {
			call = call.TimeMin(p.now().Add(-eventSyncWindow).Format(time.RFC3339))
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, "", err
		}

		for _, item := range resp.Items {
			events = append(events, toEvent(item))
		}

		// Check for next page
		pageToken = resp.NextPageToken
		if pageToken == "" {
			return events, resp.NextSyncToken, nil
		}
	}
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusGone
}

func toEvent(e *calendar.Event) models.Event {
	out := models.Event{
		ID:          e.Id,
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
		Status:      e.Status,
		HTMLLink:    e.HtmlLink,
	}
	if e.Start != nil {
		out.Start, out.AllDay = parseEventTime(e.Start)
	}
	if e.End != nil {
		out.End, _ = parseEventTime(e.End)
	}
	for _, a := range e.Attendees {
		if a.Email != "" {
			out.Attendees = append(out.Attendees, a.Email)
		}
	}
	if e.Updated != "" {
		if t, err := time.Parse(time.RFC3339, e.Updated); err == nil {
			out.Updated = &t
		}
	}
	return out
}

// parseEventTime reads a timed or all-day boundary.
func parseEventTime(dt *calendar.EventDateTime) (time.Time, bool) {
	if dt.DateTime != "" {
		t, _ := time.Parse(time.RFC3339, dt.DateTime)
		return t, false
	}
	if dt.Date != "" {
		t, _ := time.Parse("2006-01-02", dt.Date)
		return t, true
	}
	return time.Time{}, false
}
