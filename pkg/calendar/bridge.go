// Package calendar mirrors shifts as events in the external calendar.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"shiftcalendar/pkg/models"
)

const (
	CalendarID      = "primary"
	DefaultEndpoint = "https://www.googleapis.com/calendar/v3/"
)

var (
	ErrNoToken      = errors.New("calendar: no access token")
	ErrUnauthorized = errors.New("calendar: access token rejected")
)

// TokenSource hands out the bearer token and is told when it stops working.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

type Options struct {
	Endpoint   string
	Location   *time.Location
	HTTPClient *http.Client
	Logger     *zap.Logger
}

type Bridge struct {
	tokens   TokenSource
	endpoint string
	loc      *time.Location
	base     *http.Client
	logger   *zap.Logger
}

func NewBridge(tokens TokenSource, opts Options) *Bridge {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Bridge{
		tokens:   tokens,
		endpoint: opts.Endpoint,
		loc:      opts.Location,
		base:     opts.HTTPClient,
		logger:   opts.Logger,
	}
}

func (b *Bridge) service(ctx context.Context) (*gcal.Service, error) {
	raw, err := b.tokens.Token(ctx)
	if err != nil || raw == "" {
		return nil, ErrNoToken
	}
	if b.base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, b.base)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: raw,
		TokenType:   "Bearer",
	}))
	return gcal.NewService(ctx, option.WithHTTPClient(client), option.WithEndpoint(b.endpoint))
}

// CreateEvent inserts the event for shift and returns its calendar id.
func (b *Bridge) CreateEvent(ctx context.Context, shift models.Shift, employee models.Employee) (string, error) {
	event, err := BuildEvent(shift, employee, b.loc)
	if err != nil {
		return "", err
	}
	srv, err := b.service(ctx)
	if err != nil {
		return "", err
	}

	call := srv.Events.Insert(CalendarID, event).Context(ctx)
	if notifies(shift, employee) {
		call = call.SendUpdates("all")
	}
	created, err := call.Do()
	if err != nil {
		return "", b.fail("create event", err, zap.String("shift", shift.ID), zap.String("employee", employee.ID))
	}
	b.logger.Debug("calendar event created", zap.String("shift", shift.ID), zap.String("event", created.Id))
	return created.Id, nil
}

// DeleteEvent removes an event and notifies its attendees.
func (b *Bridge) DeleteEvent(ctx context.Context, eventID string) error {
	srv, err := b.service(ctx)
	if err != nil {
		return err
	}
	if err := srv.Events.Delete(CalendarID, eventID).SendUpdates("all").Context(ctx).Do(); err != nil {
		return b.fail("delete event", err, zap.String("event", eventID))
	}
	b.logger.Debug("calendar event deleted", zap.String("event", eventID))
	return nil
}

func (b *Bridge) fail(op string, err error, fields ...zap.Field) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized {
		b.tokens.Invalidate()
		b.logger.Warn(op+": unauthorized", fields...)
		return ErrUnauthorized
	}
	b.logger.Error(op, append(fields, zap.Error(err))...)
	return fmt.Errorf("calendar %s: %w", op, err)
}

func notifies(shift models.Shift, employee models.Employee) bool {
	return shift.SendEmail && employee.Email != ""
}

// BuildEvent translates a shift of employee into a calendar event, reading
// the wall-clock fields in loc.
func BuildEvent(shift models.Shift, employee models.Employee, loc *time.Location) (*gcal.Event, error) {
	from, to, err := models.ShiftBounds(shift.Date, shift.StartTime, shift.EndTime, loc)
	if err != nil {
		return nil, err
	}

	title := shift.Title
	if title == "" {
		title = "Shift"
	}
	descTitle := shift.Title
	if descTitle == "" {
		descTitle = "Work shift"
	}

	// "Local" is not an IANA name; the offset in DateTime still pins the instant
	zone := loc.String()
	if loc == time.Local {
		zone = ""
	}

	event := &gcal.Event{
		Summary: fmt.Sprintf("%s — %s", employee.Name, title),
		Start: &gcal.EventDateTime{
			DateTime: from.Format(time.RFC3339),
			TimeZone: zone,
		},
		End: &gcal.EventDateTime{
			DateTime: to.Format(time.RFC3339),
			TimeZone: zone,
		},
		Description: fmt.Sprintf("Employee: %s\nEmail: %s\nShift: %s", employee.Name, employee.Email, descTitle),
		ColorId:     strconv.Itoa(models.ColorID(employee.Color)),
	}
	if notifies(shift, employee) {
		event.Attendees = []*gcal.EventAttendee{{
			Email:          employee.Email,
			DisplayName:    employee.Name,
			ResponseStatus: "needsAction",
		}}
	}
	return event, nil
}
