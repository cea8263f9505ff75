package services

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/ramarlina/tally-cli/pkg/api"
	"github.com/ramarlina/tally-cli/pkg/client"
	"github.com/ramarlina/tally-cli/pkg/models"
)

// Users manages /api/users.
type Users struct {
	*client.Resource[models.User]
}

// UserFilter narrows a paged user search. Empty names are not sent.
type UserFilter struct {
	FirstName string
	LastName  string
	Active    *bool
	Page      *int
	Size      *int
	Sort      string
	Direction string
}

// Search runs a paged search by name and status.
func (u *Users) Search(ctx context.Context, f UserFilter) (*api.Page[models.User], error) {
	return u.ListPaged(ctx, client.PagedQuery{
		Page:      f.Page,
		Size:      f.Size,
		Sort:      f.Sort,
		Direction: f.Direction,
		Active:    f.Active,
		Filters: map[string]any{
			"firstName": f.FirstName,
			"lastName":  f.LastName,
		},
	})
}

// TimeReports manages /api/timereport.
type TimeReports struct {
	*client.Resource[models.TimeReport]
}

// SendReminder asks the server to remind users with missing time entries.
func (t *TimeReports) SendReminder(ctx context.Context) error {
	return t.Action(ctx, "reminder", nil)
}

// TimeReportStatus manages /api/timereportstatus.
type TimeReportStatus struct {
	*client.Resource[models.TimeReportStatus]
}

// Close closes userID's time report up to closeDate (YYYY-MM-DD).
func (s *TimeReportStatus) Close(ctx context.Context, userID, closeDate string) error {
	return s.Post(ctx, "close", api.StatusChange{UserID: api.EntityID(userID), CloseDate: closeDate}, nil)
}

// Open reopens userID's time report from closeDate.
func (s *TimeReportStatus) Open(ctx context.Context, userID, closeDate string) error {
	return s.Post(ctx, "open", api.StatusChange{UserID: api.EntityID(userID), CloseDate: closeDate}, nil)
}

// FollowUps manages /api/followup.
type FollowUps struct {
	*client.Resource[models.FollowUp]
}

// DispatchEmails mails the follow-up report to every user.
func (f *FollowUps) DispatchEmails(ctx context.Context) error {
	return f.Action(ctx, "dispatch", nil)
}

// System manages /api/system.
type System struct {
	*client.Resource[models.SystemProperty]
}

// Vote registers the caller's vote, e.g. for a feature poll.
func (s *System) Vote(ctx context.Context) error {
	return s.Action(ctx, "vote", nil)
}

// Truncate clears test data on non-production backends.
func (s *System) Truncate(ctx context.Context) error {
	return s.Action(ctx, "truncate", nil)
}

// SpecialDays manages /api/specialday.
type SpecialDays struct {
	*client.Resource[models.SpecialDay]
}

// UploadFile imports special days from a file.
func (s *SpecialDays) UploadFile(ctx context.Context, name string, r io.Reader) error {
	return s.Upload(ctx, name, r, nil)
}

// Session reads and establishes the login session.
type Session struct {
	c *client.Client
}

// Current returns the logged in user.
func (s *Session) Current(ctx context.Context) (*models.Session, error) {
	var out models.Session
	if err := s.c.Get(ctx, PathSession, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login posts form credentials to the login endpoint. The server answers
// with a session cookie that the client's cookie jar keeps.
func (s *Session) Login(ctx context.Context, username, password string) error {
	form := url.Values{
		"username": {username},
		"password": {password},
	}
	return s.c.SendForm(ctx, "/login", form, nil)
}

// Logout ends the server session.
func (s *Session) Logout(ctx context.Context) error {
	return s.c.Send(ctx, http.MethodPost, "/logout", nil, nil)
}

// Set holds a client for every collection.
type Set struct {
	client *client.Client

	Users            *Users
	Companies        *client.Resource[models.Company]
	Projects         *client.Resource[models.Project]
	Assignments      *client.Resource[models.Assignment]
	Rates            *client.Resource[models.Rate]
	FixRates         *client.Resource[models.FixRate]
	TaskContributors *client.Resource[models.TaskContributor]
	Tasks            *client.Resource[models.Task]
	Activities       *client.Resource[models.Activity]
	OnCall           *client.Resource[models.OnCall]
	OnCallAlarms     *client.Resource[models.OnCallAlarm]
	OnCallRules      *client.Resource[models.OnCallRule]
	Basis            *client.Resource[models.Basis]
	FollowUp         *FollowUps
	TimeReports      *TimeReports
	TimeReportStatus *TimeReportStatus
	System           *System
	SpecialDays      *SpecialDays
	Session          *Session
}

// New builds every service on top of one client.
func New(c *client.Client) *Set {
	return &Set{
		client:           c,
		Users:            &Users{client.NewResource[models.User](c, PathUsers)},
		Companies:        client.NewResource[models.Company](c, PathCompanies),
		Projects:         client.NewResource[models.Project](c, PathProjects),
		Assignments:      client.NewResource[models.Assignment](c, PathAssignments),
		Rates:            client.NewResource[models.Rate](c, PathRates),
		FixRates:         client.NewResource[models.FixRate](c, PathFixRates),
		TaskContributors: client.NewResource[models.TaskContributor](c, PathTaskContributors),
		Tasks:            client.NewResource[models.Task](c, PathTasks),
		Activities:       client.NewResource[models.Activity](c, PathActivities),
		OnCall:           client.NewResource[models.OnCall](c, PathOnCall),
		OnCallAlarms:     client.NewResource[models.OnCallAlarm](c, PathOnCallAlarms),
		OnCallRules:      client.NewResource[models.OnCallRule](c, PathOnCallRules),
		Basis:            client.NewResource[models.Basis](c, PathBasis),
		FollowUp:         &FollowUps{client.NewResource[models.FollowUp](c, PathFollowUp)},
		TimeReports:      &TimeReports{client.NewResource[models.TimeReport](c, PathTimeReports)},
		TimeReportStatus: &TimeReportStatus{client.NewResource[models.TimeReportStatus](c, PathTimeReportStatus)},
		System:           &System{client.NewResource[models.SystemProperty](c, PathSystem)},
		SpecialDays:      &SpecialDays{client.NewResource[models.SpecialDay](c, PathSpecialDays)},
		Session:          &Session{c: c},
	}
}

// Client returns the shared transport.
func (s *Set) Client() *client.Client {
	return s.client
}

// Records returns an untyped client for a collection, by name or path.
func (s *Set) Records(name string) (*client.Resource[models.Record], error) {
	e, err := Find(name)
	if err != nil {
		return nil, err
	}
	return client.NewResource[models.Record](s.client, e.Path), nil
}
