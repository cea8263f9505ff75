// Package models defines the entities exchanged with the tally API.
// Field names follow the backend's camelCase JSON.
package models

// Record is an opaque JSON object, used where the CLI passes entities
// through without interpreting them.
type Record = map[string]any

// User is an employee or consultant who reports time.
type User struct {
	ID        int64  `json:"id,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	CompanyID int64  `json:"companyId,omitempty"`
	Active    bool   `json:"active"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// Company is a customer that projects are invoiced to.
type Company struct {
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name"`
	OrgNumber string `json:"orgNumber,omitempty"`
	Active    bool   `json:"active"`
}

// Project belongs to a company.
type Project struct {
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name"`
	CompanyID int64  `json:"companyId"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
	Active    bool   `json:"active"`
}

// Assignment puts a user on a project for a period.
type Assignment struct {
	ID        int64  `json:"id,omitempty"`
	UserID    int64  `json:"userId"`
	ProjectID int64  `json:"projectId"`
	FromDate  string `json:"fromDate,omitempty"`
	ToDate    string `json:"toDate,omitempty"`
	Active    bool   `json:"active"`
}

// Rate is an hourly rate for a task contributor over a period.
type Rate struct {
	ID                int64   `json:"id,omitempty"`
	TaskContributorID int64   `json:"taskContributorId"`
	Rate              float64 `json:"rate"`
	FromDate          string  `json:"fromDate,omitempty"`
	ToDate            string  `json:"toDate,omitempty"`
}

// FixRate is a fixed amount invoiced on a project.
type FixRate struct {
	ID        int64   `json:"id,omitempty"`
	ProjectID int64   `json:"projectId"`
	Amount    float64 `json:"amount"`
	Date      string  `json:"date,omitempty"`
	Comment   string  `json:"comment,omitempty"`
}

// Task is a reportable unit of work within a project.
type Task struct {
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name"`
	ProjectID int64  `json:"projectId"`
	Active    bool   `json:"active"`
}

// TaskContributor lets a user report time on a task.
type TaskContributor struct {
	ID     int64 `json:"id,omitempty"`
	UserID int64 `json:"userId"`
	TaskID int64 `json:"taskId"`
	Active bool  `json:"active"`
}

// Activity is a category of reported time.
type Activity struct {
	ID       int64  `json:"id,omitempty"`
	Name     string `json:"name"`
	Billable bool   `json:"billable"`
	Active   bool   `json:"active"`
}

// OnCall is an on-call duty of a user on a project.
type OnCall struct {
	ID        int64  `json:"id,omitempty"`
	UserID    int64  `json:"userId"`
	ProjectID int64  `json:"projectId"`
	FromDate  string `json:"fromDate"`
	ToDate    string `json:"toDate"`
}

// OnCallAlarm is a registered call-out during on-call duty.
type OnCallAlarm struct {
	ID       int64   `json:"id,omitempty"`
	OnCallID int64   `json:"onCallId"`
	Date     string  `json:"date"`
	Hours    float64 `json:"hours"`
	Comment  string  `json:"comment,omitempty"`
}

// OnCallRule configures on-call compensation for a project.
type OnCallRule struct {
	ID        int64   `json:"id,omitempty"`
	ProjectID int64   `json:"projectId"`
	Name      string  `json:"name"`
	Rate      float64 `json:"rate"`
}

// Basis is one row of the invoicing basis computed by the server.
type Basis struct {
	ID          int64   `json:"id,omitempty"`
	CompanyName string  `json:"companyName"`
	ProjectName string  `json:"projectName"`
	UserName    string  `json:"userName"`
	Hours       float64 `json:"hours"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
	Period      string  `json:"period,omitempty"`
}

// FollowUp is one row of the monthly follow-up report.
type FollowUp struct {
	ID            int64   `json:"id,omitempty"`
	UserID        int64   `json:"userId"`
	UserName      string  `json:"userName"`
	ReportedHours float64 `json:"reportedHours"`
	ExpectedHours float64 `json:"expectedHours"`
	Period        string  `json:"period,omitempty"`
}

// TimeReport is a single time entry.
type TimeReport struct {
	ID      int64   `json:"id,omitempty"`
	UserID  int64   `json:"userId"`
	TaskID  int64   `json:"taskId"`
	Date    string  `json:"date"`
	Hours   float64 `json:"hours"`
	Comment string  `json:"comment,omitempty"`
}

// TimeReportStatus tells up to which date a user's time report is closed.
type TimeReportStatus struct {
	ID        int64  `json:"id,omitempty"`
	UserID    int64  `json:"userId"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	CloseDate string `json:"closeDate,omitempty"`
	Closed    bool   `json:"closed"`
}

// SystemProperty is a named backend setting.
type SystemProperty struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SpecialDay is a holiday or shortened working day.
type SpecialDay struct {
	ID    int64   `json:"id,omitempty"`
	Date  string  `json:"date"`
	Name  string  `json:"name"`
	Hours float64 `json:"hours"`
}

// Session describes the logged in user.
type Session struct {
	User          *User    `json:"user,omitempty"`
	Authenticated bool     `json:"authenticated"`
	Roles         []string `json:"roles,omitempty"`
}
