// Package services composes the generic resource client into the clients
// for each tally API collection.
package services

import (
	"fmt"
	"sort"
	"strings"
)

// Base paths of the API collections.
const (
	PathUsers            = "/api/users"
	PathCompanies        = "/api/companies"
	PathProjects         = "/api/projects"
	PathAssignments      = "/api/assignments"
	PathRates            = "/api/rates"
	PathFixRates         = "/api/fixrates"
	PathTaskContributors = "/api/taskcontributor"
	PathTasks            = "/api/task"
	PathActivities       = "/api/activities"
	PathOnCall           = "/api/oncall"
	PathOnCallAlarms     = "/api/oncall/alarms"
	PathOnCallRules      = "/api/oncall/rules"
	PathBasis            = "/api/basis"
	PathFollowUp         = "/api/followup"
	PathTimeReports      = "/api/timereport"
	PathTimeReportStatus = "/api/timereportstatus"
	PathSystem           = "/api/system"
	PathSpecialDays      = "/api/specialday"
	PathSession          = "/api/session"
)

// Entry names a collection for the CLI and tool surfaces.
type Entry struct {
	Name  string
	Path  string
	Short string
}

// Catalog lists every CRUD collection. The session endpoint is not a
// collection and is not listed.
var Catalog = []Entry{
	{Name: "users", Path: PathUsers, Short: "Users and consultants"},
	{Name: "companies", Path: PathCompanies, Short: "Customer companies"},
	{Name: "projects", Path: PathProjects, Short: "Projects"},
	{Name: "assignments", Path: PathAssignments, Short: "Project assignments"},
	{Name: "rates", Path: PathRates, Short: "Hourly rates"},
	{Name: "fixrates", Path: PathFixRates, Short: "Fixed-price amounts"},
	{Name: "taskcontributors", Path: PathTaskContributors, Short: "Task contributors"},
	{Name: "tasks", Path: PathTasks, Short: "Tasks"},
	{Name: "activities", Path: PathActivities, Short: "Activities"},
	{Name: "oncall", Path: PathOnCall, Short: "On-call schedule"},
	{Name: "oncall-alarms", Path: PathOnCallAlarms, Short: "On-call alarms"},
	{Name: "oncall-rules", Path: PathOnCallRules, Short: "On-call rules"},
	{Name: "basis", Path: PathBasis, Short: "Invoicing basis"},
	{Name: "followup", Path: PathFollowUp, Short: "Follow-up reports"},
	{Name: "timereport", Path: PathTimeReports, Short: "Time entries"},
	{Name: "timereportstatus", Path: PathTimeReportStatus, Short: "Time report open/closed status"},
	{Name: "system", Path: PathSystem, Short: "System properties"},
	{Name: "specialday", Path: PathSpecialDays, Short: "Holidays and special days"},
}

// Find resolves a collection by name or base path.
func Find(name string) (Entry, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, e := range Catalog {
		if e.Name == n || e.Path == n {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("unknown resource %q (known: %s)", name, strings.Join(Names(), ", "))
}

// Names returns the sorted collection names.
func Names() []string {
	names := make([]string, 0, len(Catalog))
	for _, e := range Catalog {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}
