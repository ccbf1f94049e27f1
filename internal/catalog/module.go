package catalog

var (
	ModuleProjects  = Entry{Title: "Projects", Value: "projects", Show: true, Closed: false, Filterable: true}
	ModuleEstimates = Entry{Title: "Estimates", Value: "estimates", Show: true, Closed: false, Filterable: true}
	ModuleInvoices  = Entry{Title: "Invoices", Value: "invoices", Show: true, Closed: false, Filterable: true}
	ModuleTimecards = Entry{Title: "Timecards", Value: "timecards", Show: true, Closed: false, Filterable: true}
	ModuleReports   = Entry{Title: "Reports", Value: "reports", Show: true, Closed: false, Filterable: true}
	ModuleSettings  = Entry{Title: "Settings", Value: "settings", Show: true, Closed: false, Filterable: true}
	ModuleDashboard = Entry{Title: "Dashboard", Value: "dashboard", Show: true, Closed: false, Filterable: true}
)

var moduleEntries = []Entry{
	ModuleProjects,
	ModuleEstimates,
	ModuleInvoices,
	ModuleTimecards,
	ModuleReports,
	ModuleSettings,
	ModuleDashboard,
}

// Modules tags the product area a post concerns.
var Modules = MustNewRegistry("module", moduleEntries, valuesOf(moduleEntries))

func valuesOf(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Value
	}
	return out
}
