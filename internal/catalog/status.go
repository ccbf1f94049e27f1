package catalog

var (
	StatusOpen      = Entry{Title: "Open", Value: "open", Show: false, Closed: false, Filterable: false}
	StatusPlanned   = Entry{Title: "Planned", Value: "planned", Show: true, Closed: false, Filterable: true}
	StatusStarted   = Entry{Title: "Started", Value: "started", Show: true, Closed: false, Filterable: true}
	StatusCompleted = Entry{Title: "Completed", Value: "completed", Show: true, Closed: true, Filterable: true}
	StatusDeclined  = Entry{Title: "Declined", Value: "declined", Show: true, Closed: true, Filterable: true}
	StatusDuplicate = Entry{Title: "Duplicate", Value: "duplicate", Show: true, Closed: true, Filterable: false}

	// StatusDeleted decodes but is never offered by All. Posts only reach it
	// through moderation.
	StatusDeleted = Entry{Title: "Deleted", Value: "deleted", Show: false, Closed: true, Filterable: false}
)

// Statuses is the lifecycle catalog of a post.
var Statuses = MustNewRegistry(
	"status",
	[]Entry{
		StatusOpen,
		StatusPlanned,
		StatusStarted,
		StatusCompleted,
		StatusDeclined,
		StatusDuplicate,
		StatusDeleted,
	},
	[]string{
		StatusOpen.Value,
		StatusPlanned.Value,
		StatusStarted.Value,
		StatusCompleted.Value,
		StatusDuplicate.Value,
		StatusDeclined.Value,
	},
)
