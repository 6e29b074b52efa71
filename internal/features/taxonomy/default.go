package taxonomy

import "sync"

var defaultTaxonomy = sync.OnceValue(func() *Taxonomy {
	return MustNew(DefaultTable())
})

// Default returns the built-in taxonomy.
func Default() *Taxonomy {
	return defaultTaxonomy()
}

// DefaultTable is the built-in category -> features table. Verb-derived
// features are listed with the categories they usually indicate.
func DefaultTable() map[string][]string {
	return map[string][]string{
		"Task Management":                  {"Task Management", "Issue Tracking", "Kanban Boards", "To-Do Lists", "Track", "Assign", "Organize"},
		"Project Management":               {"Project Management", "Scheduling", "Time Tracking", "Roadmapping", "Resource Planning", "Schedule", "Plan"},
		"Communication":                    {"Communication", "Messaging", "Video Conferencing", "Notifications", "Live Chat", "Email Integration", "Notify", "Send"},
		"Collaboration":                    {"Collaboration", "Real-time Sync", "Collaborate"},
		"Document Management":              {"Document Management", "File Sharing", "File Storage", "Knowledge Base", "Note Taking", "Version History", "Backup", "Share", "Store"},
		"Reporting & Analytics":            {"Reporting", "Analytics", "Data Visualization", "Dashboards", "Analyze", "Monitor", "Measure", "Visualize", "Forecast"},
		"Automation & Workflow":            {"Workflow Automation", "Automate", "Approve", "Review"},
		"Integrations":                     {"Integrations", "Import/Export", "Sync", "Import", "Export", "Integrate"},
		"Security & Compliance":            {"Security", "Permissions", "Single Sign-On", "Audit Logging"},
		"Mobile":                           {"Mobile Access"},
		"Search":                           {"Search"},
		"Customer Relationship Management": {"Customer Management", "Sales Pipeline"},
		"Marketing":                        {"Email Marketing", "Social Media Management", "Publish"},
		"Customer Support":                 {"Ticketing"},
		"Design":                           {"Design Tools", "Prototyping", "Edit"},
		"Engineering":                      {"Version Control", "Code Review", "CI/CD", "Deploy", "Build"},
		"Human Resources":                  {"Employee Records", "Payroll", "Onboarding"},
		"Finance":                          {"Invoicing", "Expense Tracking", "Budgeting", "Invoice", "Budget"},
	}
}
