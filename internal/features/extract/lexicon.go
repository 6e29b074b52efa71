package extract

import "sync"

var defaultExtractor = sync.OnceValue(func() *Extractor {
	return New(DefaultLexicon())
})

// Default returns the shared extractor built from DefaultLexicon.
func Default() *Extractor {
	return defaultExtractor()
}

// Extract runs the default extractor.
func Extract(description, category, name string) []Tag {
	return Default().Extract(description, category, name)
}

// DefaultLexicon returns a fresh copy of the built-in capability table.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Capabilities: []Capability{
			{Feature: "Collaboration", Patterns: []string{`collaborat`, `teamwork`, `co-?edit`, `shared workspaces?\b`}},
			{Feature: "Communication", Patterns: []string{`chat`, `messag`, `communicat`, `video calls?\b`, `conferenc`, `voice calls?\b`}},
			{Feature: "File Sharing", Patterns: []string{`file[- ]shar`, `shar(?:e|es|ing) files\b`, `file transfers?\b`}},
			{Feature: "Document Management", Patterns: []string{`documents?\b`, `docs\b`, `wikis?\b`, `knowledge bases?\b`}},
			{Feature: "Workflow Automation", Patterns: []string{`workflows?\b`, `automat`}},
			{Feature: "Task Management", Patterns: []string{`tasks?\b`, `to-?dos?\b`, `kanban`, `backlogs?\b`, `sprints?\b`}},
			{Feature: "Project Management", Patterns: []string{`projects?\b`, `gantt`, `roadmaps?\b`, `milestones?\b`}},
			{Feature: "Reporting", Patterns: []string{`report`, `dashboards?\b`}},
			{Feature: "Analytics", Patterns: []string{`analytic`, `insights?\b`, `metrics\b`, `kpis?\b`}},
			{Feature: "Integrations", Patterns: []string{`integrat`, `apis?\b`, `webhooks?\b`, `connectors?\b`, `plugins?\b`}},
			{Feature: "Security", Patterns: []string{`secur`, `encrypt`, `compliance`, `two-factor`, `2fa\b`, `mfa\b`}},
			{Feature: "Single Sign-On", Patterns: []string{`sso\b`, `single sign-on`, `saml\b`}},
			{Feature: "Permissions", Patterns: []string{`permission`, `role-based`, `access control`, `rbac\b`}},
			{Feature: "Mobile Access", Patterns: []string{`mobile`, `ios\b`, `android`}},
			{Feature: "Search", Patterns: []string{`search`}},
			{Feature: "Import/Export", Patterns: []string{`export`, `import`, `csv\b`}},
			{Feature: "Scheduling", Patterns: []string{`schedul`, `calendars?\b`, `appointments?\b`, `booking`}},
			{Feature: "Notifications", Patterns: []string{`notification`, `alerts?\b`, `reminders?\b`}},
			{Feature: "Time Tracking", Patterns: []string{`time[- ]tracking`, `timesheets?\b`}},
			{Feature: "Real-time Sync", Patterns: []string{`real-?time`, `sync`}},
			{Feature: "Version History", Patterns: []string{`version (?:history|control)`, `revisions?\b`}},
			{Feature: "Customer Management", Patterns: []string{`crm\b`, `customer`, `contacts?\b`, `leads?\b`}},
			{Feature: "Sales Pipeline", Patterns: []string{`pipelines?\b`, `deals?\b`, `sales\b`}},
			{Feature: "Email Marketing", Patterns: []string{`email marketing`, `newsletters?\b`, `campaigns?\b`}},
			{Feature: "Ticketing", Patterns: []string{`tickets?\b`, `ticketing`, `help ?desk`, `support requests?\b`}},
			{Feature: "Invoicing", Patterns: []string{`invoic`, `billing`, `payments?\b`}},
			{Feature: "Expense Tracking", Patterns: []string{`expenses?\b`, `receipts?\b`}},
			{Feature: "Design Tools", Patterns: []string{`design`, `prototyp`, `wirefram`}},
			{Feature: "Code Review", Patterns: []string{`code reviews?\b`, `pull requests?\b`, `merge requests?\b`}},
			{Feature: "CI/CD", Patterns: []string{`ci/cd`, `continuous (?:integration|delivery|deployment)`, `deploy`}},
			{Feature: "Data Visualization", Patterns: []string{`visuali[sz]`, `charts?\b`, `graphs?\b`}},
			{Feature: "Backup", Patterns: []string{`backups?\b`, `disaster recovery`}},
			{Feature: "File Storage", Patterns: []string{`storage`, `cloud drive`}},
		},
		CategoryDefaults: map[string][]string{
			"Project Management":    {"Task Management", "Project Management", "Collaboration", "Reporting", "Scheduling"},
			"Task Management":       {"Task Management", "Collaboration", "Notifications"},
			"Communication":         {"Communication", "Messaging", "Video Conferencing", "Notifications", "File Sharing"},
			"Collaboration":         {"Collaboration", "Document Management", "File Sharing", "Communication"},
			"CRM":                   {"Customer Management", "Sales Pipeline", "Reporting", "Email Integration"},
			"Sales":                 {"Sales Pipeline", "Customer Management", "Reporting"},
			"Marketing":             {"Email Marketing", "Analytics", "Social Media Management"},
			"Analytics":             {"Analytics", "Reporting", "Data Visualization", "Import/Export"},
			"Business Intelligence": {"Analytics", "Reporting", "Data Visualization", "Import/Export"},
			"Design":                {"Design Tools", "Prototyping", "Collaboration", "Version History"},
			"Development":           {"Version Control", "Code Review", "CI/CD", "Issue Tracking"},
			"DevOps":                {"CI/CD", "Version Control", "Notifications", "Integrations"},
			"HR":                    {"Employee Records", "Payroll", "Time Tracking", "Onboarding"},
			"Human Resources":       {"Employee Records", "Payroll", "Time Tracking", "Onboarding"},
			"Finance":               {"Invoicing", "Expense Tracking", "Budgeting", "Reporting"},
			"Accounting":            {"Invoicing", "Expense Tracking", "Budgeting", "Reporting"},
			"Security":              {"Security", "Permissions", "Single Sign-On", "Audit Logging"},
			"File Storage":          {"File Storage", "File Sharing", "Backup", "Version History"},
			"Storage":               {"File Storage", "File Sharing", "Backup", "Version History"},
			"Customer Support":      {"Ticketing", "Live Chat", "Knowledge Base", "Reporting"},
			"Productivity":          {"Document Management", "Note Taking", "Task Management", "Collaboration"},
		},
		Verbs: []Verb{
			{Word: "analyze", Stem: "analy", Extra: []string{"analyse", "analyses", "analysed", "analysing"}},
			{Word: "approve"},
			{Word: "assign"},
			{Word: "automate", Stem: "automat"},
			{Word: "backup"},
			{Word: "budget"},
			{Word: "build", Extra: []string{"builds", "built", "building"}},
			{Word: "collaborate", Stem: "collaborat"},
			{Word: "create", Stem: "creat"},
			{Word: "deploy"},
			{Word: "edit"},
			{Word: "export"},
			{Word: "forecast"},
			{Word: "generate", Stem: "generat"},
			{Word: "import"},
			{Word: "integrate", Stem: "integrat"},
			{Word: "invoice", Stem: "invoic"},
			{Word: "manage", Stem: "manag"},
			{Word: "measure"},
			{Word: "monitor"},
			{Word: "notify", Stem: "notif", Extra: []string{"notifies", "notified"}},
			{Word: "organize", Stem: "organi", Extra: []string{"organise", "organises", "organised", "organising"}},
			{Word: "plan", Extra: []string{"planned", "planning"}},
			{Word: "publish", Extra: []string{"publishes"}},
			{Word: "record"},
			{Word: "review"},
			{Word: "schedule", Stem: "schedul"},
			{Word: "search", Extra: []string{"searches"}},
			{Word: "send", Extra: []string{"sent", "sending"}},
			{Word: "share", Stem: "shar"},
			{Word: "store", Stem: "stor"},
			{Word: "stream"},
			{Word: "sync"},
			{Word: "track"},
			{Word: "visualize", Stem: "visuali", Extra: []string{"visualise", "visualises", "visualised", "visualising"}},
		},
	}
}
