package bootstrap

import (
	"portfolio-backend/internal/companies"
	"portfolio-backend/internal/software"
)

const demoCompanyID = "00000000-0000-0000-0000-00000000a11c"

// DemoPortfolio is the inventory served when no database is configured.
func DemoPortfolio() (companies.Company, []software.Asset) {
	company := companies.Company{ID: demoCompanyID, Slug: "acme", Name: "Acme Corp"}
	assets := []software.Asset{
		demo("sw-asana", "Asana", "Asana", "Project Management", "Track tasks, assign work and manage projects with kanban boards, timelines and reporting dashboards", 48000, 120),
		demo("sw-monday", "Monday.com", "monday.com", "Project Management", "Work OS to plan projects, track tasks, automate workflows and visualize progress with dashboards and integrations", 60000, 150),
		demo("sw-trello", "Trello", "Atlassian", "Project Management", "Kanban boards to organize tasks and collaborate with your team in real-time", 55000, 90),
		demo("sw-slack", "Slack", "Salesforce", "Communication", "Team collaboration with real-time chat, file sharing, and workflow automation", 36000, 300),
		demo("sw-teams", "Microsoft Teams", "Microsoft", "Communication", "Chat, video meetings, file storage and collaboration for teams with calendar scheduling", 24000, 300),
		demo("sw-dropbox", "Dropbox", "Dropbox", "File Storage", "Cloud file storage with file sharing, backup and version history across devices", 18000, 200),
		demo("sw-gdrive", "Google Drive", "Google", "File Storage", "Store, share and search documents with real-time collaboration and mobile access", 12000, 250),
		demo("sw-tableau", "Tableau", "Salesforce", "Analytics", "Analytics platform to visualize data, build dashboards and share reports", 42000, 25),
		demo("sw-zendesk", "Zendesk", "Zendesk", "Customer Support", "Help desk ticketing with live chat, knowledge base and customer management", 30000, 40),
	}
	return company, assets
}

func demo(id, name, vendor, category, description string, cost float64, licenses int) software.Asset {
	return software.Asset{
		ID:           id,
		CompanyID:    demoCompanyID,
		Name:         name,
		Vendor:       vendor,
		Category:     category,
		Description:  description,
		AnnualCost:   cost,
		LicenseCount: licenses,
		Active:       true,
	}
}
