package overlaps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-backend/internal/features"
	"portfolio-backend/internal/software"
)

func tagsOf(id string, names ...string) []features.Tag {
	out := make([]features.Tag, 0, len(names))
	for _, n := range names {
		out = append(out, features.Tag{SoftwareID: id, Name: n, Confidence: 0.8, Source: features.SourceDescription})
	}
	return out
}

func asset(id, name string, cost float64, active bool) software.Asset {
	return software.Asset{ID: id, CompanyID: "c1", Name: name, AnnualCost: cost, LicenseCount: 10, Active: active}
}

func TestDetectProjectManagementOverlap(t *testing.T) {
	inventory := []Entry{
		{Asset: asset("asana", "Asana", 48000, true), Tags: tagsOf("asana", "Task Management", "Kanban Boards")},
		{Asset: asset("monday", "Monday.com", 60000, true), Tags: tagsOf("monday", "Task Management", "Kanban Boards")},
		{Asset: asset("trello", "Trello", 55000, true), Tags: tagsOf("trello", "task management", "Kanban Boards")},
	}

	clusters := Detect(inventory, nil, nil)
	require.Len(t, clusters, 1)
	c := clusters[0]
	assert.Equal(t, "Task Management", c.Category)
	assert.Equal(t, 3, c.OverlapCount)
	assert.Equal(t, []string{"asana", "monday", "trello"}, c.SoftwareIDs)
	assert.Equal(t, []string{"Kanban Boards", "Task Management"}, c.Features)
	assert.InDelta(t, 163000, c.RedundancyCost, 0.001)
}

func TestDetectProportionalCostAndOrdering(t *testing.T) {
	inventory := []Entry{
		// 1 of 4 features in Communication, 3 of 4 in Reporting & Analytics.
		{Asset: asset("a", "A", 40000, true), Tags: tagsOf("a", "Messaging", "Reporting", "Analytics", "Dashboards")},
		// 1 of 2 in each.
		{Asset: asset("b", "B", 10000, true), Tags: tagsOf("b", "Live Chat", "Reporting")},
	}

	clusters := Detect(inventory, nil, ProportionalCost{})
	require.Len(t, clusters, 2)

	assert.Equal(t, "Reporting & Analytics", clusters[0].Category)
	assert.InDelta(t, 40000*0.75+10000*0.5, clusters[0].RedundancyCost, 0.001)
	assert.Equal(t, "Communication", clusters[1].Category)
	assert.InDelta(t, 40000*0.25+10000*0.5, clusters[1].RedundancyCost, 0.001)
	assert.Equal(t, []string{"Live Chat", "Messaging"}, clusters[1].Features)
}

func TestDetectExclusions(t *testing.T) {
	inventory := []Entry{
		{Asset: asset("a", "A", 1000, true), Tags: tagsOf("a", "Search")},
		{Asset: asset("inactive", "Old", 1000, false), Tags: tagsOf("inactive", "Search")},
		{Asset: asset("untagged", "Bare", 1000, true)},
		{Asset: asset("b", "B", 1000, true), Tags: tagsOf("b", "Quantum Teleportation")},
		{Asset: asset("c", "C", 1000, true), Tags: tagsOf("c", "Quantum Teleportation")},
	}
	assert.Empty(t, Detect(inventory, nil, nil))
}

func TestDetectNeverEmitsSingleMemberClusters(t *testing.T) {
	inventory := []Entry{
		{Asset: asset("a", "A", 1000, true), Tags: tagsOf("a", "Search", "Search", "search")},
		{Asset: asset("a", "A", 1000, true), Tags: tagsOf("a", "Search")},
		{Asset: asset("b", "B", 0, true), Tags: tagsOf("b", "Payroll")},
	}
	assert.Empty(t, Detect(inventory, nil, nil))
}

func TestDetectZeroCostMembersStillCluster(t *testing.T) {
	inventory := []Entry{
		{Asset: asset("a", "A", 0, true), Tags: tagsOf("a", "Search")},
		{Asset: asset("b", "B", 500, true), Tags: tagsOf("b", "Search")},
	}
	clusters := Detect(inventory, nil, nil)
	require.Len(t, clusters, 1)
	assert.InDelta(t, 500, clusters[0].RedundancyCost, 0.001)
}

func TestProportionalCostGuards(t *testing.T) {
	p := ProportionalCost{}
	assert.Zero(t, p.Attribute(asset("a", "A", 100, true), 1, 0))
	assert.Zero(t, p.Attribute(asset("a", "A", 0, true), 1, 2))
	assert.InDelta(t, 50, p.Attribute(asset("a", "A", 100, true), 1, 2), 0.001)
}
