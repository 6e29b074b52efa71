// Package overlaps groups a company's active software by shared feature category
// and attributes the redundant spend of every group.
package overlaps

import (
	"math"
	"sort"

	"portfolio-backend/internal/features"
	"portfolio-backend/internal/features/taxonomy"
	"portfolio-backend/internal/software"
)

// Entry is one asset with its stored feature tags.
type Entry struct {
	Asset software.Asset
	Tags  []features.Tag
}

// Cluster is a set of two or more active assets sharing a canonical category.
type Cluster struct {
	Category       string   `json:"category"`
	SoftwareIDs    []string `json:"softwareIds"`
	OverlapCount   int      `json:"overlapCount"`
	RedundancyCost float64  `json:"redundancyCost"`
	Features       []string `json:"features"`
}

// CostPolicy attributes part of an asset's annual cost to one category.
type CostPolicy interface {
	Attribute(asset software.Asset, featuresInCategory, totalFeatures int) float64
}

// ProportionalCost charges a category the share of annual cost matching its share of the asset's features.
type ProportionalCost struct{}

func (ProportionalCost) Attribute(asset software.Asset, featuresInCategory, totalFeatures int) float64 {
	if totalFeatures <= 0 || featuresInCategory <= 0 || !asset.HasCost() {
		return 0
	}
	return asset.AnnualCost * float64(featuresInCategory) / float64(totalFeatures)
}

type member struct {
	asset    software.Asset
	total    int
	byCat    map[string][]string
	catOrder []string
}

// Detect builds the category -> software inverted index over active assets and returns one
// cluster per category with at least two distinct members, most expensive first. Assets without
// tags join no cluster. Features that normalize to taxonomy.Other are not clustered.
func Detect(inventory []Entry, norm taxonomy.Normalizer, policy CostPolicy) []Cluster {
	if norm == nil {
		norm = taxonomy.Default()
	}
	if policy == nil {
		policy = ProportionalCost{}
	}

	members := collect(inventory, norm)
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	index := map[string][]string{}
	for _, id := range ids {
		for _, cat := range members[id].catOrder {
			index[cat] = append(index[cat], id)
		}
	}

	out := make([]Cluster, 0)
	for cat, sids := range index {
		if len(sids) < 2 {
			continue
		}
		c := Cluster{
			Category:     cat,
			SoftwareIDs:  sids,
			OverlapCount: len(sids),
		}
		seen := map[string]struct{}{}
		cost := 0.0
		for _, id := range sids {
			m := members[id]
			names := m.byCat[cat]
			cost += policy.Attribute(m.asset, len(names), m.total)
			for _, name := range names {
				key := features.Tag{Name: name}.Key()
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				c.Features = append(c.Features, name)
			}
		}
		sort.Strings(c.Features)
		c.RedundancyCost = math.Round(cost*100) / 100
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].RedundancyCost != out[j].RedundancyCost {
			return out[i].RedundancyCost > out[j].RedundancyCost
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// collect merges entries per active asset and groups each asset's distinct features by category.
func collect(inventory []Entry, norm taxonomy.Normalizer) map[string]*member {
	keys := map[string]map[string]struct{}{}
	members := map[string]*member{}
	for _, e := range inventory {
		if !e.Asset.Active || e.Asset.ID == "" {
			continue
		}
		m, ok := members[e.Asset.ID]
		if !ok {
			m = &member{asset: e.Asset, byCat: map[string][]string{}}
			members[e.Asset.ID] = m
			keys[e.Asset.ID] = map[string]struct{}{}
		}
		for _, t := range e.Tags {
			key := t.Key()
			if key == "" {
				continue
			}
			if _, dup := keys[e.Asset.ID][key]; dup {
				continue
			}
			keys[e.Asset.ID][key] = struct{}{}
			m.total++
			cat := norm.Normalize(t.Name)
			if cat == taxonomy.Other {
				continue
			}
			if _, ok := m.byCat[cat]; !ok {
				m.catOrder = append(m.catOrder, cat)
			}
			m.byCat[cat] = append(m.byCat[cat], t.Name)
		}
	}
	for id, m := range members {
		if m.total == 0 {
			delete(members, id)
		}
	}
	return members
}

// FeatureSet returns the distinct normalized feature keys of tags.
func FeatureSet(tags []features.Tag) map[string]struct{} {
	out := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if k := t.Key(); k != "" {
			out[k] = struct{}{}
		}
	}
	return out
}
