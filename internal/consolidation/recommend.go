// Package consolidation turns overlap clusters into keep/retire recommendations.
package consolidation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"portfolio-backend/internal/features"
	"portfolio-backend/internal/overlaps"
	"portfolio-backend/internal/software"
)

type candidate struct {
	asset    software.Asset
	matched  map[string]features.Tag
	coverage float64
}

// Recommend picks the member to keep for one cluster. It returns nil when fewer than two
// members carry usable cost data.
func Recommend(cluster overlaps.Cluster, softwareByID map[string]software.Asset, tagsByID map[string][]features.Tag) *Recommendation {
	union := make(map[string]string, len(cluster.Features))
	for _, f := range cluster.Features {
		union[features.Tag{Name: f}.Key()] = f
	}

	cands := make([]candidate, 0, len(cluster.SoftwareIDs))
	for _, id := range cluster.SoftwareIDs {
		asset, ok := softwareByID[id]
		if !ok || !asset.HasCost() {
			continue
		}
		c := candidate{asset: asset, matched: map[string]features.Tag{}}
		for _, t := range tagsByID[id] {
			key := t.Key()
			if _, in := union[key]; !in {
				continue
			}
			if prev, dup := c.matched[key]; !dup || t.Confidence > prev.Confidence {
				c.matched[key] = t
			}
		}
		if len(union) > 0 {
			c.coverage = float64(len(c.matched)) / float64(len(union))
		}
		cands = append(cands, c)
	}
	if len(cands) < 2 {
		return nil
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.coverage != b.coverage {
			return a.coverage > b.coverage
		}
		if a.asset.AnnualCost != b.asset.AnnualCost {
			return a.asset.AnnualCost < b.asset.AnnualCost
		}
		if a.asset.LicenseCount != b.asset.LicenseCount {
			return a.asset.LicenseCount > b.asset.LicenseCount
		}
		return a.asset.ID < b.asset.ID
	})

	keep := cands[0]
	keepAll := overlaps.FeatureSet(tagsByID[keep.asset.ID])

	rec := &Recommendation{
		CompanyID:       keep.asset.CompanyID,
		ClusterCategory: cluster.Category,
		Keep:            ref(keep.asset),
		Remove:          make([]SoftwareRef, 0, len(cands)-1),
		FeaturesCovered: make([]string, 0, len(keep.matched)),
		FeaturesAtRisk:  make([]string, 0),
	}
	for key, name := range union {
		if _, ok := keep.matched[key]; ok {
			rec.FeaturesCovered = append(rec.FeaturesCovered, name)
		}
	}
	sort.Strings(rec.FeaturesCovered)

	atRisk := map[string]string{}
	removedLicenses := 0
	for _, c := range cands[1:] {
		rec.Remove = append(rec.Remove, ref(c.asset))
		rec.AnnualSavings += c.asset.AnnualCost
		removedLicenses += c.asset.LicenseCount
		for key := range c.matched {
			if _, kept := keepAll[key]; !kept {
				atRisk[key] = union[key]
			}
		}
	}
	for _, name := range atRisk {
		rec.FeaturesAtRisk = append(rec.FeaturesAtRisk, name)
	}
	sort.Strings(rec.FeaturesAtRisk)

	rec.MigrationEffort = MigrationEffort(len(rec.FeaturesAtRisk))
	rec.BusinessRisk = BusinessRisk(len(rec.FeaturesAtRisk), removedLicenses)
	rec.ConfidenceScore = confidence(keep.matched, cluster.OverlapCount)
	rec.Rationale = rationale(rec, len(union))
	return rec
}

// RecommendAll runs Recommend for every cluster and ranks the results by savings.
func RecommendAll(clusters []overlaps.Cluster, softwareByID map[string]software.Asset, tagsByID map[string][]features.Tag) []Recommendation {
	out := make([]Recommendation, 0, len(clusters))
	for _, c := range clusters {
		if rec := Recommend(c, softwareByID, tagsByID); rec != nil {
			out = append(out, *rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AnnualSavings != out[j].AnnualSavings {
			return out[i].AnnualSavings > out[j].AnnualSavings
		}
		return out[i].ClusterCategory < out[j].ClusterCategory
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// MigrationEffort grades effort from the number of features the kept tool lacks.
func MigrationEffort(atRisk int) Level {
	switch {
	case atRisk <= 0:
		return LevelLow
	case atRisk <= AtRiskMediumMax:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// BusinessRisk grades risk from missing features and the licenses of retired tools.
func BusinessRisk(atRisk, removedLicenses int) Level {
	switch {
	case atRisk == 0 && removedLicenses < LowRiskLicenseMax:
		return LevelLow
	case atRisk <= AtRiskMediumMax || removedLicenses < MediumRiskLicenseMax:
		return LevelMedium
	default:
		return LevelHigh
	}
}

func confidence(matched map[string]features.Tag, clusterSize int) float64 {
	if len(matched) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range matched {
		sum += t.Confidence
	}
	completeness := math.Min(1, float64(clusterSize)/FullConfidenceClusterSize)
	return math.Round(sum/float64(len(matched))*completeness*100) / 100
}

func rationale(rec *Recommendation, unionSize int) string {
	names := make([]string, 0, len(rec.Remove))
	for _, r := range rec.Remove {
		names = append(names, r.Name)
	}
	return fmt.Sprintf("Keep %s and retire %s to save $%s per year; %s covers %d of %d %s features.",
		rec.Keep.Name,
		strings.Join(names, ", "),
		formatMoney(rec.AnnualSavings),
		rec.Keep.Name,
		len(rec.FeaturesCovered),
		unionSize,
		rec.ClusterCategory,
	)
}

func formatMoney(v float64) string {
	whole := int64(math.Round(v))
	s := fmt.Sprintf("%d", whole)
	if whole < 0 {
		return s
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func ref(a software.Asset) SoftwareRef {
	return SoftwareRef{
		ID:           a.ID,
		Name:         a.Name,
		Vendor:       a.Vendor,
		AnnualCost:   a.AnnualCost,
		LicenseCount: a.LicenseCount,
	}
}
