// Package selector implements component C of the pipeline: deduplicate,
// quality-score, and choose a country-balanced subset of SearchResults
// under a hard analysis-size cap (spec.md §4.3).
package selector

import (
	"math"
	"net/url"
	"sort"
	"strings"

	"perspectivelens/internal/core"
)

const minTitleLength = 10

// Select runs the full algorithm of spec.md §4.3 over candidates and
// returns the chosen, country-interleaved subset.
func Select(candidates []core.SearchResult, targets core.SelectionTargets, inputURL string) ([]core.SearchResult, []string) {
	var advisories []string

	byCountry := groupByCountry(candidates)

	normalizedInputURL := canonicalizeURL(inputURL)
	perCountrySelected := make(map[string][]core.SearchResult, len(byCountry))

	for country, items := range byCountry {
		requested, wanted := targets.PerCountry[country]
		if !wanted || requested <= 0 {
			continue
		}

		deduped := dedupeWithinCountry(items)
		filtered := filterInvalid(deduped, normalizedInputURL)

		if len(filtered) < requested {
			advisories = append(advisories, "InsufficientCoverage: country "+country+" returned fewer candidates than requested")
		}

		// No content has been extracted yet at this stage, so filtered stays
		// in feed order (spec.md §4.3 step 4); interleave later orders the
		// countries themselves by sorted country code.
		if len(filtered) > requested {
			filtered = filtered[:requested]
		}
		perCountrySelected[country] = filtered
	}

	totalRequested := 0
	for _, n := range targets.PerCountry {
		if n > 0 {
			totalRequested += n
		}
	}

	total := 0
	for _, items := range perCountrySelected {
		total += len(items)
	}

	if targets.MaxForAnalysis > 0 && total > targets.MaxForAnalysis {
		perCountrySelected = trimProportionally(perCountrySelected, targets, totalRequested)
	}

	selected := interleave(perCountrySelected)

	if targets.MaxForAnalysis > 0 && len(selected) > targets.MaxForAnalysis {
		selected = selected[:targets.MaxForAnalysis]
	}

	return selected, advisories
}

func groupByCountry(candidates []core.SearchResult) map[string][]core.SearchResult {
	byCountry := make(map[string][]core.SearchResult)
	for _, c := range candidates {
		byCountry[c.CountryCode] = append(byCountry[c.CountryCode], c)
	}
	return byCountry
}

// dedupeWithinCountry drops duplicates by canonical URL and normalized
// title, keeping the first occurrence (feed/relevance order).
func dedupeWithinCountry(items []core.SearchResult) []core.SearchResult {
	seenURL := make(map[string]bool, len(items))
	seenTitle := make(map[string]bool, len(items))
	out := make([]core.SearchResult, 0, len(items))

	for _, item := range items {
		u := canonicalizeURL(item.URL)
		ti := normalizeTitle(item.Title)
		if seenURL[u] || seenTitle[ti] {
			continue
		}
		seenURL[u] = true
		seenTitle[ti] = true
		out = append(out, item)
	}
	return out
}

// filterInvalid drops results matching the input article's URL or whose
// title is shorter than minTitleLength.
func filterInvalid(items []core.SearchResult, normalizedInputURL string) []core.SearchResult {
	out := make([]core.SearchResult, 0, len(items))
	for _, item := range items {
		if canonicalizeURL(item.URL) == normalizedInputURL {
			continue
		}
		if len(strings.TrimSpace(item.Title)) < minTitleLength {
			continue
		}
		out = append(out, item)
	}
	return out
}

// trimProportionally keeps max(1, floor(maxForAnalysis * (originalTarget
// / totalRequested))) items per country, guaranteeing every requested
// country retains at least one slot when possible.
func trimProportionally(perCountry map[string][]core.SearchResult, targets core.SelectionTargets, totalRequested int) map[string][]core.SearchResult {
	if totalRequested <= 0 {
		return perCountry
	}

	trimmed := make(map[string][]core.SearchResult, len(perCountry))
	for country, items := range perCountry {
		requested := targets.PerCountry[country]
		if requested <= 0 {
			continue
		}
		keep := int(math.Floor(float64(targets.MaxForAnalysis) * (float64(requested) / float64(totalRequested))))
		if keep < 1 {
			keep = 1
		}
		if keep > len(items) {
			keep = len(items)
		}
		trimmed[country] = items[:keep]
	}
	return trimmed
}

// interleave arranges the final order round-robin over countries, so the
// first N items cover N distinct countries before any country repeats.
// Country iteration order is sorted for determinism.
func interleave(perCountry map[string][]core.SearchResult) []core.SearchResult {
	countryCodes := make([]string, 0, len(perCountry))
	for code := range perCountry {
		countryCodes = append(countryCodes, code)
	}
	sort.Strings(countryCodes)

	var out []core.SearchResult
	round := 0
	for {
		added := false
		for _, code := range countryCodes {
			items := perCountry[code]
			if round < len(items) {
				out = append(out, items[round])
				added = true
			}
		}
		if !added {
			break
		}
		round++
	}
	return out
}

func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), "")
}

func canonicalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	u.Fragment = ""
	if u.Path == "/" {
		u.Path = ""
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + u.Path
}
