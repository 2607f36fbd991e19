package model

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"github.com/google/uuid"
)

// baselinePrefix is prepended to every baseline name.
const baselinePrefix = "page"

// CheckID is the identity of one (page, viewport) check.
//
// A CheckID is created fresh when a check starts and is passed by value
// through all of its steps. Nothing about it lives in scanner-wide state,
// so concurrently running checks can never disturb each other's identity.
type CheckID struct {
	// PageIndex is the position of the page in the scan input.
	PageIndex int `json:"page_index"`

	// Viewport is the catalog name of the viewport.
	Viewport string `json:"viewport"`

	// Baseline is the stable name under which the screenshot is compared
	// and stored. It is the same across scans for the same page/viewport.
	Baseline string `json:"baseline"`

	// Token is unique per check run.
	Token string `json:"token"`
}

// NewCheckID creates the identity of a check for the page at index.
func NewCheckID(index int, page PageSpec, viewport string) CheckID {
	return CheckID{
		PageIndex: index,
		Viewport:  viewport,
		Baseline:  BaselineName(index, page, viewport),
		Token:     uuid.NewString(),
	}
}

// BaselineName returns "page-<viewport>-<key>", where key is the
// sanitized Baseline of the page, or its title when Baseline is empty.
//
// Keys that sanitize to an empty string fall back to "untitled_<index>"
// so that the name is never ambiguous.
func BaselineName(index int, page PageSpec, viewport string) string {
	return baselinePrefix + "-" + viewport + "-" + baselineKey(index, page)
}

func baselineKey(index int, page PageSpec) string {
	key := Sanitize(cmp.Or(page.Baseline, page.Title))
	if key == "" {
		key = "untitled_" + strconv.Itoa(index)
	}
	return key
}

// UniqueBaselines returns a copy of pages in which no two pages share a
// baseline key. The first page with a given key keeps it; every later one
// gets "_<index>" appended, so a second "Home" at index 3 becomes "home_3".
// Suffixed keys never take a key another page maps to naturally.
func UniqueBaselines(pages []PageSpec) []PageSpec {
	out := slices.Clone(pages)

	keys := make([]string, len(pages))
	natural := make(map[string]bool, len(pages))
	for i, page := range pages {
		keys[i] = baselineKey(i, page)
		natural[keys[i]] = true
	}

	used := make(map[string]bool, len(pages))
	for i, key := range keys {
		if !used[key] {
			used[key] = true
			continue
		}
		suffix := "_" + strconv.Itoa(i)
		candidate := key + suffix
		for natural[candidate] || used[candidate] {
			candidate += suffix
		}
		used[candidate] = true
		out[i].Baseline = candidate
	}
	return out
}

// String returns a compact form for logs.
func (id CheckID) String() string {
	return fmt.Sprintf("%s#%s", id.Baseline, id.Token)
}
