package wanikani

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Filters are forwarded to the API as given; nothing is validated locally.
// Lists are sent comma separated, booleans as true/false and times in
// RFC 3339. Presence-only flags are sent without a value.

// query builds filter parameters, skipping unset fields.
type query url.Values

func (q query) ints(name string, v []int) {
	if len(v) == 0 {
		return
	}
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	q[name] = []string{strings.Join(parts, ",")}
}

func (q query) strs(name string, v []string) {
	if len(v) == 0 {
		return
	}
	q[name] = []string{strings.Join(v, ",")}
}

func (q query) boolean(name string, v *bool) {
	if v != nil {
		q[name] = []string{strconv.FormatBool(*v)}
	}
}

func (q query) number(name string, v *int) {
	if v != nil {
		q[name] = []string{strconv.Itoa(*v)}
	}
}

func (q query) flag(name string, set bool) {
	if set {
		q[name] = []string{""}
	}
}

func (q query) time(name string, t *time.Time) {
	if t != nil {
		q[name] = []string{t.UTC().Format(time.RFC3339Nano)}
	}
}

func (q query) values() url.Values {
	if len(q) == 0 {
		return nil
	}
	return url.Values(q)
}

// Bool returns a pointer to b, for optional filter fields.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to n, for optional filter fields.
func Int(n int) *int { return &n }

// Time returns a pointer to t, for optional filter fields.
func Time(t time.Time) *time.Time { return &t }

// IDFilter filters the collections that only support ids and updated_after:
// level progressions, resets, spaced repetition systems and voice actors.
type IDFilter struct {
	IDs          []int
	UpdatedAfter *time.Time
}

// Values encodes the filter as query parameters.
func (f IDFilter) Values() url.Values {
	q := query{}
	q.ints("ids", f.IDs)
	q.time("updated_after", f.UpdatedAfter)
	return q.values()
}

// SubjectFilter filters the subjects collection.
type SubjectFilter struct {
	IDs          []int
	Types        []string
	Slugs        []string
	Levels       []int
	Hidden       *bool
	UpdatedAfter *time.Time
}

// Values encodes the filter as query parameters.
func (f SubjectFilter) Values() url.Values {
	q := query{}
	q.ints("ids", f.IDs)
	q.strs("types", f.Types)
	q.strs("slugs", f.Slugs)
	q.ints("levels", f.Levels)
	q.boolean("hidden", f.Hidden)
	q.time("updated_after", f.UpdatedAfter)
	return q.values()
}

// AssignmentFilter filters the assignments collection.
type AssignmentFilter struct {
	IDs             []int
	AvailableAfter  *time.Time
	AvailableBefore *time.Time
	Burned          *bool
	Hidden          *bool
	Levels          []int
	SRSStages       []int
	Started         *bool
	SubjectIDs      []int
	SubjectTypes    []string
	Unlocked        *bool
	UpdatedAfter    *time.Time

	// Presence-only flags
	ImmediatelyAvailableForLessons bool
	ImmediatelyAvailableForReview  bool
	InReview                       bool
}

// Values encodes the filter as query parameters.
func (f AssignmentFilter) Values() url.Values {
	q := query{}
	q.ints("ids", f.IDs)
	q.time("available_after", f.AvailableAfter)
	q.time("available_before", f.AvailableBefore)
	q.boolean("burned", f.Burned)
	q.boolean("hidden", f.Hidden)
	q.flag("immediately_available_for_lessons", f.ImmediatelyAvailableForLessons)
	q.flag("immediately_available_for_review", f.ImmediatelyAvailableForReview)
	q.flag("in_review", f.InReview)
	q.ints("levels", f.Levels)
	q.ints("srs_stages", f.SRSStages)
	q.boolean("started", f.Started)
	q.ints("subject_ids", f.SubjectIDs)
	q.strs("subject_types", f.SubjectTypes)
	q.boolean("unlocked", f.Unlocked)
	q.time("updated_after", f.UpdatedAfter)
	return q.values()
}

// ReviewFilter filters the reviews collection.
type ReviewFilter struct {
	IDs           []int
	AssignmentIDs []int
	SubjectIDs    []int
	UpdatedAfter  *time.Time
}

// Values encodes the filter as query parameters.
func (f ReviewFilter) Values() url.Values {
	q := query{}
	q.ints("ids", f.IDs)
	q.ints("assignment_ids", f.AssignmentIDs)
	q.ints("subject_ids", f.SubjectIDs)
	q.time("updated_after", f.UpdatedAfter)
	return q.values()
}

// ReviewStatisticFilter filters the review statistics collection.
type ReviewStatisticFilter struct {
	IDs                    []int
	Hidden                 *bool
	PercentagesGreaterThan *int
	PercentagesLessThan    *int
	SubjectIDs             []int
	SubjectTypes           []string
	UpdatedAfter           *time.Time
}

// Values encodes the filter as query parameters.
func (f ReviewStatisticFilter) Values() url.Values {
	q := query{}
	q.ints("ids", f.IDs)
	q.boolean("hidden", f.Hidden)
	q.number("percentages_greater_than", f.PercentagesGreaterThan)
	q.number("percentages_less_than", f.PercentagesLessThan)
	q.ints("subject_ids", f.SubjectIDs)
	q.strs("subject_types", f.SubjectTypes)
	q.time("updated_after", f.UpdatedAfter)
	return q.values()
}

// StudyMaterialFilter filters the study materials collection.
type StudyMaterialFilter struct {
	IDs          []int
	Hidden       *bool
	SubjectIDs   []int
	SubjectTypes []string
	UpdatedAfter *time.Time
}

// Values encodes the filter as query parameters.
func (f StudyMaterialFilter) Values() url.Values {
	q := query{}
	q.ints("ids", f.IDs)
	q.boolean("hidden", f.Hidden)
	q.ints("subject_ids", f.SubjectIDs)
	q.strs("subject_types", f.SubjectTypes)
	q.time("updated_after", f.UpdatedAfter)
	return q.values()
}
