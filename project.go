package projecthub

import (
	"time"

	"github.com/jpalmerr/projecthub/internal/monitor"
	"github.com/jpalmerr/projecthub/internal/store"
)

// Project is a registered pair of local and cloud endpoints.
type Project = store.Project

// Endpoint is one monitored URL with its last known [Status].
type Endpoint = store.Endpoint

// Draft is the input to [Hub.Add].
type Draft = store.Draft

// Patch is a shallow update for [Hub.Update]; nil fields are left unchanged.
type Patch = store.Patch

// Query selects projects in [Filter].
type Query = store.Query

// Status represents the liveness state of an endpoint.
//
// Status is a string type holding one of [StatusOnline], [StatusOffline],
// [StatusPending] or [StatusDisabled].
type Status = store.Status

const (
	// StatusOnline indicates the most recent probe completed.
	StatusOnline = store.StatusOnline

	// StatusOffline indicates the most recent probe failed or timed out.
	StatusOffline = store.StatusOffline

	// StatusPending indicates a URL is set but has not been checked yet.
	StatusPending = store.StatusPending

	// StatusDisabled indicates no URL is configured.
	StatusDisabled = store.StatusDisabled
)

// MergePolicy decides how overlapping checks of one project are merged.
type MergePolicy = monitor.MergePolicy

const (
	// LastWriteWins keeps whichever check persisted last. This is the default.
	LastWriteWins = monitor.LastWriteWins

	// RejectStale drops a result whose probe started before the stored check.
	RejectStale = monitor.RejectStale
)

var (
	// ErrNotFound is returned when a project id does not exist.
	ErrNotFound = store.ErrNotFound

	// ErrValidation is matched by errors returned for invalid drafts.
	ErrValidation = store.ErrValidation
)

// EndpointKind names which of a project's endpoints a [StatusResult] is for.
type EndpointKind string

const (
	EndpointLocal EndpointKind = "local"
	EndpointCloud EndpointKind = "cloud"
)

// StatusResult describes one persisted endpoint check.
//
// StatusResult is delivered to callbacks registered with
// [WithStatusCallback] after the result has been written to the store.
type StatusResult struct {
	// ProjectID is the id of the checked project.
	ProjectID string

	// ProjectName is the display name of the checked project.
	ProjectName string

	// Endpoint is which endpoint was checked.
	Endpoint EndpointKind

	// URL is the probed address.
	URL string

	// Status is the stored state after the check.
	Status Status

	// Previous is the state before the check.
	Previous Status

	// CheckedAt is when the probe completed.
	CheckedAt time.Time
}

// Changed reports whether the check moved the endpoint to a new status.
func (r StatusResult) Changed() bool {
	return r.Status != r.Previous
}

// Filter returns the projects matching q in their stored order.
//
// The search term matches name or description case-insensitively. A
// non-empty status set keeps projects where a configured endpoint is in
// one of the statuses.
func Filter(projects []Project, q Query) []Project {
	return store.Filter(projects, q)
}

// checkResults derives the per-endpoint results of a persisted check.
// Only endpoints whose LastCheck moved are reported.
func checkResults(before, after Project) []StatusResult {
	var out []StatusResult
	pairs := []struct {
		kind          EndpointKind
		before, after Endpoint
	}{
		{EndpointLocal, before.Local, after.Local},
		{EndpointCloud, before.Cloud, after.Cloud},
	}
	for _, p := range pairs {
		if p.after.LastCheck == nil {
			continue
		}
		if p.before.LastCheck != nil && p.before.LastCheck.Equal(*p.after.LastCheck) {
			continue
		}
		out = append(out, StatusResult{
			ProjectID:   after.ID,
			ProjectName: after.Name,
			Endpoint:    p.kind,
			URL:         p.after.URL,
			Status:      p.after.Status,
			Previous:    p.before.Status,
			CheckedAt:   *p.after.LastCheck,
		})
	}
	return out
}
