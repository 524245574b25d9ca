package store

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Status represents the liveness state of a single endpoint.
type Status string

const (
	// StatusOnline means the most recent probe completed without a transport failure.
	StatusOnline Status = "online"

	// StatusOffline means the most recent probe failed.
	StatusOffline Status = "offline"

	// StatusPending means a URL is configured but no probe has completed yet.
	StatusPending Status = "pending"

	// StatusDisabled means no URL is configured; the endpoint is never probed.
	StatusDisabled Status = "disabled"
)

// Statuses lists every valid [Status] in display order.
var Statuses = []Status{StatusOnline, StatusOffline, StatusPending, StatusDisabled}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is one of the four defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusPending, StatusDisabled:
		return true
	}
	return false
}

// Endpoint is one of a project's two monitored URLs plus its last known state.
type Endpoint struct {
	// URL is the probed address. Empty means "not configured".
	URL string `json:"url"`

	// Status is the current liveness state.
	Status Status `json:"status"`

	// LastCheck is when the most recent applied probe completed.
	// nil if the endpoint has never been checked.
	LastCheck *time.Time `json:"last_check"`
}

// Configured reports whether the endpoint has a URL to probe.
func (e Endpoint) Configured() bool {
	return e.URL != ""
}

// newEndpoint returns the initial state for a freshly configured URL:
// pending when set, disabled when empty.
func newEndpoint(rawURL string) Endpoint {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Endpoint{Status: StatusDisabled}
	}
	return Endpoint{URL: rawURL, Status: StatusPending}
}

// Project is a registered pair of local and cloud endpoints.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Local       Endpoint  `json:"local"`
	Cloud       Endpoint  `json:"cloud"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Draft is the input for creating a project.
type Draft struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	LocalURL    string `json:"local_url"`
	CloudURL    string `json:"cloud_url"`
}

// Validate checks that at least one endpoint URL is configured.
func (d Draft) Validate() error {
	d.LocalURL = strings.TrimSpace(d.LocalURL)
	d.CloudURL = strings.TrimSpace(d.CloudURL)
	noLocal := d.LocalURL == ""
	noCloud := d.CloudURL == ""

	return validation.ValidateStruct(&d,
		validation.Field(&d.LocalURL,
			validation.Required.When(noCloud).Error("local or cloud url is required"),
		),
		validation.Field(&d.CloudURL,
			validation.Required.When(noLocal).Error("local or cloud url is required"),
		),
	)
}

// Patch is a shallow, per-top-level-field update. nil fields are left
// untouched; a non-nil endpoint replaces the stored endpoint after
// normalization (see [Store.Update]).
type Patch struct {
	Name        *string
	Description *string
	Local       *Endpoint
	Cloud       *Endpoint

	// checked marks a patch built by [CheckResult]; only those may set
	// an endpoint's status and last check.
	checked bool
}

// CheckResult returns a patch carrying probe results for the given
// endpoints. nil endpoints were not checked and are left untouched.
func CheckResult(local, cloud *Endpoint) Patch {
	return Patch{Local: local, Cloud: cloud, checked: true}
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.Name == nil && p.Description == nil && p.Local == nil && p.Cloud == nil
}

// apply merges p into proj field by field.
func (p Patch) apply(proj *Project) {
	if p.Name != nil {
		proj.Name = *p.Name
	}
	if p.Description != nil {
		proj.Description = *p.Description
	}
	if p.Local != nil {
		proj.Local = mergeEndpoint(proj.Local, *p.Local, p.checked)
	}
	if p.Cloud != nil {
		proj.Cloud = mergeEndpoint(proj.Cloud, *p.Cloud, p.checked)
	}
}

// mergeEndpoint enforces the endpoint invariants when next replaces cur:
//   - an empty URL is always disabled with no last check
//   - a changed URL restarts at pending with no last check
//   - an unchanged URL keeps cur's state unless next is a probe result
//     (online/offline with a last check) from [CheckResult]
func mergeEndpoint(cur, next Endpoint, checked bool) Endpoint {
	next.URL = strings.TrimSpace(next.URL)
	if next.URL == "" {
		return Endpoint{Status: StatusDisabled}
	}
	if next.URL != cur.URL {
		return Endpoint{URL: next.URL, Status: StatusPending}
	}
	if !checked || next.LastCheck == nil {
		return cur
	}

	switch next.Status {
	case StatusOnline, StatusOffline:
		return next
	default:
		return cur
	}
}
