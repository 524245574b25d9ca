package store

import (
	"errors"
	"testing"
)

func TestFilter(t *testing.T) {
	projects := []Project{
		{ID: "1", Name: "Billing API", Description: "payments",
			Local: Endpoint{URL: "http://l1", Status: StatusOnline}, Cloud: Endpoint{Status: StatusDisabled}},
		{ID: "2", Name: "Docs", Description: "Public documentation site",
			Local: Endpoint{Status: StatusDisabled}, Cloud: Endpoint{URL: "http://c2", Status: StatusOffline}},
		{ID: "3", Name: "Worker", Description: "",
			Local: Endpoint{URL: "http://l3", Status: StatusPending}, Cloud: Endpoint{URL: "http://c3", Status: StatusOnline}},
	}

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{name: "empty query matches all", query: Query{}, want: []string{"1", "2", "3"}},
		{name: "search name case-insensitive", query: Query{Search: "billing"}, want: []string{"1"}},
		{name: "search description", query: Query{Search: "DOCUMENTATION"}, want: []string{"2"}},
		{name: "search trims whitespace", query: Query{Search: "  worker "}, want: []string{"3"}},
		{name: "search no match", query: Query{Search: "nope"}, want: []string{}},
		{name: "status online matches either endpoint", query: Query{Statuses: []Status{StatusOnline}}, want: []string{"1", "3"}},
		{name: "status offline", query: Query{Statuses: []Status{StatusOffline}}, want: []string{"2"}},
		{name: "multiple statuses", query: Query{Statuses: []Status{StatusOffline, StatusPending}}, want: []string{"2", "3"}},
		{name: "disabled endpoints never match", query: Query{Statuses: []Status{StatusDisabled}}, want: []string{}},
		{name: "search and status combined", query: Query{Search: "o", Statuses: []Status{StatusOffline}}, want: []string{"2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(projects, tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("Filter() returned %d projects, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("Filter()[%d].ID = %q, want %q", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestParseStatuses(t *testing.T) {
	got, err := ParseStatuses(" online, ,OFFLINE ")
	if err != nil {
		t.Fatalf("ParseStatuses() error = %v", err)
	}
	if len(got) != 2 || got[0] != StatusOnline || got[1] != StatusOffline {
		t.Errorf("ParseStatuses() = %v, want [online offline]", got)
	}

	if got, err := ParseStatuses(""); err != nil || len(got) != 0 {
		t.Errorf("ParseStatuses(\"\") = %v, %v, want empty, nil", got, err)
	}

	_, err = ParseStatuses("online,sleeping")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("ParseStatuses() error = %v, want ErrValidation", err)
	}
}
