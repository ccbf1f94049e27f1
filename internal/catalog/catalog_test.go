package catalog

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const errExpectedNotFound = "Expected ErrNotFound, got %v"

func TestStatuses(t *testing.T) {
	t.Run("Get round-trips every canonical entry", func(t *testing.T) {
		for _, want := range Statuses.All() {
			got, err := Statuses.Get(want.Value)
			if err != nil {
				t.Fatalf("Unexpected error for %q: %v", want.Value, err)
			}
			if got != want {
				t.Errorf("Expected %+v, got %+v", want, got)
			}
		}
	})

	t.Run("Unknown value is not found", func(t *testing.T) {
		_, err := Statuses.Get("not-a-real-status")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf(errExpectedNotFound, err)
		}
		if !strings.Contains(err.Error(), "not-a-real-status") {
			t.Errorf("Expected error to name the value, got %q", err.Error())
		}
	})

	t.Run("All is fixed and excludes deleted", func(t *testing.T) {
		want := []string{"open", "planned", "started", "completed", "duplicate", "declined"}
		if got := Statuses.Values(); !reflect.DeepEqual(got, want) {
			t.Errorf("Expected %v, got %v", want, got)
		}
		for _, e := range Statuses.All() {
			if e.Value == StatusDeleted.Value {
				t.Error("Expected deleted to be absent from All")
			}
		}
	})

	t.Run("Deleted still decodes", func(t *testing.T) {
		got, err := Statuses.Get("deleted")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !got.Closed || got.Show || got.Filterable {
			t.Errorf("Unexpected facets for deleted: %+v", got)
		}
	})

	t.Run("Facets", func(t *testing.T) {
		testCases := []struct {
			entry                    Entry
			show, closed, filterable bool
		}{
			{StatusOpen, false, false, false},
			{StatusPlanned, true, false, true},
			{StatusStarted, true, false, true},
			{StatusCompleted, true, true, true},
			{StatusDeclined, true, true, true},
			{StatusDuplicate, true, true, false},
		}

		for _, tc := range testCases {
			e := Statuses.MustGet(tc.entry.Value)
			if e.Show != tc.show || e.Closed != tc.closed || e.Filterable != tc.filterable {
				t.Errorf("%s: expected show=%v closed=%v filterable=%v, got %+v",
					tc.entry.Title, tc.show, tc.closed, tc.filterable, e)
			}
		}
	})

	t.Run("Filterable", func(t *testing.T) {
		want := []string{"planned", "started", "completed", "declined"}
		var got []string
		for _, e := range Statuses.Filterable() {
			got = append(got, e.Value)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Expected %v, got %v", want, got)
		}
	})

	t.Run("All returns a copy", func(t *testing.T) {
		all := Statuses.All()
		all[0].Title = "Changed"
		if Statuses.All()[0].Title != "Open" {
			t.Error("Expected registry to be unaffected by caller mutation")
		}
	})
}

func TestModules(t *testing.T) {
	t.Run("All lists the module entries", func(t *testing.T) {
		want := []string{"projects", "estimates", "invoices", "timecards", "reports", "settings", "dashboard"}
		if got := Modules.Values(); !reflect.DeepEqual(got, want) {
			t.Errorf("Expected %v, got %v", want, got)
		}
	})

	t.Run("Defaults", func(t *testing.T) {
		for _, e := range Modules.All() {
			if !e.Show || e.Closed || !e.Filterable {
				t.Errorf("Unexpected facets for %s: %+v", e.Title, e)
			}
		}
	})

	t.Run("Status values do not decode as modules", func(t *testing.T) {
		for _, v := range Statuses.Values() {
			if _, err := Modules.Get(v); !errors.Is(err, ErrNotFound) {
				t.Errorf(errExpectedNotFound, err)
			}
		}
	})
}

func TestMustGetPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Expected MustGet to panic")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected panic with ErrNotFound, got %v", r)
		}
	}()

	Modules.MustGet("open")
}

func TestNewRegistry(t *testing.T) {
	a := Entry{Title: "A", Value: "a"}
	b := Entry{Title: "B", Value: "b"}

	testCases := []struct {
		name        string
		entries     []Entry
		canonical   []string
		expectError bool
	}{
		{name: "Valid", entries: []Entry{a, b}, canonical: []string{"b", "a"}},
		{name: "Duplicate value", entries: []Entry{a, a}, canonical: nil, expectError: true},
		{name: "Empty value", entries: []Entry{{Title: "Empty"}}, expectError: true},
		{name: "Unknown canonical value", entries: []Entry{a}, canonical: []string{"b"}, expectError: true},
		{name: "Canonical listed twice", entries: []Entry{a}, canonical: []string{"a", "a"}, expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := NewRegistry("test", tc.entries, tc.canonical)
			if tc.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got := r.Values(); !reflect.DeepEqual(got, tc.canonical) {
				t.Errorf("Expected order %v, got %v", tc.canonical, got)
			}
		})
	}
}
