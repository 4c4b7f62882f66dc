package users

import (
	"net/url"
	"testing"
	"time"
)

func TestGenerateMockIsDeterministic(t *testing.T) {
	t.Parallel()

	a := GenerateMock(25, 7)
	b := GenerateMock(25, 7)
	if len(a) != 25 {
		t.Fatalf("len = %d, want 25", len(a))
	}
	for i := range a {
		if a[i].Username != b[i].Username || a[i].Status != b[i].Status || !a[i].DateJoined.Equal(b[i].DateJoined) {
			t.Fatalf("record %d differs between runs with the same seed", i)
		}
	}
}

func TestGenerateMockRecordsAreValid(t *testing.T) {
	t.Parallel()

	from := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seen := map[string]bool{}
	for _, d := range GenerateMock(120, 1) {
		if seen[d.ID] {
			t.Fatalf("duplicate id %s", d.ID)
		}
		seen[d.ID] = true

		if _, ok := ParseStatus(string(d.Status)); !ok {
			t.Fatalf("invalid status %q", d.Status)
		}
		if d.DateJoined.Before(from) || !d.DateJoined.Before(to) {
			t.Fatalf("date joined %v outside 2019-2024", d.DateJoined)
		}
		filters, errs := ParseFilterForm(url.Values{
			"email":       {d.Email},
			"phoneNumber": {d.PhoneNumber},
		})
		if len(errs) != 0 {
			t.Fatalf("generated record %s fails filter validation: %v", d.ID, errs)
		}
		if filters.Value(FieldEmail) != d.Email {
			t.Fatalf("email = %q, want %q", filters.Value(FieldEmail), d.Email)
		}
	}
}

func TestFormatDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   time.Time
		want string
	}{
		{in: time.Date(2020, time.May, 15, 10, 0, 0, 0, time.UTC), want: "May 15, 2020 10:00 AM"},
		{in: time.Date(2023, time.December, 1, 0, 5, 0, 0, time.UTC), want: "Dec 1, 2023 12:05 AM"},
		{in: time.Date(2021, time.March, 9, 15, 30, 0, 0, time.UTC), want: "Mar 9, 2021 3:30 PM"},
	}
	for _, tc := range cases {
		if got := FormatDate(tc.in); got != tc.want {
			t.Fatalf("FormatDate(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
