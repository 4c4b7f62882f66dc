package users

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFiltersWithBlankClearsField(t *testing.T) {
	t.Parallel()

	f := Filters{}.With(FieldUsername, StringPtr("grace"))
	if got := f.Value(FieldUsername); got != "grace" {
		t.Fatalf("Value(username) = %q, want %q", got, "grace")
	}

	for _, value := range []*string{nil, StringPtr(""), StringPtr("   ")} {
		cleared := f.With(FieldUsername, value)
		if cleared.Username != nil {
			t.Fatalf("With(username, %v) left %q set", value, *cleared.Username)
		}
		if f.Username == nil {
			t.Fatalf("With mutated the receiver")
		}
	}
}

func TestFiltersCloneDoesNotSharePointers(t *testing.T) {
	t.Parallel()

	orig := Filters{Email: StringPtr("a@b.co")}
	clone := orig.Clone()
	*clone.Email = "changed@b.co"
	if *orig.Email != "a@b.co" {
		t.Fatalf("clone shares pointer with original: %q", *orig.Email)
	}
}

func TestFiltersNormalizeAndEqual(t *testing.T) {
	t.Parallel()

	a := Filters{Organization: StringPtr(" Lendsqr "), Status: StringPtr("")}
	b := Filters{Organization: StringPtr("Lendsqr")}
	if !a.Equal(b) {
		t.Fatalf("expected %+v to equal %+v", a, b)
	}

	norm := a.Normalize()
	if norm.Status != nil {
		t.Fatalf("Normalize kept blank status")
	}
	if got := norm.Value(FieldOrganization); got != "Lendsqr" {
		t.Fatalf("Normalize organization = %q", got)
	}

	if b.Equal(Filters{Organization: StringPtr("Irorun")}) {
		t.Fatalf("different values compared equal")
	}
}

func TestFiltersActiveAndIsEmpty(t *testing.T) {
	t.Parallel()

	if !(Filters{Date: StringPtr(" ")}).IsEmpty() {
		t.Fatalf("blank-only filters should be empty")
	}

	f := Filters{Status: StringPtr("active"), Organization: StringPtr("Irorun")}
	want := []Field{FieldOrganization, FieldStatus}
	if diff := cmp.Diff(want, f.Active()); diff != "" {
		t.Fatalf("Active() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseField(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want Field
		ok   bool
	}{
		{in: "phoneNumber", want: FieldPhoneNumber, ok: true},
		{in: " PHONENUMBER ", want: FieldPhoneNumber, ok: true},
		{in: "date", want: FieldDate, ok: true},
		{in: "bvn", ok: false},
	}
	for _, tc := range cases {
		got, ok := ParseField(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseField(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
