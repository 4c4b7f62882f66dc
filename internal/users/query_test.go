package users

import (
	"math"
	"net/url"
	"testing"
)

func TestQueryValuesFlattensSetFieldsOnly(t *testing.T) {
	t.Parallel()

	q := Query{
		Filters:   Filters{Organization: StringPtr("Lendsqr"), Email: StringPtr("")},
		PageIndex: 2,
		PageSize:  20,
	}
	got := q.Values()

	if got.Get("organization") != "Lendsqr" {
		t.Fatalf("organization = %q", got.Get("organization"))
	}
	if got.Has("email") {
		t.Fatalf("blank email should be omitted")
	}
	if got.Get("page") != "3" {
		t.Fatalf("page = %q, want 3", got.Get("page"))
	}
	if got.Get("pageSize") != "20" {
		t.Fatalf("pageSize = %q, want 20", got.Get("pageSize"))
	}
	if got.Has("sortBy") || got.Has("sortDir") {
		t.Fatalf("unsorted query should not carry sort params: %v", got)
	}
}

func TestQueryKeyIsStable(t *testing.T) {
	t.Parallel()

	a := Query{Filters: Filters{Username: StringPtr("grace"), Status: StringPtr("active")}, PageSize: 10}
	b := Query{Filters: Filters{Status: StringPtr("active"), Username: StringPtr(" grace ")}, PageSize: 10}
	if a.Key() != b.Key() {
		t.Fatalf("equal queries produced different keys: %q vs %q", a.Key(), b.Key())
	}

	c := a
	c.PageIndex = 1
	if a.Key() == c.Key() {
		t.Fatalf("different pages produced the same key %q", a.Key())
	}

	d := a
	d.Sort = Sort{Column: SortDateJoined, Desc: true}
	if a.Key() == d.Key() {
		t.Fatalf("sorting did not change the key")
	}
}

func TestParseQueryRoundTripsValues(t *testing.T) {
	t.Parallel()

	in := Query{
		Filters:   Filters{Organization: StringPtr("Irorun"), Status: StringPtr("pending")},
		PageIndex: 4,
		PageSize:  50,
		Sort:      Sort{Column: SortEmail, Desc: true},
	}
	out, errs := ParseQuery(in.Values())
	if len(errs) != 0 {
		t.Fatalf("unexpected field errors: %v", errs)
	}
	if out.Key() != in.Key() {
		t.Fatalf("round trip key = %q, want %q", out.Key(), in.Key())
	}
}

func TestParseQueryDefaultsInvalidPaging(t *testing.T) {
	t.Parallel()

	out, _ := ParseQuery(url.Values{
		"page":     {"-3"},
		"pageSize": {"13"},
		"sortBy":   {"bvn"},
	})
	if out.PageIndex != 0 {
		t.Fatalf("PageIndex = %d, want 0", out.PageIndex)
	}
	if out.PageSize != DefaultPageSize {
		t.Fatalf("PageSize = %d, want %d", out.PageSize, DefaultPageSize)
	}
	if !out.Sort.IsZero() {
		t.Fatalf("unknown sort column accepted: %+v", out.Sort)
	}
}

func TestParseQueryCapsHugePageNumbers(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"9223372036854775807", "99999999999999999999999"} {
		out, _ := ParseQuery(url.Values{"page": {raw}, "pageSize": {"10"}})
		if out.PageIndex != MaxPageIndex {
			t.Fatalf("page=%s: PageIndex = %d, want %d", raw, out.PageIndex, MaxPageIndex)
		}
		if off := out.Offset(); off != MaxPageIndex*10 {
			t.Fatalf("page=%s: Offset = %d, want %d", raw, off, MaxPageIndex*10)
		}
	}
}

func TestOffsetNeverNegative(t *testing.T) {
	t.Parallel()

	cases := []Query{
		{PageIndex: math.MaxInt, PageSize: 10},
		{PageIndex: math.MaxInt - 1, PageSize: 100},
		{PageIndex: 5, PageSize: math.MaxInt},
		{PageIndex: -7, PageSize: 10},
	}
	for _, q := range cases {
		if off := q.Offset(); off < 0 {
			t.Fatalf("Offset(%+v) = %d", q, off)
		}
	}
	if got := (Query{PageIndex: math.MaxInt, PageSize: 10}).PageNumber(); got != MaxPageIndex+1 {
		t.Fatalf("PageNumber = %d, want %d", got, MaxPageIndex+1)
	}
	if got := (Query{PageIndex: 2, PageSize: 20}).Offset(); got != 40 {
		t.Fatalf("Offset = %d, want 40", got)
	}
}

func TestPageCount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		total int64
		size  int
		want  int
	}{
		{total: 0, size: 10, want: 0},
		{total: 1, size: 10, want: 1},
		{total: 10, size: 10, want: 1},
		{total: 11, size: 10, want: 2},
		{total: 120, size: 50, want: 3},
		{total: 5, size: 0, want: 0},
	}
	for _, tc := range cases {
		if got := PageCount(tc.total, tc.size); got != tc.want {
			t.Fatalf("PageCount(%d, %d) = %d, want %d", tc.total, tc.size, got, tc.want)
		}
	}
}

func TestNewPageNeverReturnsNilData(t *testing.T) {
	t.Parallel()

	p := NewPage(nil, 0, Query{})
	if p.Data == nil {
		t.Fatalf("Data should be an empty slice")
	}
	if p.Page != 1 || p.PageSize != DefaultPageSize || p.PageCount != 0 {
		t.Fatalf("unexpected page metadata: %+v", p)
	}
}
