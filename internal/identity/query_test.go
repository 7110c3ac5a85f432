package identity

import (
	"sort"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
)

func named(names ...string) []*User {
	out := make([]*User, 0, len(names))
	for _, n := range names {
		out = append(out, &User{Subject: n, Username: n})
	}
	return out
}

func username(u *User) string { return u.Username }

func TestPageEdgeCases(t *testing.T) {
	users := named("carol", "alice", "bob", "dave")

	cases := []struct {
		name      string
		filter    string
		start     int
		count     int
		wantTotal int
		wantNames []string
	}{
		{"all", "", 0, -1, 4, []string{"alice", "bob", "carol", "dave"}},
		{"first page", "", 0, 2, 4, []string{"alice", "bob"}},
		{"second page", "", 2, 2, 4, []string{"carol", "dave"}},
		{"past end", "", 10, 2, 4, nil},
		{"negative start", "", -5, 2, 4, []string{"alice", "bob"}},
		{"negative count", "", 1, -1, 4, []string{"bob", "carol", "dave"}},
		{"filter", "a", 0, -1, 3, []string{"alice", "carol", "dave"}},
		{"filter case insensitive", "ALI", 0, 10, 1, []string{"alice"}},
		{"filter no match", "zzz", 0, 10, 0, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Page(users, username, tc.filter, tc.start, tc.count)
			if res.Total != tc.wantTotal {
				t.Fatalf("total=%d, want %d", res.Total, tc.wantTotal)
			}
			if res.Start != tc.start || res.Count != tc.count || res.Filter != tc.filter {
				t.Fatalf("request echo mismatch: %+v", res)
			}
			if len(res.Items) != len(tc.wantNames) {
				t.Fatalf("got %d items, want %d", len(res.Items), len(tc.wantNames))
			}
			for i, want := range tc.wantNames {
				if res.Items[i].Username != want {
					t.Fatalf("item %d = %q, want %q", i, res.Items[i].Username, want)
				}
			}
		})
	}
}

// Every page must be a contiguous slice of the full filtered listing.
func TestPageIsContiguousSubsequence(t *testing.T) {
	faker := gofakeit.New(7)
	users := make([]*User, 0, 200)
	seen := map[string]bool{}
	for len(users) < 200 {
		name := faker.Username()
		if seen[name] {
			continue
		}
		seen[name] = true
		users = append(users, &User{Subject: name, Username: name})
	}

	for _, filter := range []string{"", "a", "er"} {
		full := Page(users, username, filter, 0, -1)
		if !sort.SliceIsSorted(full.Items, func(i, j int) bool {
			return full.Items[i].Username < full.Items[j].Username
		}) {
			t.Fatalf("full listing not name-ordered for filter %q", filter)
		}
		for start := -3; start < full.Total+3; start += 7 {
			for _, count := range []int{-1, 0, 1, 13, full.Total + 5} {
				page := Page(users, username, filter, start, count)
				if page.Total != full.Total {
					t.Fatalf("total changed under pagination: %d vs %d", page.Total, full.Total)
				}
				eff := start
				if eff < 0 {
					eff = 0
				}
				wantLen := full.Total - eff
				if wantLen < 0 {
					wantLen = 0
				}
				if count >= 0 && count < wantLen {
					wantLen = count
				}
				if len(page.Items) != wantLen {
					t.Fatalf("filter=%q start=%d count=%d: got %d items, want %d",
						filter, start, count, len(page.Items), wantLen)
				}
				for i, it := range page.Items {
					if it.Username != full.Items[eff+i].Username {
						t.Fatalf("page not contiguous at offset %d", eff+i)
					}
				}
			}
		}
	}
}
