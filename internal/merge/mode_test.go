package merge

import (
	"testing"

	"github.com/danmuck/mergectl/internal/store"
	"github.com/danmuck/mergectl/internal/testutil/testlog"
)

func TestClassify(t *testing.T) {
	testlog.Start(t)
	r := func(min, max int64, count int) store.Range {
		return store.Range{Min: min, Max: max, Count: count}
	}
	empty := store.Range{Empty: true}

	cases := []struct {
		name    string
		own     store.Range
		partner store.Range
		want    Mode
	}{
		{"own below partner", r(1, 4, 4), r(10, 13, 4), ModeMeFirst},
		{"own above partner", r(10, 13, 4), r(1, 4, 4), ModePartnerFirst},
		{"interleaved", r(1, 7, 4), r(2, 8, 4), ModeOverlap},
		{"own contains partner", r(1, 100, 10), r(40, 60, 3), ModeOverlap},
		{"shared endpoint low side", r(1, 5, 3), r(5, 9, 3), ModeOverlap},
		{"shared endpoint high side", r(5, 9, 3), r(1, 5, 3), ModeOverlap},
		{"identical singletons", r(5, 5, 1), r(5, 5, 1), ModeOverlap},
		{"own empty", empty, r(1, 2, 2), ModePartnerFirst},
		{"partner empty", r(1, 2, 2), empty, ModeMeFirst},
		{"both empty", empty, empty, ModePartnerFirst},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.own, tc.partner); got != tc.want {
				t.Fatalf("Classify(%+v, %+v) = %s, want %s", tc.own, tc.partner, got, tc.want)
			}
		})
	}
}

func TestModeString(t *testing.T) {
	if ModeMeFirst.String() != "ME_FIRST" ||
		ModePartnerFirst.String() != "PARTNER_FIRST" ||
		ModeOverlap.String() != "OVERLAP" ||
		ModeUnknown.String() != "UNKNOWN" {
		t.Fatalf("unexpected mode strings")
	}
}
