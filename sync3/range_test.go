package sync3

import "testing"

func TestRangeAccessors(t *testing.T) {
	r := Range{5, 9}
	if r.Start() != 5 {
		t.Errorf("Start() = %d want 5", r.Start())
	}
	if r.End() != 9 {
		t.Errorf("End() = %d want 9", r.End())
	}
	if got, want := r.String(), "[5, 9]"; got != want {
		t.Errorf("String() = %q want %q", got, want)
	}
}

func TestRangeValid(t *testing.T) {
	cases := []struct {
		r    Range
		want bool
	}{
		{Range{0, 9}, true},
		{Range{0, 0}, true},
		{Range{3, 3}, true},
		{Range{5, 2}, false},
		{Range{-1, 9}, false},
	}
	for _, tc := range cases {
		if got := tc.r.Valid(); got != tc.want {
			t.Errorf("%v.Valid() = %v want %v", tc.r, got, tc.want)
		}
	}
}

func TestClampEnd(t *testing.T) {
	i := func(n int64) *int64 { return &n }
	cases := []struct {
		name       string
		end        int64
		total, cap_ *int64
		want       int64
	}{
		{"no bounds", 99, nil, nil, 99},
		{"total bounds tighter", 99, i(50), nil, 49},
		{"cap bounds tighter", 99, i(200), i(40), 39},
		{"total tighter than cap", 99, i(10), i(40), 9},
		{"negative clamps to zero", -5, nil, nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := clampEnd(tc.end, tc.total, tc.cap_); got != tc.want {
				t.Errorf("clampEnd(%d, %v, %v) = %d want %d", tc.end, tc.total, tc.cap_, got, tc.want)
			}
		})
	}
}

func TestEffectiveCap(t *testing.T) {
	i := func(n int64) *int64 { return &n }

	if got := effectiveCap(i(40), i(200)); got == nil || *got != 40 {
		t.Errorf("effectiveCap prefers max_rooms_to_fetch, got %v", got)
	}
	if got := effectiveCap(nil, i(200)); got == nil || *got != 200 {
		t.Errorf("effectiveCap falls back to total, got %v", got)
	}
	if got := effectiveCap(nil, nil); got != nil {
		t.Errorf("effectiveCap with nothing known = %v want nil", got)
	}
}
