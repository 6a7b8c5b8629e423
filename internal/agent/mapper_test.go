package agent

import (
	"testing"

	"github.com/ashureev/fitfusion/internal/tools"
	"github.com/google/go-cmp/cmp"
)

func TestMapParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		tool         tools.Name
		raw          tools.Args
		user         string
		want         tools.Args
		wantOverflow []any
	}{
		{
			name: "positional follow the schema order",
			tool: tools.BookSession,
			raw: tools.Args{
				"param_0": "alice", "param_1": "yoga_class", "param_2": "2026-06-10 10:00", "param_3": "mat",
			},
			user: "alice",
			want: tools.Args{
				"username": "alice", "service_type": "yoga_class", "date_time": "2026-06-10 10:00", "notes": "mat",
			},
		},
		{
			name: "named values override positional ones",
			tool: tools.ViewBookings,
			raw:  tools.Args{"param_0": "bob", "username": "alice"},
			user: "carol",
			want: tools.Args{"username": "alice"},
		},
		{
			name: "username is filled from the signed-in member",
			tool: tools.ViewBookings,
			raw:  tools.Args{},
			user: "alice",
			want: tools.Args{"username": "alice"},
		},
		{
			name: "no username without a signed-in member",
			tool: tools.ViewBookings,
			raw:  tools.Args{},
			want: tools.Args{},
		},
		{
			name: "username is not added to tools without it",
			tool: tools.CancelBooking,
			raw:  tools.Args{"param_0": int64(3)},
			user: "alice",
			want: tools.Args{"booking_id": int64(3)},
		},
		{
			name:         "extra positional values overflow",
			tool:         tools.CancelBooking,
			raw:          tools.Args{"param_0": int64(1), "param_1": int64(2), "param_2": "x"},
			want:         tools.Args{"booking_id": int64(1)},
			wantOverflow: []any{int64(2), "x"},
		},
		{
			name: "positional indexes sort numerically",
			tool: tools.GetFitnessPlan,
			raw:  tools.Args{"param_10": "w", "param_0": "x", "param_2": "z"},
			want: tools.Args{"fitness_level": "x", "goals": "z", "equipment_available": "w"},
		},
		{
			name: "unknown tools pass through",
			tool: tools.Name("dance_party"),
			raw:  tools.Args{"param_0": "now"},
			user: "alice",
			want: tools.Args{"param_0": "now"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, overflow := MapParams(tt.tool, tt.raw, tt.user)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("MapParams() mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantOverflow, overflow); diff != "" {
				t.Errorf("MapParams() overflow mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMapParamsIsDeterministic(t *testing.T) {
	t.Parallel()

	raw := tools.Args{"param_3": int64(45), "param_1": "muscle_gain", "param_0": "advanced", "param_2": "full_gym"}
	first, _ := MapParams(tools.GetFitnessPlan, raw, "alice")
	for range 20 {
		again, _ := MapParams(tools.GetFitnessPlan, raw, "alice")
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("MapParams() not deterministic (-first +again):\n%s", diff)
		}
	}
	if _, ok := raw["fitness_level"]; ok {
		t.Fatal("MapParams() modified its input")
	}
}
