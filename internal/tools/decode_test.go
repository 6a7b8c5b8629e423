package tools

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tool Name
		args Args
		want Call
	}{
		{
			name: "optional notes default to empty",
			tool: BookSession,
			args: Args{"username": "alice", "service_type": "group_class", "date_time": "tomorrow at 2pm"},
			want: BookSessionCall{Username: "alice", ServiceType: "group_class", DateTime: "tomorrow at 2pm"},
		},
		{
			name: "numeric string booking id",
			tool: CancelBooking,
			args: Args{"booking_id": "12"},
			want: CancelBookingCall{BookingID: 12},
		},
		{
			name: "integral float booking id",
			tool: CancelBooking,
			args: Args{"booking_id": float64(3)},
			want: CancelBookingCall{BookingID: 3},
		},
		{
			name: "scalar becomes string",
			tool: ViewBookings,
			args: Args{"username": int64(42)},
			want: ViewBookingsCall{Username: "42"},
		},
		{
			name: "restrictions default to none",
			tool: GetNutritionAdvice,
			args: Args{"dietary_preferences": "vegan", "fitness_goals": "endurance"},
			want: GetNutritionAdviceCall{DietaryPreferences: "vegan", FitnessGoals: "endurance", Restrictions: "none"},
		},
		{
			name: "rating as int",
			tool: SubmitFeedback,
			args: Args{"username": "alice", "feedback_text": "great", "rating": int64(5)},
			want: SubmitFeedbackCall{Username: "alice", FeedbackText: "great", Rating: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Decode(tt.tool, tt.args)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.tool, got.Tool())
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		tool    Name
		args    Args
		wantErr string
	}{
		{"missing required", CheckAvailability, Args{"service_type": "group_class"}, `missing required parameter "date"`},
		{"unexpected param", ViewBookings, Args{"username": "alice", "colour": "red"}, "unexpected parameter(s) colour"},
		{"non-integer id", CancelBooking, Args{"booking_id": "abc"}, `parameter "booking_id" must be an integer`},
		{"fractional rating", SubmitFeedback, Args{"username": "a", "feedback_text": "b", "rating": 4.5}, `parameter "rating" must be an integer`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tt.tool, tt.args)
			require.Error(t, err)
			assert.True(t, IsDecodeError(err))
			assert.Contains(t, err.Error(), "missing or incorrect parameters for "+string(tt.tool))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecodeUnknownTool(t *testing.T) {
	t.Parallel()

	_, err := Decode("teleport", Args{})
	require.Error(t, err)
	assert.False(t, IsDecodeError(err))
}

func TestParseName(t *testing.T) {
	t.Parallel()

	n, ok := ParseName(" view_bookings ")
	assert.True(t, ok)
	assert.Equal(t, ViewBookings, n)

	_, ok = ParseName("delete_everything")
	assert.False(t, ok)

	for _, name := range Names {
		_, ok := Schema(name)
		assert.True(t, ok, "schema for %s", name)
	}
}

func TestResultJSONFlattensPayload(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(Success("Booking 7 has been cancelled successfully.", Cancellation{BookingID: 7}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","message":"Booking 7 has been cancelled successfully.","booking_id":7}`, string(raw))

	raw, err = json.Marshal(Failure("Booking ID %d not found.", 9))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","message":"Booking ID 9 not found."}`, string(raw))
}

func TestDescribeListsEveryTool(t *testing.T) {
	t.Parallel()

	d := Describe()
	for _, name := range Names {
		assert.Contains(t, d, string(name)+"(")
	}
	assert.Contains(t, d, `"personal_training", "group_class", or "nutrition_consult"`)
	assert.Contains(t, d, "rating: Rating from 1-5")
}
