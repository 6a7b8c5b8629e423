package tools

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// DecodeError reports arguments that do not fit a tool's parameters.
type DecodeError struct {
	Tool   Name
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("missing or incorrect parameters for %s: %s", e.Tool, e.Reason)
}

// IsDecodeError reports whether err is a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

type decoder struct {
	tool Name
	args Args
	err  error
}

func (d *decoder) fail(format string, a ...any) {
	if d.err == nil {
		d.err = &DecodeError{Tool: d.tool, Reason: fmt.Sprintf(format, a...)}
	}
}

func (d *decoder) str(key string, required bool, fallback string) string {
	v, ok := d.args[key]
	if !ok {
		if required {
			d.fail("missing required parameter %q", key)
		}
		return fallback
	}
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		d.fail("parameter %q has unsupported type %T", key, v)
		return ""
	}
}

func (d *decoder) integer(key string) int64 {
	v, ok := d.args[key]
	if !ok {
		d.fail("missing required parameter %q", key)
		return 0
	}
	switch x := v.(type) {
	case int64:
		return x
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return int64(x)
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return n
		}
	}
	d.fail("parameter %q must be an integer, got %v", key, v)
	return 0
}

// Decode converts mapped arguments into a typed Call. Unknown, missing or
// ill-typed parameters yield a *DecodeError.
func Decode(name Name, args Args) (Call, error) {
	schema, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}

	var unexpected []string
	for k := range args {
		if !slices.Contains(schema, k) {
			unexpected = append(unexpected, k)
		}
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		return nil, &DecodeError{Tool: name, Reason: "unexpected parameter(s) " + strings.Join(unexpected, ", ")}
	}

	d := &decoder{tool: name, args: args}
	var call Call
	switch name {
	case CheckAvailability:
		call = CheckAvailabilityCall{
			ServiceType: d.str("service_type", true, ""),
			Date:        d.str("date", true, ""),
		}
	case BookSession:
		call = BookSessionCall{
			Username:    d.str("username", true, ""),
			ServiceType: d.str("service_type", true, ""),
			DateTime:    d.str("date_time", true, ""),
			Notes:       d.str("notes", false, ""),
		}
	case ViewBookings:
		call = ViewBookingsCall{Username: d.str("username", true, "")}
	case CancelBooking:
		call = CancelBookingCall{BookingID: d.integer("booking_id")}
	case SubmitFeedback:
		call = SubmitFeedbackCall{
			Username:     d.str("username", true, ""),
			FeedbackText: d.str("feedback_text", true, ""),
			Rating:       int(d.integer("rating")),
		}
	case GetFitnessPlan:
		call = GetFitnessPlanCall{
			FitnessLevel:       d.str("fitness_level", true, ""),
			Goals:              d.str("goals", true, ""),
			EquipmentAvailable: d.str("equipment_available", true, ""),
			Duration:           d.str("duration", true, ""),
		}
	case GetNutritionAdvice:
		call = GetNutritionAdviceCall{
			DietaryPreferences: d.str("dietary_preferences", true, ""),
			FitnessGoals:       d.str("fitness_goals", true, ""),
			Restrictions:       d.str("restrictions", false, "none"),
		}
	case GetUserContext:
		call = GetUserContextCall{Username: d.str("username", true, "")}
	}

	if d.err != nil {
		return nil, d.err
	}
	return call, nil
}
