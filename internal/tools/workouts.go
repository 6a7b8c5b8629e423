package tools

var (
	fitnessLevels = []string{"beginner", "intermediate", "advanced"}
	workoutGoals  = []string{"weight_loss", "muscle_gain", "endurance", "general_fitness"}
	equipment     = []string{"none", "basic", "full_gym"}
	durations     = []string{"30min", "45min", "60min"}
)

// WorkoutPlan is a structured session.
type WorkoutPlan struct {
	WarmUp      []string `json:"warm_up"`
	MainWorkout []string `json:"main_workout"`
	CoolDown    []string `json:"cool_down"`
	Notes       string   `json:"notes"`
	MainMinutes int      `json:"main_minutes"`
}

// FitnessPlan is the get_fitness_plan payload.
type FitnessPlan struct {
	FitnessLevel string      `json:"fitness_level"`
	Goals        string      `json:"goals"`
	Equipment    string      `json:"equipment"`
	Duration     string      `json:"duration"`
	WorkoutPlan  WorkoutPlan `json:"workout_plan"`
}

var warmUp = []string{
	"5 minutes light cardio (jogging in place, jumping jacks)",
	"Dynamic stretching (arm circles, leg swings, torso twists)",
}

var coolDown = []string{
	"5 minutes light walking or slow cycling",
	"Static stretching (hold each for 30 seconds):",
	"- Hamstring stretch",
	"- Quad stretch",
	"- Shoulder stretch",
	"- Chest stretch",
	"- Lower back stretch",
}

// circuit is used for general_fitness regardless of equipment.
var circuit = []string{
	"Circuit training (3 rounds):",
	"- Squats: 15 reps",
	"- Push-ups: 12 reps",
	"- Lunges: 10 per leg",
	"- Plank: 30 seconds",
	"- Jumping jacks: 30 seconds",
}

var mainWorkouts = map[string]map[string][]string{
	"weight_loss": {
		"none": {
			"Burpees: 3 sets of 10-15 reps",
			"Mountain climbers: 3 sets of 20 reps",
			"Jump squats: 3 sets of 15 reps",
			"High knees: 3 sets of 30 seconds",
			"Plank: 3 sets of 30-60 seconds",
		},
		"basic": {
			"Dumbbell thrusters: 3 sets of 12 reps",
			"Renegade rows: 3 sets of 10 reps per arm",
			"Dumbbell swings: 3 sets of 15 reps",
			"Walking lunges with dumbbells: 3 sets of 12 per leg",
			"Russian twists: 3 sets of 20 reps",
		},
		"full_gym": {
			"Treadmill intervals: 20 minutes (1 min fast, 2 min moderate)",
			"Rowing machine: 3 sets of 500m",
			"Battle ropes: 3 sets of 30 seconds",
			"Box jumps: 3 sets of 12 reps",
			"Kettlebell swings: 3 sets of 20 reps",
		},
	},
	"muscle_gain": {
		"none": {
			"Push-ups: 4 sets of 12-15 reps",
			"Pike push-ups: 3 sets of 10 reps",
			"Bulgarian split squats: 4 sets of 12 per leg",
			"Diamond push-ups: 3 sets of 10 reps",
			"Plank to push-up: 3 sets of 10 reps",
		},
		"basic": {
			"Dumbbell bench press: 4 sets of 8-12 reps",
			"Dumbbell rows: 4 sets of 10 reps per arm",
			"Goblet squats: 4 sets of 12 reps",
			"Dumbbell shoulder press: 3 sets of 10 reps",
			"Bicep curls: 3 sets of 12 reps",
		},
		"full_gym": {
			"Barbell bench press: 4 sets of 8-10 reps",
			"Barbell squats: 4 sets of 8-10 reps",
			"Deadlifts: 3 sets of 6-8 reps",
			"Pull-ups: 3 sets to failure",
			"Dips: 3 sets of 10-12 reps",
		},
	},
	"endurance": {
		"none": {
			"Running: 20-30 minutes steady pace",
			"Bodyweight squats: 3 sets of 25 reps",
			"Push-ups: 3 sets of 20 reps",
			"Lunges: 3 sets of 20 per leg",
			"Plank hold: 3 sets of 60 seconds",
		},
		"basic": {
			"Dumbbell step-ups: 3 sets of 20 per leg",
			"Farmer's walk: 3 sets of 1 minute",
			"Dumbbell clean and press: 3 sets of 15 reps",
			"Dumbbell lunges: 3 sets of 20 per leg",
			"Dumbbell swings: 3 sets of 25 reps",
		},
		"full_gym": {
			"Elliptical: 25 minutes moderate intensity",
			"Rowing machine: 4 sets of 1000m",
			"Cycling: 20 minutes intervals",
			"Jump rope: 5 sets of 2 minutes",
			"Stair climber: 15 minutes",
		},
	},
}

var levelNotes = map[string]string{
	"beginner":     "Start with lighter weights and focus on form. Rest 60-90 seconds between sets.",
	"intermediate": "Challenge yourself with moderate weights. Rest 45-60 seconds between sets.",
	"advanced":     "Use heavy weights with proper form. Rest 30-45 seconds between sets for intensity.",
}

// warmUpCoolDownMinutes is the combined length of the warm-up and cool-down.
const warmUpCoolDownMinutes = 10

var sessionMinutes = map[string]int{"30min": 30, "45min": 45, "60min": 60}

func buildWorkout(level, goal, equip, duration string) WorkoutPlan {
	main := circuit
	if byEquip, ok := mainWorkouts[goal]; ok {
		main = byEquip[equip]
	}
	return WorkoutPlan{
		WarmUp:      warmUp,
		MainWorkout: main,
		CoolDown:    coolDown,
		Notes:       levelNotes[level],
		MainMinutes: sessionMinutes[duration] - warmUpCoolDownMinutes,
	}
}
