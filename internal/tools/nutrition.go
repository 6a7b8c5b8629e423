package tools

import "strings"

var (
	diets          = []string{"omnivore", "vegetarian", "vegan", "keto", "paleo"}
	nutritionGoals = []string{"weight_loss", "muscle_gain", "endurance", "maintenance"}
)

const hydrationAdvice = "Drink at least 8-10 glasses of water daily, more if exercising intensely"

// MealPlan lists suggestions per meal plus a macro target.
type MealPlan struct {
	Breakfast []string `json:"breakfast"`
	Lunch     []string `json:"lunch"`
	Dinner    []string `json:"dinner"`
	Snacks    []string `json:"snacks"`
	Macros    string   `json:"macros"`
}

// NutritionAdvice is the get_nutrition_advice payload.
type NutritionAdvice struct {
	DietaryPreferences string   `json:"dietary_preferences"`
	FitnessGoals       string   `json:"fitness_goals"`
	Restrictions       string   `json:"restrictions"`
	MealPlan           MealPlan `json:"meal_plan"`
	Hydration          string   `json:"hydration"`
	Supplements        []string `json:"supplements"`
}

type meals struct {
	breakfast, lunch, dinner, snacks []string
}

// goalMeals covers diets whose menu depends on the goal. Endurance and
// maintenance share the "balanced" menu.
var goalMeals = map[string]map[string]meals{
	"omnivore": {
		"weight_loss": {
			breakfast: []string{"Oatmeal with berries and almond butter", "Greek yogurt with nuts and honey", "Veggie omelet with whole grain toast"},
			lunch:     []string{"Grilled chicken salad with olive oil", "Turkey and avocado wrap", "Quinoa bowl with roasted vegetables"},
			dinner:    []string{"Baked salmon with steamed broccoli", "Lean beef stir-fry with vegetables", "Grilled chicken breast with sweet potato"},
			snacks:    []string{"Apple slices with peanut butter", "Carrot sticks with hummus", "Mixed nuts (1 oz)"},
		},
		"muscle_gain": {
			breakfast: []string{"Scrambled eggs with turkey bacon and avocado", "Protein pancakes with banana", "Greek yogurt parfait with granola"},
			lunch:     []string{"Chicken breast with brown rice and vegetables", "Beef and quinoa bowl", "Tuna sandwich on whole grain bread"},
			dinner:    []string{"Steak with sweet potato and asparagus", "Salmon with pasta and vegetables", "Chicken thighs with rice and beans"},
			snacks:    []string{"Protein shake", "Cottage cheese with fruit", "Hard-boiled eggs"},
		},
		"balanced": {
			breakfast: []string{"Whole grain toast with eggs and fruit", "Overnight oats with banana", "Greek yogurt with granola"},
			lunch:     []string{"Chicken and rice bowl with vegetables", "Turkey sandwich with side salad", "Pasta salad with tuna"},
			dinner:    []string{"Salmon with quinoa and green beans", "Chicken stir-fry with noodles", "Lean beef with potatoes and vegetables"},
			snacks:    []string{"Banana with peanut butter", "Rice cakes with honey", "Trail mix"},
		},
	},
	"vegetarian": {
		"weight_loss": {
			breakfast: []string{"Smoothie bowl with chia seeds", "Whole grain toast with avocado", "Greek yogurt with berries"},
			lunch:     []string{"Lentil soup with side salad", "Veggie burger with side salad", "Chickpea salad wrap"},
			dinner:    []string{"Tofu stir-fry with vegetables", "Eggplant parmesan with side salad", "Bean chili with side salad"},
			snacks:    []string{"Hummus with vegetables", "Trail mix", "Fruit salad"},
		},
		"muscle_gain": {
			breakfast: []string{"Protein smoothie with banana and spinach", "Scrambled eggs with cheese and toast", "Protein oatmeal with nuts"},
			lunch:     []string{"Quinoa and black bean bowl", "Veggie wrap with extra hummus", "Lentil curry with rice"},
			dinner:    []string{"Tofu and tempeh stir-fry with rice", "Vegetarian lasagna", "Bean burrito bowl"},
			snacks:    []string{"Protein bar", "Nut butter on rice cakes", "Edamame"},
		},
		"balanced": {
			breakfast: []string{"Oatmeal with fruit and yogurt", "Egg and vegetable frittata", "Whole grain waffles with berries"},
			lunch:     []string{"Falafel bowl with tabbouleh", "Caprese sandwich on whole grain bread", "Vegetable and bean soup"},
			dinner:    []string{"Vegetable pasta primavera", "Paneer tikka with rice", "Black bean tacos"},
			snacks:    []string{"Cheese and crackers", "Fruit with yogurt dip", "Roasted chickpeas"},
		},
	},
	"vegan": {
		"weight_loss": {
			breakfast: []string{"Oatmeal with plant-based milk and berries", "Smoothie with plant protein", "Whole grain toast with avocado"},
			lunch:     []string{"Buddha bowl with tahini dressing", "Lentil soup", "Mixed greens salad with chickpeas"},
			dinner:    []string{"Tofu stir-fry with brown rice", "Vegetable curry with quinoa", "Stuffed bell peppers"},
			snacks:    []string{"Fresh fruit", "Vegetables with guacamole", "Roasted chickpeas"},
		},
		"muscle_gain": {
			breakfast: []string{"Tofu scramble with nutritional yeast", "Protein oatmeal with hemp seeds", "Smoothie with vegan protein powder"},
			lunch:     []string{"Tempeh sandwich with avocado", "Quinoa and bean bowl", "Lentil and rice curry"},
			dinner:    []string{"Seitan stir-fry with vegetables", "Black bean and sweet potato burrito", "Chickpea pasta with marinara"},
			snacks:    []string{"Plant-based protein shake", "Nut butter on whole grain crackers", "Trail mix with dried fruit"},
		},
		"balanced": {
			breakfast: []string{"Peanut butter toast with banana", "Chia pudding with mango", "Granola with oat milk"},
			lunch:     []string{"Hummus and roasted vegetable wrap", "Black bean soup with cornbread", "Soba noodle salad with edamame"},
			dinner:    []string{"Chickpea curry with brown rice", "Lentil bolognese with pasta", "Tofu and vegetable skewers with couscous"},
			snacks:    []string{"Dates with almonds", "Apple with almond butter", "Oat energy balls"},
		},
	},
}

// fixedMeals covers diets whose menu does not vary by goal.
var fixedMeals = map[string]meals{
	"keto": {
		breakfast: []string{"Bacon and eggs with avocado", "Keto smoothie with MCT oil", "Bulletproof coffee with cheese omelet"},
		lunch:     []string{"Caesar salad with grilled chicken (no croutons)", "Bunless burger with cheese and bacon", "Zucchini noodles with pesto and chicken"},
		dinner:    []string{"Ribeye steak with butter and asparagus", "Salmon with cauliflower rice", "Chicken thighs with broccoli and cheese sauce"},
		snacks:    []string{"Cheese cubes", "Pepperoni slices", "Macadamia nuts", "Celery with cream cheese"},
	},
	"paleo": {
		breakfast: []string{"Scrambled eggs with vegetables", "Sweet potato hash with ground beef", "Almond flour pancakes with berries"},
		lunch:     []string{"Grilled chicken with mixed greens", "Tuna salad over lettuce", "Beef and vegetable soup"},
		dinner:    []string{"Grass-fed steak with roasted vegetables", "Baked salmon with asparagus", "Chicken stir-fry with cauliflower rice"},
		snacks:    []string{"Mixed nuts", "Fresh fruit", "Hard-boiled eggs", "Vegetable sticks with guacamole"},
	},
}

var macroTargets = map[string]string{
	"weight_loss": "Aim for slight caloric deficit: 40% protein, 30% carbs, 30% fats",
	"muscle_gain": "Aim for caloric surplus: 30% protein, 40% carbs, 30% fats",
	"endurance":   "Balanced macros: 25% protein, 50% carbs, 25% fats",
	"maintenance": "Balanced maintenance: 30% protein, 40% carbs, 30% fats",
}

var baseSupplements = []string{"Multivitamin", "Vitamin D", "Omega-3 fatty acids"}

var goalSupplements = map[string][]string{
	"muscle_gain": {"Whey/plant protein powder", "Creatine monohydrate", "BCAAs"},
	"weight_loss": {"Green tea extract", "Fiber supplement", "Protein powder"},
	"endurance":   {"Electrolyte supplements", "B-complex vitamins", "Iron (if deficient)"},
}

func buildMealPlan(diet, goal, restrictions string) MealPlan {
	m, ok := fixedMeals[diet]
	if !ok {
		key := goal
		if key == "endurance" || key == "maintenance" {
			key = "balanced"
		}
		m = goalMeals[diet][key]
	}

	avoid := restrictionTerms(restrictions)
	return MealPlan{
		Breakfast: withoutRestricted(m.breakfast, avoid),
		Lunch:     withoutRestricted(m.lunch, avoid),
		Dinner:    withoutRestricted(m.dinner, avoid),
		Snacks:    withoutRestricted(m.snacks, avoid),
		Macros:    macroTargets[goal],
	}
}

func supplementsFor(goal string) []string {
	out := append([]string{}, baseSupplements...)
	return append(out, goalSupplements[goal]...)
}

// restrictionTerms splits a comma-separated restriction list. "none" means
// no restrictions.
func restrictionTerms(restrictions string) []string {
	var terms []string
	for _, part := range strings.Split(restrictions, ",") {
		term := strings.ToLower(strings.TrimSpace(part))
		if term == "" || term == "none" {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}

// withoutRestricted drops suggestions naming a restricted ingredient. A
// plural restriction ("nuts") also matches its singular form.
func withoutRestricted(items, avoid []string) []string {
	out := make([]string, 0, len(items))
outer:
	for _, item := range items {
		lower := strings.ToLower(item)
		for _, term := range avoid {
			if strings.Contains(lower, term) {
				continue outer
			}
			if singular := strings.TrimSuffix(term, "s"); len(singular) >= 3 && strings.Contains(lower, singular) {
				continue outer
			}
		}
		out = append(out, item)
	}
	return out
}
