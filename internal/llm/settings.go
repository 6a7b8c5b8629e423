package llm

import "slices"

// Settings are the generation parameters for one model.
type Settings struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

const (
	DefaultModel       = "gemini-2.0-flash-exp"
	DefaultTemperature = 0.7
	DefaultTopP        = 0.95
	DefaultMaxTokens   = 2048
)

// DefaultSettings returns the stock generation parameters.
func DefaultSettings() Settings {
	return Settings{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,
		MaxTokens:   DefaultMaxTokens,
	}
}

// Normalize clamps temperature and top_p into [0, 1] and fills empty fields
// from the defaults.
func (s Settings) Normalize() Settings {
	if s.Model == "" {
		s.Model = DefaultModel
	}
	s.Temperature = clamp01(s.Temperature)
	s.TopP = clamp01(s.TopP)
	if s.MaxTokens <= 0 {
		s.MaxTokens = DefaultMaxTokens
	}
	return s
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}

// ModelInfo describes a selectable model.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Catalogue lists the models offered in the settings UI.
var Catalogue = []ModelInfo{
	{ID: "gemini-2.0-flash-exp", Name: "Gemini 2.0 Flash (Experimental)", Description: "Latest experimental model, fast and capable"},
	{ID: "gemini-1.5-flash", Name: "Gemini 1.5 Flash", Description: "Fast and efficient for most tasks"},
	{ID: "gemini-1.5-flash-8b", Name: "Gemini 1.5 Flash-8B", Description: "Smaller, faster variant"},
	{ID: "gemini-1.5-pro", Name: "Gemini 1.5 Pro", Description: "Most capable, best for complex reasoning"},
}

// KnownModel reports whether id is in the catalogue.
func KnownModel(id string) bool {
	return slices.ContainsFunc(Catalogue, func(m ModelInfo) bool { return m.ID == id })
}
