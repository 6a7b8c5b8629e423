// Package prompts assembles the system and per-iteration prompts for the
// reasoning loop from the embedded persona catalogue and templates.
package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	//go:embed personas.yaml
	personasYAML []byte

	//go:embed react_format.tmpl
	reactFormatTmpl string

	//go:embed guidelines.tmpl
	guidelinesTmpl string

	//go:embed reason.tmpl
	reasonTmpl string

	//go:embed synthesis.tmpl
	synthesisTmpl string
)

const (
	DefaultPersona = "helpful_assistant"
	DefaultStyle   = "zero_shot"
)

// Persona is a selectable assistant voice.
type Persona struct {
	Key         string `yaml:"key" json:"key"`
	Name        string `yaml:"name" json:"name"`
	Emoji       string `yaml:"emoji" json:"emoji"`
	Description string `yaml:"description" json:"description"`
	Intro       string `yaml:"intro" json:"-"`
}

// DisplayName is the emoji-prefixed name shown in the UI.
func (p Persona) DisplayName() string {
	return strings.TrimSpace(p.Emoji + " " + p.Name)
}

// Style is a prompt-engineering strategy appended to the system prompt.
type Style struct {
	Key          string `yaml:"key" json:"key"`
	Name         string `yaml:"name" json:"name"`
	Instructions string `yaml:"instructions" json:"-"`
}

// Catalog holds the personas, styles and compiled templates.
type Catalog struct {
	Personas []Persona `yaml:"personas"`
	Styles   []Style   `yaml:"styles"`

	react      *template.Template
	guidelines *template.Template
	reason     *template.Template
	synthesis  *template.Template
}

// Load parses the embedded catalogue.
func Load() (*Catalog, error) {
	return Parse(personasYAML)
}

// Parse builds a catalogue from YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse persona catalogue: %w", err)
	}
	if len(c.Personas) == 0 {
		return nil, fmt.Errorf("persona catalogue has no personas")
	}
	if len(c.Styles) == 0 {
		return nil, fmt.Errorf("persona catalogue has no prompt styles")
	}
	for _, p := range c.Personas {
		if p.Key == "" || strings.TrimSpace(p.Intro) == "" {
			return nil, fmt.Errorf("persona %q is missing a key or intro", p.Key)
		}
	}

	var err error
	if c.react, err = template.New("react").Parse(reactFormatTmpl); err != nil {
		return nil, fmt.Errorf("parse react template: %w", err)
	}
	if c.guidelines, err = template.New("guidelines").Parse(guidelinesTmpl); err != nil {
		return nil, fmt.Errorf("parse guidelines template: %w", err)
	}
	if c.reason, err = template.New("reason").Parse(reasonTmpl); err != nil {
		return nil, fmt.Errorf("parse reason template: %w", err)
	}
	if c.synthesis, err = template.New("synthesis").Parse(synthesisTmpl); err != nil {
		return nil, fmt.Errorf("parse synthesis template: %w", err)
	}
	return &c, nil
}

// Persona returns the persona with the given key.
func (c *Catalog) Persona(key string) (Persona, bool) {
	for _, p := range c.Personas {
		if p.Key == key {
			return p, true
		}
	}
	return Persona{}, false
}

// Style returns the prompt style with the given key.
func (c *Catalog) Style(key string) (Style, bool) {
	for _, s := range c.Styles {
		if s.Key == key {
			return s, true
		}
	}
	return Style{}, false
}

// PersonaKeys lists persona keys in catalogue order.
func (c *Catalog) PersonaKeys() []string {
	keys := make([]string, len(c.Personas))
	for i, p := range c.Personas {
		keys[i] = p.Key
	}
	return keys
}

// StyleKeys lists style keys in catalogue order.
func (c *Catalog) StyleKeys() []string {
	keys := make([]string, len(c.Styles))
	for i, s := range c.Styles {
		keys[i] = s.Key
	}
	return keys
}

// SystemInput selects what goes into a system prompt.
type SystemInput struct {
	Persona          string
	Style            string
	ToolDescriptions string
	MaxIterations    int
	Now              time.Time
}

type dateFields struct {
	Today         string
	Tomorrow      string
	Year          int
	MaxIterations int
}

func newDateFields(now time.Time, maxIterations int) dateFields {
	return dateFields{
		Today:         now.Format("2006-01-02"),
		Tomorrow:      now.AddDate(0, 0, 1).Format("2006-01-02"),
		Year:          now.Year(),
		MaxIterations: maxIterations,
	}
}

// System renders the persona intro, tool descriptions, ReAct format block,
// style instructions and general guidelines.
func (c *Catalog) System(in SystemInput) (string, error) {
	persona, ok := c.Persona(in.Persona)
	if !ok {
		return "", fmt.Errorf("unknown persona %q. Choose from: %s", in.Persona, strings.Join(c.PersonaKeys(), ", "))
	}
	style, ok := c.Style(in.Style)
	if !ok {
		return "", fmt.Errorf("unknown prompt style %q. Choose from: %s", in.Style, strings.Join(c.StyleKeys(), ", "))
	}
	fields := newDateFields(in.Now, in.MaxIterations)

	intro, err := renderString("intro", persona.Intro, fields)
	if err != nil {
		return "", err
	}
	instructions, err := renderString("style", style.Instructions, fields)
	if err != nil {
		return "", err
	}
	react, err := render(c.react, fields)
	if err != nil {
		return "", err
	}
	guidelines, err := render(c.guidelines, fields)
	if err != nil {
		return "", err
	}

	parts := []string{intro, in.ToolDescriptions, react, instructions, guidelines}
	var sb strings.Builder
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(p)
	}
	sb.WriteByte('\n')
	return sb.String(), nil
}

// Message is one line of conversation history.
type Message struct {
	Role    string
	Content string
}

// TurnInput carries the per-iteration context for reason and synthesis prompts.
type TurnInput struct {
	History     []Message
	Observation string
	CurrentUser string
	Question    string
	Now         time.Time
}

// Reason renders the prompt for one reasoning pass.
func (c *Catalog) Reason(in TurnInput) (string, error) {
	return render(c.reason, turnFields(in))
}

// Synthesis renders the prompt asking for a final answer.
func (c *Catalog) Synthesis(in TurnInput) (string, error) {
	return render(c.synthesis, turnFields(in))
}

func turnFields(in TurnInput) map[string]any {
	d := newDateFields(in.Now, 0)
	return map[string]any{
		"History":     in.History,
		"Observation": in.Observation,
		"CurrentUser": in.CurrentUser,
		"Question":    in.Question,
		"Today":       d.Today,
		"Year":        d.Year,
	}
}

func renderString(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse %s template: %w", name, err)
	}
	return render(tmpl, data)
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
