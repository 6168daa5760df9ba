package harness

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/uiprobe/internal/evidence"
	"github.com/roach88/uiprobe/internal/step"
)

// DefaultNavigationTimeout bounds the initial page load when a scenario
// does not set navigation_timeout.
const DefaultNavigationTimeout = 60 * time.Second

// Scenario is an ordered list of steps against one page, plus the
// checkpoints at which evidence is captured. It is defined before a run
// and never modified by one.
type Scenario struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// URL is the page to open. A relative URL is resolved against the
	// base URL given to ResolveURL.
	URL string `yaml:"url" json:"url"`

	NavigationTimeout time.Duration `yaml:"navigation_timeout,omitempty" json:"navigation_timeout,omitempty"`

	// SettleAfterLoad is slept once after navigation, before any
	// checkpoint or step.
	SettleAfterLoad time.Duration `yaml:"settle_after_load,omitempty" json:"settle_after_load,omitempty"`

	Viewport Viewport `yaml:"viewport,omitempty" json:"viewport,omitempty"`

	Steps       []step.Step  `yaml:"steps" json:"steps"`
	Checkpoints []Checkpoint `yaml:"checkpoints,omitempty" json:"checkpoints,omitempty"`
}

// Viewport is the browser window the scenario expects. Zero fields leave
// the browser default in place.
type Viewport struct {
	Width  int     `yaml:"width,omitempty" json:"width,omitempty"`
	Height int     `yaml:"height,omitempty" json:"height,omitempty"`
	Scale  float64 `yaml:"scale,omitempty" json:"scale,omitempty"`
}

// Checkpoint declares evidence to capture once After steps have run.
// After 0 means right after navigation.
type Checkpoint struct {
	Name  string   `yaml:"name" json:"name"`
	After int      `yaml:"after" json:"after"`
	Tags  []string `yaml:"tags,omitempty" json:"tags,omitempty"`

	// Screenshot defaults to true.
	Screenshot *bool `yaml:"screenshot,omitempty" json:"screenshot,omitempty"`
	FullPage   bool  `yaml:"full_page,omitempty" json:"full_page,omitempty"`

	MaxLen int `yaml:"max_len,omitempty" json:"max_len,omitempty"`
	Tail   int `yaml:"tail,omitempty" json:"tail,omitempty"`
}

// WantsScreenshot reports whether a screenshot is taken at this checkpoint.
func (c Checkpoint) WantsScreenshot() bool {
	return c.Screenshot == nil || *c.Screenshot
}

// Spec converts the checkpoint into an evidence request.
func (c Checkpoint) Spec() evidence.Spec {
	return evidence.Spec{
		Name:       c.Name,
		Tags:       c.Tags,
		Screenshot: c.WantsScreenshot(),
		FullPage:   c.FullPage,
		MaxLen:     c.MaxLen,
		Tail:       c.Tail,
	}
}

// CheckpointsAfter returns the checkpoints declared after n steps, in
// declaration order.
func (s *Scenario) CheckpointsAfter(n int) []Checkpoint {
	var out []Checkpoint
	for _, cp := range s.Checkpoints {
		if cp.After == n {
			out = append(out, cp)
		}
	}
	return out
}

// Timeout returns the navigation timeout, applying the default.
func (s *Scenario) Timeout() time.Duration {
	if s.NavigationTimeout > 0 {
		return s.NavigationTimeout
	}
	return DefaultNavigationTimeout
}

// ResolveURL resolves the scenario URL against base. An empty base leaves
// the URL as written, which must then be absolute.
func (s *Scenario) ResolveURL(base string) (string, error) {
	ref, err := url.Parse(s.URL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", s.URL, err)
	}
	if base == "" {
		if !ref.IsAbs() {
			return "", fmt.Errorf("url %q is relative and no base URL is set", s.URL)
		}
		return ref.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	if !b.IsAbs() {
		return "", fmt.Errorf("base url %q must be absolute", base)
	}
	return b.ResolveReference(ref).String(), nil
}

// LoadScenario reads, schema-checks and parses a scenario YAML file.
// Validation problems are returned together as a *ScenarioError.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(path, data)
}

// ParseScenario parses scenario YAML. filename is used in error positions.
func ParseScenario(filename string, data []byte) (*Scenario, error) {
	violations, err := checkSchema(filename, data)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return nil, &ScenarioError{Path: filename, Errors: violations}
	}

	// Strict decoding catches typos the schema lets through, e.g. inside
	// open structs.
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if errs := validateScenario(&scenario); len(errs) > 0 {
		return nil, &ScenarioError{Path: filename, Errors: errs}
	}
	return &scenario, nil
}

// validateScenario checks what the schema cannot express.
// Returns all errors found (does not fail-fast).
func validateScenario(s *Scenario) []ValidationError {
	var errs []ValidationError

	if _, err := url.Parse(s.URL); err != nil {
		errs = append(errs, ValidationError{Field: "url", Message: err.Error(), Code: ErrInvalidURL})
	}

	for i := range s.Steps {
		if err := s.Steps[i].Validate(); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("steps.%d", i),
				Message: err.Error(),
				Code:    ErrInvalidStep,
			})
		}
	}

	files := make(map[string]string)
	for i, cp := range s.Checkpoints {
		field := fmt.Sprintf("checkpoints.%d", i)
		if cp.After > len(s.Steps) {
			errs = append(errs, ValidationError{
				Field:   field + ".after",
				Message: fmt.Sprintf("after %d exceeds the %d step(s) in the scenario", cp.After, len(s.Steps)),
				Code:    ErrCheckpointRange,
			})
		}
		slug := evidence.Slug(cp.Name)
		if other, ok := files[slug]; ok {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("%q writes the same files as %q", cp.Name, other),
				Code:    ErrCheckpointDuplicate,
			})
			continue
		}
		files[slug] = cp.Name
	}

	return errs
}
