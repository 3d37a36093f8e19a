package mapcompare

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed scenario.schema.json
var scenarioSchemaJSON []byte

const scenarioSchemaURL = "https://github.com/phanxgames/mapcompare/scenario.schema.json"

// scenarioSchema compiles the embedded scenario schema once.
var scenarioSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(scenarioSchemaURL, bytes.NewReader(scenarioSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add scenario schema: %w", err)
	}
	return compiler.Compile(scenarioSchemaURL)
})

// ValidateScenario checks jsonData against the scenario schema.
func ValidateScenario(jsonData []byte) error {
	schema, err := scenarioSchema()
	if err != nil {
		return err
	}
	var instance any
	if err := json.Unmarshal(jsonData, &instance); err != nil {
		return fmt.Errorf("parse scenario: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("invalid scenario: %w", err)
	}
	return nil
}

// scenarioStep represents a single action in a scenario script.
type scenarioStep struct {
	Action string   `json:"action"`
	Mode   string   `json:"mode,omitempty"`
	Layers []string `json:"layers,omitempty"`
	// Canvas selects "primary" (default) or "secondary".
	Canvas string  `json:"canvas,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Factor float64 `json:"factor,omitempty"`
	Frames int     `json:"frames,omitempty"`
	// Group lists the expected compare group member names, top to bottom.
	Group []string `json:"group,omitempty"`
	// Error is the expected error text of the previous coordinator call;
	// empty expects success.
	Error string `json:"error,omitempty"`
}

type scenarioScript struct {
	Steps []scenarioStep `json:"steps"`
}

// ScenarioRunner plays a JSON scenario against a coordinator, one step per
// frame, for automated end-to-end checks. Attach it with
// Project.SetScenario.
//
//	{"steps": [
//	  {"action": "activate", "mode": "vertical", "layers": ["A", "B"]},
//	  {"action": "expect", "mode": "vertical", "group": ["QMapCompareMask", "QMapCompareBackground", "A", "B"]},
//	  {"action": "cursor", "x": 400, "y": 300},
//	  {"action": "wait", "frames": 12},
//	  {"action": "stop"}
//	]}
type ScenarioRunner struct {
	coord   *Coordinator
	primary *MapCanvas

	steps     []scenarioStep
	cursor    int
	waitCount int
	done      bool

	lastErr  error
	failures []error
}

// LoadScenario validates and parses a JSON scenario for coord, whose primary
// viewport is primary.
func LoadScenario(jsonData []byte, coord *Coordinator, primary *MapCanvas) (*ScenarioRunner, error) {
	if err := ValidateScenario(jsonData); err != nil {
		return nil, err
	}
	var script scenarioScript
	if err := json.Unmarshal(jsonData, &script); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("parse scenario: no steps")
	}
	for i, st := range script.Steps {
		if st.Action == "activate" || (st.Action == "expect" && st.Mode != "") {
			if _, err := ParseMode(st.Mode); err != nil {
				return nil, fmt.Errorf("parse scenario: step %d: %w", i, err)
			}
		}
	}
	return &ScenarioRunner{coord: coord, primary: primary, steps: script.Steps}, nil
}

// SetScenario attaches a runner to the project. Its step runs at the start of
// every Update. Pass nil to detach.
func (p *Project) SetScenario(runner *ScenarioRunner) {
	p.script = runner
}

// Done reports whether all steps have been executed.
func (r *ScenarioRunner) Done() bool { return r.done }

// Failures returns the expectations that did not hold.
func (r *ScenarioRunner) Failures() []error {
	return append([]error(nil), r.failures...)
}

// step advances the runner by one frame. Called from Project.Update.
func (r *ScenarioRunner) step(p *Project) {
	if r.done {
		return
	}
	// Wait for pending injections to drain before advancing.
	if len(p.injectQueue) > 0 {
		return
	}
	if r.waitCount > 0 {
		r.waitCount--
		r.checkDone(p)
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	switch st.Action {
	case "activate":
		mode, _ := ParseMode(st.Mode)
		r.lastErr = r.coord.Activate(mode, r.layers(p, st.Layers))
	case "stop":
		r.lastErr = r.coord.Stop()
	case "select":
		r.lastErr = r.coord.SelectionChanged(r.layers(p, st.Layers))
	case "refresh":
		r.lastErr = r.coord.Refresh()
	case "cursor":
		if c := r.canvas(st.Canvas); c != nil {
			p.InjectCursor(c, st.X, st.Y)
		}
	case "leave":
		if c := r.canvas(st.Canvas); c != nil {
			p.InjectLeave(c)
		}
	case "pan":
		if c := r.canvas(st.Canvas); c != nil {
			p.InjectPan(c, st.X, st.Y, st.Frames)
		}
	case "zoom":
		if c := r.canvas(st.Canvas); c != nil {
			p.InjectZoom(c, st.Factor)
		}
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this frame counts as one
		}
	case "expect":
		r.expect(r.cursor-1, st)
	}

	r.checkDone(p)
}

// checkDone marks the runner done once every step ran and nothing it started
// is still pending.
func (r *ScenarioRunner) checkDone(p *Project) {
	if r.cursor >= len(r.steps) && r.waitCount == 0 && len(p.injectQueue) == 0 {
		r.done = true
	}
}

func (r *ScenarioRunner) expect(index int, st scenarioStep) {
	fail := func(format string, args ...any) {
		r.failures = append(r.failures, fmt.Errorf("step %d: "+format, append([]any{index}, args...)...))
	}
	if st.Mode != "" {
		want, _ := ParseMode(st.Mode)
		if got := r.coord.Mode(); got != want {
			fail("mode = %s, want %s", got, want)
		}
	}
	switch {
	case st.Error == "" && r.lastErr != nil:
		fail("unexpected error: %v", r.lastErr)
	case st.Error != "" && (r.lastErr == nil || r.lastErr.Error() != st.Error):
		fail("error = %v, want %q", r.lastErr, st.Error)
	}
	if st.Group != nil {
		var got []string
		if g := r.coord.Groups().Group(); g != nil {
			for _, child := range g.Children() {
				got = append(got, child.Name)
			}
		}
		if !slices.Equal(got, st.Group) {
			fail("group = %v, want %v", got, st.Group)
		}
	}
}

func (r *ScenarioRunner) layers(p *Project, names []string) []*Layer {
	out := make([]*Layer, 0, len(names))
	for _, name := range names {
		if l := p.FindLayerByName(name); l != nil {
			out = append(out, l)
		} else {
			Logger().Warn("scenario references unknown layer", "layer", name)
		}
	}
	return out
}

func (r *ScenarioRunner) canvas(which string) *MapCanvas {
	if which == "secondary" {
		c, _ := r.coord.Synchronizer().Secondary().(*MapCanvas)
		return c
	}
	return r.primary
}
