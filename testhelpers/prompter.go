package testhelpers

import (
	"fmt"
	"slices"

	"gitflow.dev/gitflow/internal/tui"
)

// ScriptedPrompter answers prompts from queues. An empty queue fails the
// prompt, so a test notices questions it did not expect.
type ScriptedPrompter struct {
	// Selections are option labels, matched against the offered options
	Selections []string
	Inputs     []string
	Confirms   []bool
	// Asked records every prompt message
	Asked []string
}

var _ tui.Prompter = (*ScriptedPrompter)(nil)

// Select picks the option equal to the next selection
func (p *ScriptedPrompter) Select(message string, options []string) (int, error) {
	p.Asked = append(p.Asked, message)
	if len(p.Selections) == 0 {
		return -1, fmt.Errorf("unexpected select %q", message)
	}
	answer := p.Selections[0]
	p.Selections = p.Selections[1:]
	idx := slices.Index(options, answer)
	if idx < 0 {
		return -1, fmt.Errorf("%q is not one of %v", answer, options)
	}
	return idx, nil
}

// Input returns the next input, or def when the input is empty
func (p *ScriptedPrompter) Input(message, def string, validate func(string) error) (string, error) {
	p.Asked = append(p.Asked, message)
	if len(p.Inputs) == 0 {
		return "", fmt.Errorf("unexpected input %q", message)
	}
	answer := p.Inputs[0]
	p.Inputs = p.Inputs[1:]
	if answer == "" {
		answer = def
	}
	if validate != nil {
		if err := validate(answer); err != nil {
			return "", err
		}
	}
	return answer, nil
}

// Confirm returns the next confirmation
func (p *ScriptedPrompter) Confirm(message string, _ bool) (bool, error) {
	p.Asked = append(p.Asked, message)
	if len(p.Confirms) == 0 {
		return false, fmt.Errorf("unexpected confirm %q", message)
	}
	answer := p.Confirms[0]
	p.Confirms = p.Confirms[1:]
	return answer, nil
}
