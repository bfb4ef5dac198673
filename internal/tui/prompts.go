package tui

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	flowerrors "gitflow.dev/gitflow/internal/errors"
)

// Prompter asks the operator for input. Interactive commands take one so
// tests can script the answers.
type Prompter interface {
	// Select returns the index of the chosen option
	Select(message string, options []string) (int, error)
	// Input returns free text, validated when validate is not nil
	Input(message, def string, validate func(string) error) (string, error)
	// Confirm returns a yes/no answer
	Confirm(message string, def bool) (bool, error)
}

// ErrCanceled is returned when the operator interrupts a prompt.
var ErrCanceled = errors.New("canceled by user")

// SurveyPrompter prompts on the terminal using survey
type SurveyPrompter struct {
	// Interactive is false when stdin or stdout is not a terminal
	Interactive bool
}

// NewSurveyPrompter creates a prompter for the current terminal
func NewSurveyPrompter() *SurveyPrompter {
	return &SurveyPrompter{Interactive: IsTTY()}
}

func (p *SurveyPrompter) check(message string) error {
	if !p.Interactive {
		return fmt.Errorf("%w: %s", flowerrors.ErrNotInteractive, message)
	}
	return nil
}

func mapSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrCanceled
	}
	return err
}

// Select shows a list of options and returns the chosen index
func (p *SurveyPrompter) Select(message string, options []string) (int, error) {
	if err := p.check(message); err != nil {
		return -1, err
	}
	if len(options) == 0 {
		return -1, fmt.Errorf("nothing to select for %q", message)
	}
	var selected int
	prompt := &survey.Select{
		Message:  message,
		Options:  options,
		PageSize: 15,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return -1, mapSurveyErr(err)
	}
	return selected, nil
}

// Input asks for a line of text
func (p *SurveyPrompter) Input(message, def string, validate func(string) error) (string, error) {
	if err := p.check(message); err != nil {
		return "", err
	}
	var answer string
	prompt := &survey.Input{
		Message: message,
		Default: def,
	}
	var opts []survey.AskOpt
	if validate != nil {
		opts = append(opts, survey.WithValidator(func(ans interface{}) error {
			s, _ := ans.(string)
			return validate(s)
		}))
	}
	if err := survey.AskOne(prompt, &answer, opts...); err != nil {
		return "", mapSurveyErr(err)
	}
	return answer, nil
}

// Confirm asks a yes/no question
func (p *SurveyPrompter) Confirm(message string, def bool) (bool, error) {
	if err := p.check(message); err != nil {
		return false, err
	}
	answer := def
	prompt := &survey.Confirm{
		Message: message,
		Default: def,
	}
	if err := survey.AskOne(prompt, &answer); err != nil {
		return false, mapSurveyErr(err)
	}
	return answer, nil
}

// AutoConfirm answers every confirmation with yes and refuses other input.
// It backs --yes on non-interactive runs.
type AutoConfirm struct {
	Prompter
}

// Confirm always agrees
func (AutoConfirm) Confirm(string, bool) (bool, error) {
	return true, nil
}
