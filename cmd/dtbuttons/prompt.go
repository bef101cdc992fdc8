package main

import (
	"context"
	"errors"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

var errAborted = errors.New("dtbuttons: prompt aborted")

// rolePrompter asks which roles the simulated actor holds.
type rolePrompter interface {
	SelectRoles(ctx context.Context, options, defaults []string) ([]string, error)
}

type surveyPrompter struct{}

func (surveyPrompter) SelectRoles(ctx context.Context, options, defaults []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []string
	prompt := &survey.MultiSelect{
		Message: "Roles for the actor:",
		Options: options,
		Help:    "Permissions granted to the selected roles decide which buttons are shown.",
	}
	if picked := intersect(options, defaults); len(picked) > 0 {
		prompt.Default = picked
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return nil, errAborted
		}
		return nil, err
	}
	return out, nil
}

// intersect keeps the values present in options, in options order.
func intersect(options, values []string) []string {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	var out []string
	for _, option := range options {
		if _, ok := seen[option]; ok {
			out = append(out, option)
		}
	}
	return out
}
