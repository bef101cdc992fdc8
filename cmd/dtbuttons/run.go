package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-tablebuttons/pkg/authz"
	"github.com/goliatone/go-tablebuttons/pkg/button"
	"github.com/goliatone/go-tablebuttons/pkg/definition"
)

type config struct {
	Defs        string
	Toolbar     string
	Policy      string
	Actor       string
	Roles       string
	Perms       string
	Values      string
	Locale      string
	Messages    string
	Format      string
	Output      string
	Prune       bool
	Interactive bool
}

// run realizes the configured toolbar and returns the encoded output. With no
// toolbar selected it returns the catalog's toolbar names, one per line.
func run(ctx context.Context, cfg config, prompt rolePrompter) ([]byte, error) {
	catalog, err := definition.LoadFS(os.DirFS(cfg.Defs))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Toolbar) == "" {
		var buf bytes.Buffer
		for _, name := range catalog.Names() {
			fmt.Fprintln(&buf, name)
		}
		return buf.Bytes(), nil
	}

	policy := authz.NewPolicy()
	if cfg.Policy != "" {
		policy, err = authz.LoadPolicyFS(os.DirFS(filepath.Dir(cfg.Policy)), filepath.Base(cfg.Policy))
		if err != nil {
			return nil, err
		}
	}

	actor, err := resolveActor(ctx, cfg, policy, prompt)
	if err != nil {
		return nil, err
	}

	values, err := parseValues(cfg.Values)
	if err != nil {
		return nil, err
	}

	options := []definition.Option{
		definition.WithAuthorizer(authz.NewGate(policy, nil)),
	}
	if cfg.Messages != "" {
		messages, err := definition.LoadMessagesFS(os.DirFS(filepath.Dir(cfg.Messages)), filepath.Base(cfg.Messages))
		if err != nil {
			return nil, err
		}
		options = append(options, definition.WithTranslator(messages))
	}
	if cfg.Prune {
		options = append(options, definition.WithPruneEmpty())
	}

	builder := definition.NewBuilder(options...)
	env := definition.Env{Values: values, Locale: cfg.Locale}
	buttons, err := builder.Toolbar(authz.WithActor(ctx, actor), catalog, cfg.Toolbar, env)
	if err != nil {
		return nil, err
	}
	return encode(buttons, cfg.Format)
}

// resolveActor starts from the policy subject named by cfg.Actor, when one
// exists, and layers the flag roles and permissions on top.
func resolveActor(ctx context.Context, cfg config, policy *authz.Policy, prompt rolePrompter) (*authz.Subject, error) {
	actor := &authz.Subject{ID: strings.TrimSpace(cfg.Actor)}
	if actor.ID == "" {
		actor.ID = "cli"
	}
	if known, ok := policy.Subject(actor.ID); ok {
		copied := *known
		copied.Roles = append([]string(nil), known.Roles...)
		copied.Permissions = append([]string(nil), known.Permissions...)
		actor = &copied
	}
	actor.Roles = appendUnique(actor.Roles, splitList(cfg.Roles)...)
	actor.Permissions = appendUnique(actor.Permissions, splitList(cfg.Perms)...)

	if prompt != nil {
		roles := policy.RoleNames()
		if len(roles) == 0 {
			return nil, fmt.Errorf("dtbuttons: interactive mode needs a policy with roles")
		}
		picked, err := prompt.SelectRoles(ctx, roles, actor.Roles)
		if err != nil {
			return nil, err
		}
		actor.Roles = picked
	}
	return actor, nil
}

func parseValues(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var values map[string]any
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("dtbuttons: -values must be a JSON object: %w", err)
	}
	return values, nil
}

func encode(buttons []*button.Button, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(buttons); err != nil {
			return nil, fmt.Errorf("dtbuttons: encode json: %w", err)
		}
	case "yaml", "yml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(buttons); err != nil {
			return nil, fmt.Errorf("dtbuttons: encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("dtbuttons: encode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("dtbuttons: unknown format %q", format)
	}
	return buf.Bytes(), nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func appendUnique(dst []string, values ...string) []string {
	for _, value := range values {
		found := false
		for _, existing := range dst {
			if existing == value {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, value)
		}
	}
	return dst
}
