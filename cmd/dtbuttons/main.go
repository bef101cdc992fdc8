package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
)

func main() {
	cfg := config{}
	flag.StringVar(&cfg.Defs, "defs", "definitions", "directory holding toolbar definition files")
	flag.StringVar(&cfg.Toolbar, "toolbar", "", "toolbar to realize (lists toolbars if empty)")
	flag.StringVar(&cfg.Policy, "policy", "", "role policy file (JSON or YAML)")
	flag.StringVar(&cfg.Actor, "actor", "cli", "actor ID; looked up in the policy when present")
	flag.StringVar(&cfg.Roles, "roles", "", "comma separated roles for the actor")
	flag.StringVar(&cfg.Perms, "perms", "", "comma separated direct permissions for the actor")
	flag.StringVar(&cfg.Values, "values", "", "JSON object exposed to if rules and text templates")
	flag.StringVar(&cfg.Locale, "locale", "en", "locale used for textKey entries")
	flag.StringVar(&cfg.Messages, "messages", "", "translation messages file (JSON or YAML)")
	flag.StringVar(&cfg.Format, "format", "json", "output format: json or yaml")
	flag.StringVar(&cfg.Output, "output", "", "output file (stdout if empty)")
	flag.BoolVar(&cfg.Prune, "prune", false, "drop unauthorized buttons instead of emitting {}")
	flag.BoolVar(&cfg.Interactive, "interactive", false, "pick the actor roles from the policy interactively")
	flag.Parse()

	var prompt rolePrompter
	if cfg.Interactive {
		prompt = surveyPrompter{}
	}

	out, err := run(context.Background(), cfg, prompt)
	if err != nil {
		log.Fatalf("Failed to realize toolbar: %v", err)
	}

	if cfg.Output != "" {
		if err := os.WriteFile(cfg.Output, out, 0o644); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		fmt.Printf("Toolbar written to %s\n", cfg.Output)
		return
	}
	fmt.Print(string(out))
}
