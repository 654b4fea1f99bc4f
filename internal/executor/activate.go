package executor

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"
)

// ParseExports collects the `export NAME=value` assignments of an activation
// script without running it. Values are expanded as literals, so quoting is
// honoured but parameter expansions are not.
func ParseExports(script string) (Env, error) {
	file, err := syntax.NewParser().Parse(strings.NewReader(script), "activate")
	if err != nil {
		return nil, fmt.Errorf("parsing activation script: %w", err)
	}
	env := Env{}
	cfg := &expand.Config{}
	var walkErr error
	syntax.Walk(file, func(node syntax.Node) bool {
		decl, ok := node.(*syntax.DeclClause)
		if !ok || walkErr != nil {
			return walkErr == nil
		}
		if decl.Variant == nil || decl.Variant.Value != "export" {
			return true
		}
		for _, as := range decl.Args {
			if as.Naked || as.Name == nil || as.Array != nil {
				continue
			}
			value := ""
			if as.Value != nil {
				v, err := expand.Literal(cfg, as.Value)
				if err != nil {
					walkErr = fmt.Errorf("expanding %s: %w", as.Name.Value, err)
					return false
				}
				value = v
			}
			env[as.Name.Value] = value
		}
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return env, nil
}
