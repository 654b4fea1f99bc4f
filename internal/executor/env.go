package executor

import (
	"os"
	"sort"
	"strings"
)

// Env is a complete environment handed to one command. It is never applied to
// the current process.
type Env map[string]string

// passthrough lists host variables a minimal environment keeps.
var passthrough = []string{"HOME", "USER", "LOGNAME", "TERM", "LANG", "TMPDIR"}

// Minimal returns PATH set to pathEnv plus a handful of host variables that
// most tools refuse to run without.
func Minimal(pathEnv string) Env {
	env := Env{"PATH": pathEnv}
	for _, k := range passthrough {
		if v, ok := os.LookupEnv(k); ok {
			env[k] = v
		}
	}
	return env
}

// Inherit copies the host environment.
func Inherit() Env {
	env := Env{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// With returns a copy of e with overlay applied on top.
func (e Env) With(overlay Env) Env {
	out := make(Env, len(e)+len(overlay))
	for k, v := range e {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

func (e Env) Slice() []string {
	out := make([]string, 0, len(e))
	for k, v := range e {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
