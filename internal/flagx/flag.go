// Package flagx narrows os.Args down to the flags one FlagSet owns, so the
// JSON config pass and the main flag pass can each parse the same command
// line without tripping over the other's flags.
package flagx

import (
	"flag"
	"strings"
)

// Pick returns the subset of args that belongs to the named flags, in their
// original order. Names are given without dashes; "-name" and "--name" both
// match, as does the "-name=value" form. A value given as the next argument
// is kept with its flag unless it looks like another flag.
// Scanning stops at the "--" terminator.
func Pick(args []string, names ...string) []string {
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}

	out := []string{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}

		name, hasValue := flagName(arg)
		if name == "" || !known[name] {
			continue
		}

		out = append(out, arg)
		if !hasValue && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			out = append(out, args[i])
		}
	}
	return out
}

// flagName strips the leading dashes and any "=value" suffix.
func flagName(arg string) (name string, hasValue bool) {
	if !strings.HasPrefix(arg, "-") {
		return "", false
	}
	name = strings.TrimLeft(arg, "-")
	if k, _, found := strings.Cut(name, "="); found {
		return k, true
	}
	return name, false
}

// ConfigPath returns the value of -c / -config in args, or "" when neither
// is present. Everything else on the command line is ignored.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(Pick(args, "c", "config"))

	return path
}
