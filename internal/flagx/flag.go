// Package flagx lets several components share os.Args, each parsing only the
// flags it owns.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// ConfigEnvVar names the environment variable consulted when no -c/-config
// flag is given.
const ConfigEnvVar = "FEDINODE_CONFIG"

// FilterArgs keeps the allowed flags of args together with their values.
// Both "-f value" and "-f=value" forms are recognised; a following token that
// starts with "-" is never taken as a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]bool, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = true
	}

	out := []string{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if allowed[name] {
				out = append(out, arg)
			}
			continue
		}
		if !allowed[arg] {
			continue
		}
		out = append(out, arg)
		if next := i + 1; next < len(args) && !strings.HasPrefix(args[next], "-") {
			out = append(out, args[next])
			i = next
		}
	}
	return out
}

// ParseOwn parses the flags registered on fs out of os.Args, ignoring any
// flag fs does not know about.
func ParseOwn(fs *flag.FlagSet) error {
	var names []string
	fs.VisitAll(func(f *flag.Flag) {
		names = append(names, "-"+f.Name, "--"+f.Name)
	})
	return fs.Parse(FilterArgs(os.Args[1:], names))
}

// ConfigFilePath returns the JSON config path given by -c/-config, falling
// back to ConfigEnvVar. Empty means no file.
func ConfigFilePath() string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = ParseOwn(fs)

	if path == "" {
		path = os.Getenv(ConfigEnvVar)
	}
	return path
}
