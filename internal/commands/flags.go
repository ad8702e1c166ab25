package commands

import (
	"flag"
	"io"

	"xupg/internal/registry"
)

// NewFlagSet returns a silent flag set for a subcommand; errors are
// reported by the caller.
func NewFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// Parse parses args allowing flags after positional arguments, so
// "install 8.2.1 --path /opt" works like "install --path /opt 8.2.1".
// It returns the positional arguments in order.
func Parse(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, Usagef("%s: %v", fs.Name(), err)
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// KindFlags registers one boolean flag per package kind.
type KindFlags map[registry.Kind]*bool

// NewKindFlags adds --php, --mysql and --phpmyadmin to fs.
func NewKindFlags(fs *flag.FlagSet) KindFlags {
	flags := make(KindFlags)
	for _, k := range registry.Kinds() {
		flags[k] = fs.Bool(k.Slug(), false, "select "+k.Name())
	}
	return flags
}

// Selected returns the kinds whose flag was set, in display order.
func (f KindFlags) Selected() []registry.Kind {
	var kinds []registry.Kind
	for _, k := range registry.Kinds() {
		if p := f[k]; p != nil && *p {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// One returns the single selected kind. PHP is assumed when none is set.
func (f KindFlags) One() (registry.Kind, error) {
	kinds := f.Selected()
	switch len(kinds) {
	case 0:
		return registry.PHP, nil
	case 1:
		return kinds[0], nil
	default:
		return 0, Usagef("select only one package")
	}
}
