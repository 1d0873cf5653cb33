package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/etnz/rebalance/renderer"
	"github.com/google/subcommands"
)

// resolveCmd shows how instrument names resolve.
type resolveCmd struct {
	aliases bool
}

func (*resolveCmd) Name() string     { return "resolve" }
func (*resolveCmd) Synopsis() string { return "show the canonical id of instrument names" }
func (*resolveCmd) Usage() string {
	return `rebal resolve [-aliases] <name>...

  Resolves broker names and symbols to their canonical instrument id, and lists
  the share classes tried when an instrument has no snapshot.
`
}

func (c *resolveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.aliases, "aliases", false, "list every configured alias instead")
}

func (c *resolveCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	names := f.Args()
	if len(names) == 0 && !c.aliases {
		fmt.Fprintln(os.Stderr, "resolve needs at least one name")
		return subcommands.ExitUsageError
	}
	a, err := newApp()
	if err != nil {
		return failure("loading configuration", err)
	}
	if c.aliases {
		for name := range a.resolver.Names() {
			names = append(names, string(name))
		}
		slices.Sort(names)
	}

	ids := make([]renderer.Identity, 0, len(names))
	for _, name := range names {
		ids = append(ids, renderer.NewIdentity(a.resolver, name))
	}
	printMarkdown(renderer.RenderIdentities(ids))
	return subcommands.ExitSuccess
}
