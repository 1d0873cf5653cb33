// Package cmd implements the rebal command line application.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/date"
	"github.com/etnz/rebalance/logger"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// Commands lists the rebal subcommands in display order.
var Commands = []subcommands.Command{
	&resolveCmd{},
	&replayCmd{},
	&estimateCmd{},
	&costCmd{},
	&decideCmd{},
	&explainCmd{},
	&topicCmd{},
}

// groups sorts the commands in the help output, portfolio is the default.
var groups = map[string]string{
	"explain": "assistant",
	"topic":   "help",
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for _, cmd := range Commands {
		group, ok := groups[cmd.Name()]
		if !ok {
			group = "portfolio"
		}
		c.Register(cmd, group)
	}
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile    = flag.String("config", "rebalance.yaml", "Path to the configuration file (YAML format)")
	ledgerFile    = flag.String("ledger", "transactions.jsonl", "Path to the ledger file containing trades (JSONL format)")
	snapshotsFile = flag.String("snapshots", "snapshots.csv", "Path to the price and target snapshots (CSV, or JSON feed)")
	candidateFile = flag.String("candidate", "candidate.json", "Path to the candidate allocation (JSON or CSV)")
	feedPath      = flag.String("feed-path", rebalance.DefaultFeedPath, "jsonpath selecting the records of a JSON snapshot feed")
	plain         = flag.Bool("plain", false, "print raw markdown instead of rendering it for the terminal")
	verbose       = flag.Bool("v", false, "log debug messages")
)

// stdout receives the reports. Tests replace it.
var stdout io.Writer = os.Stdout

// app holds what every command needs once the global flags are parsed.
type app struct {
	cfg      *rebalance.Config
	log      zerolog.Logger
	resolver *rebalance.Resolver
}

// newApp loads the configuration and builds the logger and resolver.
func newApp() (*app, error) {
	cfg, err := rebalance.LoadConfig(*configFile)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if *verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: level, Pretty: cfg.LogPretty})
	r, err := cfg.Resolver()
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, resolver: r}, nil
}

func (a *app) decoder() *rebalance.Decoder {
	return rebalance.NewDecoder(a.resolver, a.cfg.Currency, a.log)
}

// open opens a data file, name is the flag it comes from.
func open(name, path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s file %q does not exist, see -%s", name, path, name)
	}
	return f, err
}

// DecodeLedger decodes the trades of the ledger file.
func (a *app) DecodeLedger() ([]rebalance.Transaction, error) {
	f, err := open("ledger", *ledgerFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return a.decoder().Transactions(f, *ledgerFile)
}

// Replay decodes and replays the ledger file.
func (a *app) Replay() ([]rebalance.PortfolioState, error) {
	txs, err := a.DecodeLedger()
	if err != nil {
		return nil, err
	}
	states := rebalance.NewReplayer(a.resolver, a.log).Replay(txs)
	a.log.Debug().Int("transactions", len(txs)).Int("states", len(states)).Msg("ledger replayed")
	return states, nil
}

// StateAsOf returns the implemented portfolio on a given day. A day before
// the first trade is an empty portfolio.
func (a *app) StateAsOf(on date.Date) (rebalance.PortfolioState, error) {
	states, err := a.Replay()
	if err != nil {
		return rebalance.PortfolioState{}, err
	}
	s, ok := rebalance.StateAsOf(states, on)
	if !ok {
		a.log.Warn().Stringer("on", on).Msg("no trade on or before that day")
	}
	return s, nil
}

// DecodeSnapshots indexes the snapshot file. JSON files are read as feeds,
// anything else as CSV.
func (a *app) DecodeSnapshots(on date.Date) (*rebalance.SnapshotIndex, error) {
	f, err := open("snapshots", *snapshotsFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var snaps []rebalance.Snapshot
	if strings.EqualFold(filepath.Ext(*snapshotsFile), ".json") {
		snaps, err = a.decoder().SnapshotFeed(f, *snapshotsFile, *feedPath, on)
	} else {
		snaps, err = a.decoder().SnapshotsCSV(f, *snapshotsFile)
	}
	if err != nil {
		return nil, err
	}
	idx := rebalance.NewSnapshotIndex(snaps, a.resolver)
	a.log.Debug().Int("snapshots", idx.Len()).Int("instruments", len(idx.IDs())).Msg("snapshots indexed")
	return idx, nil
}

// DecodeCandidate decodes the candidate allocation file.
func (a *app) DecodeCandidate() (rebalance.Candidate, error) {
	f, err := open("candidate", *candidateFile)
	if err != nil {
		return rebalance.Candidate{}, err
	}
	defer f.Close()
	return a.decoder().Candidate(f, *candidateFile)
}

// Estimator builds an estimator using the configured live prices.
func (a *app) Estimator(idx *rebalance.SnapshotIndex) *rebalance.Estimator {
	return rebalance.NewEstimator(idx, a.cfg.Live(a.resolver), a.log)
}

// parseDay parses the -d flag of a command.
func parseDay(s string) (date.Date, error) {
	if s == "" {
		return date.Today(), nil
	}
	return date.Parse(s)
}

// failure reports err and returns the matching exit status.
func failure(what string, err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error %s: %v\n", what, err)
	return subcommands.ExitFailure
}
