package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testLedger = `{"date":"2025-01-02","name":"A","side":"BUY","quantity":10,"price":100}
`
	testSnapshots = `date,id,current,target
2025-01-01,A,100,104
2025-01-01,B,100,109
`
	testCandidate = `[{"id":"B","weight":1}]`
)

// setup writes the data files in a temporary directory, points the global
// flags at them and captures the output.
func setup(t *testing.T, files map[string]string) *bytes.Buffer {
	t.Helper()
	tmp := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(tmp, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}
	content := map[string]string{
		"ledger":    testLedger,
		"snapshots": testSnapshots,
		"candidate": testCandidate,
	}
	for k, v := range files {
		content[k] = v
	}

	swap := func(p *string, v string) {
		old := *p
		*p = v
		t.Cleanup(func() { *p = old })
	}
	swap(configFile, filepath.Join(tmp, "rebalance.yaml"))
	if c, ok := content["config"]; ok {
		swap(configFile, write("rebalance.yaml", c))
	}
	swap(ledgerFile, write("transactions.jsonl", content["ledger"]))
	swap(snapshotsFile, write("snapshots.csv", content["snapshots"]))
	swap(candidateFile, write("candidate.json", content["candidate"]))

	oldPlain, oldStdout := *plain, stdout
	var out bytes.Buffer
	*plain, stdout = true, &out
	t.Cleanup(func() { *plain, stdout = oldPlain, oldStdout })
	return &out
}

// run parses args for c and executes it.
func run(t *testing.T, c subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	c.SetFlags(f)
	require.NoError(t, f.Parse(args))
	return c.Execute(context.Background(), f)
}

func TestDecideCmd(t *testing.T) {
	out := setup(t, nil)

	status := run(t, &decideCmd{}, "-d", "2025-01-03")

	require.Equal(t, subcommands.ExitSuccess, status)
	md := out.String()
	for _, want := range []string{
		"# Rebalance Recommendation on 2025-01-03",
		"**REBALANCE: net gain reaches threshold**",
		"| Implemented Expected Return | 4.00% |",
		"| Candidate Expected Return | 9.00% |",
		"| Transition Cost | 0.50% |",
		"| Net Gain | +4.50% |",
		"| A | SELL | 100.00% | 0.00% | 100.00 | 10 |",
		"| B | BUY | 0.00% | 100.00% | 100.00 | 10 |",
	} {
		assert.Contains(t, md, want)
	}
}

func TestDecideCmd_Overrides(t *testing.T) {
	out := setup(t, map[string]string{"config": "min_gain_threshold_pct: 2\n"})

	status := run(t, &decideCmd{}, "-d", "2025-01-03", "-threshold", "5", "-rate", "1")

	require.Equal(t, subcommands.ExitSuccess, status)
	md := out.String()
	assert.Contains(t, md, "**HOLD: marginal gain below threshold**")
	assert.Contains(t, md, "| Net Gain | +4.00% |")
	assert.Contains(t, md, "| Minimum Gain Threshold | 5.00% |")
	assert.NotContains(t, md, "## Orders")
}

func TestDecideCmd_JSON(t *testing.T) {
	out := setup(t, nil)

	status := run(t, &decideCmd{}, "-d", "2025-01-03", "-json")

	require.Equal(t, subcommands.ExitSuccess, status)
	var got struct {
		Decision string `json:"decision"`
		NetGain  string `json:"netGain"`
		Orders   []struct {
			ID     string `json:"id"`
			Action string `json:"action"`
		} `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "REBALANCE", got.Decision)
	assert.Equal(t, "+4.50%", got.NetGain)
	assert.Len(t, got.Orders, 2)
}

func TestDecideCmd_MissingCandidate(t *testing.T) {
	out := setup(t, nil)
	missing := filepath.Join(t.TempDir(), "none.json")
	old := *candidateFile
	*candidateFile = missing
	defer func() { *candidateFile = old }()

	status := run(t, &decideCmd{}, "-d", "2025-01-03")

	require.Equal(t, subcommands.ExitSuccess, status)
	md := out.String()
	assert.Contains(t, md, "**UNKNOWN: no valid candidate portfolio**")
	assert.Contains(t, md, "| Net Gain | n/a |")
}

func TestDecideCmd_Errors(t *testing.T) {
	setup(t, nil)
	assert.Equal(t, subcommands.ExitUsageError, run(t, &decideCmd{}, "-d", "not a date"))

	setup(t, map[string]string{"config": "cost_rate_pct: -1\n"})
	assert.Equal(t, subcommands.ExitFailure, run(t, &decideCmd{}))

	f := flag.NewFlagSet("decide", flag.ContinueOnError)
	f.SetOutput(new(bytes.Buffer))
	(&decideCmd{}).SetFlags(f)
	assert.Error(t, f.Parse([]string{"-rate", "abc"}))
}

func TestReplayCmd(t *testing.T) {
	out := setup(t, map[string]string{"ledger": testLedger +
		`{"date":"2025-01-05","name":"A","side":"SELL","quantity":5,"price":110}
`})

	require.Equal(t, subcommands.ExitSuccess, run(t, &replayCmd{}, "-d", "2025-01-10"))
	md := out.String()
	assert.Contains(t, md, "## 2025-01-02")
	assert.Contains(t, md, "## 2025-01-05")

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &replayCmd{}, "-d", "2025-01-03"))
	assert.Contains(t, out.String(), "## 2025-01-02")
	assert.NotContains(t, out.String(), "## 2025-01-05")

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &replayCmd{}, "-d", "2025-01-10", "-last"))
	assert.NotContains(t, out.String(), "## 2025-01-02")
	assert.Contains(t, out.String(), "## 2025-01-05")
}

func TestReplayCmd_MissingLedger(t *testing.T) {
	setup(t, nil)
	old := *ledgerFile
	*ledgerFile = filepath.Join(t.TempDir(), "none.jsonl")
	defer func() { *ledgerFile = old }()

	assert.Equal(t, subcommands.ExitFailure, run(t, &replayCmd{}))
}

func TestEstimateCmd(t *testing.T) {
	out := setup(t, nil)

	require.Equal(t, subcommands.ExitSuccess, run(t, &estimateCmd{}, "-d", "2025-01-03", "-with-candidate"))
	md := out.String()
	assert.Contains(t, md, "## Implemented Portfolio")
	assert.Contains(t, md, "**4.00%**")
	assert.Contains(t, md, "## Candidate Portfolio")
	assert.Contains(t, md, "**9.00%**")
}

func TestEstimateCmd_JSONFeed(t *testing.T) {
	out := setup(t, nil)
	feed := filepath.Join(t.TempDir(), "feed.json")
	require.NoError(t, os.WriteFile(feed, []byte(`{"snapshots":[{"symbol":"A","price":100,"target_price":110}]}`), 0o644))
	old := *snapshotsFile
	*snapshotsFile = feed
	defer func() { *snapshotsFile = old }()

	require.Equal(t, subcommands.ExitSuccess, run(t, &estimateCmd{}, "-d", "2025-01-03"))
	assert.Contains(t, out.String(), "**10.00%**")
}

func TestCostCmd(t *testing.T) {
	out := setup(t, map[string]string{"candidate": `{"A":0.5,"B":0.5}`})

	require.Equal(t, subcommands.ExitSuccess, run(t, &costCmd{}, "-d", "2025-01-03", "-rate", "2"))
	md := out.String()
	assert.Contains(t, md, "| Turnover | 50.00% |")
	assert.Contains(t, md, "| Cost Rate | 2.00% |")
	assert.Contains(t, md, "| Transition Cost | 1.00% |")
}

func TestCostCmd_InvalidCandidate(t *testing.T) {
	setup(t, map[string]string{"candidate": `{"A":0.5}`})

	assert.Equal(t, subcommands.ExitFailure, run(t, &costCmd{}, "-d", "2025-01-03"))
	assert.Equal(t, subcommands.ExitUsageError, run(t, &costCmd{}, "-rate", "-1"))
}

func TestResolveCmd(t *testing.T) {
	out := setup(t, map[string]string{"config": "aliases:\n  Acme Holding: ACME3\n"})

	require.Equal(t, subcommands.ExitSuccess, run(t, &resolveCmd{}, "Petrobras PN N2", "acme holding", "vale3"))
	md := out.String()
	assert.Contains(t, md, "| Petrobras PN N2 | PETR4 | X | PETR3, PETR5, PETR6, PETR11 |")
	assert.Contains(t, md, "| acme holding | ACME3 | X |")
	assert.Contains(t, md, "| vale3 | VALE3 |  |")

	assert.Equal(t, subcommands.ExitUsageError, run(t, &resolveCmd{}))
}

func TestResolveCmd_Aliases(t *testing.T) {
	out := setup(t, map[string]string{"config": "no_default_aliases: true\naliases:\n  Acme Holding: ACME3\n"})

	require.Equal(t, subcommands.ExitSuccess, run(t, &resolveCmd{}, "-aliases"))
	md := out.String()
	assert.Contains(t, md, "| ACMEHOLDING | ACME3 | X |")
	assert.NotContains(t, md, "PETR4")
}

func TestTopicCmd(t *testing.T) {
	out := setup(t, nil)

	require.Equal(t, subcommands.ExitSuccess, run(t, &topicCmd{}))
	assert.Contains(t, out.String(), "| decision | how the rebalance decision is taken |")

	out.Reset()
	require.Equal(t, subcommands.ExitSuccess, run(t, &topicCmd{}, "decision"))
	assert.True(t, strings.HasPrefix(out.String(), "# "), "topic must start with its title:\n%s", out.String())

	assert.Equal(t, subcommands.ExitFailure, run(t, &topicCmd{}, "no-such-topic"))
}

func TestRegister(t *testing.T) {
	c := subcommands.NewCommander(flag.NewFlagSet("rebal", flag.ContinueOnError), "rebal")
	Register(c)

	var names []string
	c.VisitCommands(func(g *subcommands.CommandGroup, cmd subcommands.Command) {
		names = append(names, g.Name()+"/"+cmd.Name())
	})
	assert.Contains(t, names, "portfolio/decide")
	assert.Contains(t, names, "assistant/explain")
	assert.Contains(t, names, "help/topic")
}

func TestCompletion(t *testing.T) {
	c := Completion()
	for _, cmd := range Commands {
		assert.Contains(t, c.Sub, cmd.Name())
	}
	assert.Contains(t, c.Sub["decide"].Flags, "threshold")
	assert.Contains(t, c.Flags, "ledger")
}
