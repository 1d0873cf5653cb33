package cmd

import (
	"flag"
	"path/filepath"

	"github.com/etnz/rebalance/docs"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Completion returns the shell completion tree of the rebal command.
func Completion() *complete.Command {
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: flagPredictors(flag.CommandLine),
	}
	for _, c := range Commands {
		fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		c.SetFlags(fs)
		root.Sub[c.Name()] = &complete.Command{Flags: flagPredictors(fs)}
	}
	if topics, err := docs.GetAllTopics(); err == nil {
		root.Sub["topic"].Args = predict.Set(append(topics, "*"))
	}
	return root
}

// boolFlag is implemented by boolean flag values.
type boolFlag interface {
	IsBoolFlag() bool
}

// flagPredictors predicts flag values from their defaults: file flags
// complete file names with the same extension.
func flagPredictors(fs *flag.FlagSet) map[string]complete.Predictor {
	flags := make(map[string]complete.Predictor)
	fs.VisitAll(func(f *flag.Flag) {
		if b, ok := f.Value.(boolFlag); ok && b.IsBoolFlag() {
			flags[f.Name] = predict.Nothing
			return
		}
		switch ext := filepath.Ext(f.DefValue); ext {
		case ".jsonl", ".json", ".csv", ".yaml":
			flags[f.Name] = predict.Files("*" + ext)
			return
		}
		flags[f.Name] = predict.Something
	})
	return flags
}
