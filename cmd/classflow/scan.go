package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/classflow/go-classflow/archive"
	"github.com/classflow/go-classflow/flow"
)

var scanCommand = &cli.Command{
	Name:      "scan",
	Usage:     "decode every class in jars or directories and report failures",
	ArgsUsage: "<path>...",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "graphs",
			Usage: "also build a control flow graph for every method body",
		},
	},
	Action: runScan,
}

// scanReport accumulates per-path outcomes.
type scanReport struct {
	Path    string
	Classes int
	Methods int
	Blocks  int
	Failed  []archive.Result
}

func runScan(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return fmt.Errorf("expected at least one jar, directory or class file")
	}
	log := newLogger(ctx)
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Output.Color != nil {
		color.NoColor = !*cfg.Output.Color
	}
	cache, err := flow.NewGraphCache(cfg.Cache.Graphs)
	if err != nil {
		return err
	}

	buildGraphs := ctx.Bool("graphs")
	reports := make([]scanReport, ctx.NArg())
	var mu sync.Mutex

	grp, gctx := errgroup.WithContext(ctx.Context)
	for i, path := range ctx.Args().Slice() {
		i, path := i, path
		grp.Go(func() error {
			entries, err := archive.Load(path)
			if err != nil {
				return err
			}
			results, err := archive.DecodeAll(gctx, log, entries)
			if err != nil {
				return err
			}
			report := scanReport{Path: path}
			for _, res := range results {
				if res.Err != nil {
					report.Failed = append(report.Failed, res)
					continue
				}
				report.Classes++
				report.Methods += len(res.Class.Methods)
				if !buildGraphs {
					continue
				}
				for j := range res.Class.Methods {
					code := res.Class.Methods[j].Code()
					if code == nil {
						continue
					}
					g, err := cache.Build(code)
					if err != nil {
						log.Warn("failed to build graph",
							"entry", res.Name, "method", res.Class.Methods[j].String(), "err", err)
						continue
					}
					report.Blocks += len(g.Blocks)
				}
			}
			mu.Lock()
			reports[i] = report
			mu.Unlock()
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	header := []string{"Path", "Classes", "Methods", "Failures"}
	if buildGraphs {
		header = append(header, "Blocks")
	}
	table.SetHeader(header)
	failures := 0
	for _, r := range reports {
		row := []string{r.Path, fmt.Sprint(r.Classes), fmt.Sprint(r.Methods), fmt.Sprint(len(r.Failed))}
		if buildGraphs {
			row = append(row, fmt.Sprint(r.Blocks))
		}
		table.Append(row)
		failures += len(r.Failed)
	}
	table.Render()

	for _, r := range reports {
		for _, res := range r.Failed {
			color.Red("%s!%s: %v", r.Path, res.Name, res.Err)
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d classes failed to decode", failures)
	}
	color.Green("all classes decoded")
	return nil
}
