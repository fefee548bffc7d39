package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/classflow/go-classflow/classfile"
	"github.com/classflow/go-classflow/flow"
)

var (
	methodFlag = &cli.StringFlag{
		Name:  "method",
		Usage: "method name to analyze (all methods when omitted)",
	}
	descriptorFlag = &cli.StringFlag{
		Name:  "descriptor",
		Usage: "raw method descriptor, to disambiguate overloads",
	}
	dotFlag = &cli.BoolFlag{
		Name:  "dot",
		Usage: "emit Graphviz dot instead of text",
	}
	outFlag = &cli.StringFlag{
		Name:  "out",
		Usage: "write output to a file instead of stdout",
	}
)

var cfgCommand = &cli.Command{
	Name:      "cfg",
	Usage:     "build control flow graphs for a class file's methods",
	ArgsUsage: "<file.class>",
	Flags: []cli.Flag{
		methodFlag,
		descriptorFlag,
		dotFlag,
		outFlag,
	},
	Action: runCFG,
}

func runCFG(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("expected exactly one class file argument")
	}
	data, err := os.ReadFile(ctx.Args().First())
	if err != nil {
		return err
	}
	cf, err := classfile.Parse(data)
	if err != nil {
		return err
	}

	out := os.Stdout
	if path := ctx.String(outFlag.Name); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	name := ctx.String(methodFlag.Name)
	desc := ctx.String(descriptorFlag.Name)
	matched := false
	for i := range cf.Methods {
		m := &cf.Methods[i]
		if name != "" && m.Name != name {
			continue
		}
		if desc != "" && m.RawDescriptor != desc {
			continue
		}
		matched = true
		g, err := flow.BuildMethod(m)
		if err != nil {
			return err
		}
		if g == nil {
			continue
		}
		title := cf.ThisClass.BinaryName + "." + m.Name + m.RawDescriptor
		if ctx.Bool(dotFlag.Name) {
			out.Write(flow.DOT(g, title))
			continue
		}
		printGraph(out, title, g)
	}
	if !matched && name != "" {
		return fmt.Errorf("no method %s%s in %s", name, desc, cf.ThisClass.BinaryName)
	}
	return nil
}

func printGraph(out *os.File, title string, g *flow.Graph) {
	fmt.Fprintf(out, "%s: %d blocks\n", title, len(g.Blocks))
	for _, blk := range g.Blocks {
		fmt.Fprintf(out, "  %s\n", blk)
		for i := range blk.Instructions {
			fmt.Fprintf(out, "    %s\n", blk.Instructions[i].String())
		}
		for _, e := range blk.Out {
			fmt.Fprintf(out, "    => %s\n", e)
		}
	}
	fmt.Fprintln(out)
}
