package main

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/classflow/go-classflow/classfile"
)

var dumpCommand = &cli.Command{
	Name:      "dump",
	Usage:     "decode a class file and print its structure",
	ArgsUsage: "<file.class>",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "code",
			Usage: "disassemble method bodies",
		},
	},
	Action: runDump,
}

func runDump(ctx *cli.Context) error {
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
	if ctx.Bool(debugFlag.Name) {
		spew.Fdump(os.Stderr, cf)
	}
	printClass(cf, ctx.Bool("code"))
	return nil
}

func printClass(cf *classfile.ClassFile, withCode bool) {
	heading := color.New(color.Bold)
	heading.Printf("class %s\n", cf.ThisClass.BinaryName)
	fmt.Printf("  version:    %s (Java %d)\n", cf.Version, cf.Version.JavaRelease())
	fmt.Printf("  flags:      %s\n", cf.Flags.ClassString())
	if cf.SuperClass != nil {
		fmt.Printf("  super:      %s\n", cf.SuperClass.BinaryName)
	}
	for _, iface := range cf.Interfaces {
		fmt.Printf("  implements: %s\n", iface.BinaryName)
	}
	if sf := cf.SourceFile(); sf != "" {
		fmt.Printf("  source:     %s\n", sf)
	}
	fmt.Println()

	if len(cf.Fields) > 0 {
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Field", "Type", "Flags", "Constant"})
		for i := range cf.Fields {
			f := &cf.Fields[i]
			constant := ""
			if cv := f.ConstantValue(); cv != nil {
				constant = cv.String()
			}
			table.Append([]string{f.Name, f.Descriptor.String(), f.Flags.FieldString(), constant})
		}
		table.Render()
		fmt.Println()
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Method", "Descriptor", "Flags", "Code"})
	for i := range cf.Methods {
		m := &cf.Methods[i]
		size := "-"
		if code := m.Code(); code != nil {
			size = fmt.Sprintf("%d bytes, %d insns", len(code.Bytes), len(code.Instructions))
		}
		table.Append([]string{m.Name, m.RawDescriptor, m.Flags.MethodString(), size})
	}
	table.Render()

	if withCode {
		for i := range cf.Methods {
			m := &cf.Methods[i]
			code := m.Code()
			if code == nil {
				continue
			}
			fmt.Println()
			heading.Printf("%s%s\n", m.Name, m.RawDescriptor)
			fmt.Printf("  stack=%d locals=%d\n", code.MaxStack, code.MaxLocals)
			for j := range code.Instructions {
				fmt.Printf("    %s\n", code.Instructions[j].String())
			}
			for _, h := range code.Exceptions {
				caught := "any"
				if h.CatchType != nil {
					caught = h.CatchType.BinaryName
				}
				fmt.Printf("  handler [%d, %d) -> %d catches %s\n", h.Start, h.End, h.Handler, caught)
			}
		}
	}
}
