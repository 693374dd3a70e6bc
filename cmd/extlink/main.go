package main

import (
	"debug/elf"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli/v2"
	"github.com/xyproto/env/v2"

	"github.com/wnxd/extlink/arch"
	"github.com/wnxd/extlink/arch/amd64"
	"github.com/wnxd/extlink/arch/arm"
	"github.com/wnxd/extlink/arch/arm64"
	"github.com/wnxd/extlink/arch/xtensa"
	"github.com/wnxd/extlink/extension"
	"github.com/wnxd/extlink/internal/elffile"
	"github.com/wnxd/extlink/linker"
	"github.com/wnxd/extlink/loader"
)

func main() {
	app := cli.NewApp()
	app.Name = "extlink"
	app.Usage = "extension object inspector and linker"
	app.Description = "inspect relocatable extension objects and dry-link them into process memory"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Value:   env.Bool("EXTLINK_VERBOSE"),
		},
	}
	app.Commands = []*cli.Command{
		{
			Name:   "info",
			Action: info,
			Usage:  "display sections, region placement and symbols of an object",
			Args:   true,
		},
		{
			Name:   "link",
			Action: link,
			Usage:  "link an object into memory and report resolutions",
			Flags: []cli.Flag{
				&cli.StringSliceFlag{
					Name:    "export",
					Aliases: []string{"e"},
					Usage:   "builtin export as name=hexaddr, repeatable",
				},
				&cli.BoolFlag{
					Name:  "device-exports",
					Usage: "mark device objects as exported",
				},
			},
			Args: true,
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func info(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("missing object file")
	}
	ldr, ext, err := elffile.Open(c.Args().First())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s: machine %v class %v, %d sections\n",
		ext.Name, ldr.Hdr.Machine, ldr.Hdr.Class, ldr.Hdr.Shnum)
	for i := range ext.SectHdrs {
		sh := &ext.SectHdrs[i]
		ref := ldr.SectMap[i]
		placed := "-"
		if ref.Mem != loader.MemCount {
			placed = fmt.Sprintf("%v+%#x", ref.Mem, ref.Offset)
		}
		fmt.Fprintf(c.App.Writer, "  [%2d] %-24s %-12v size %#6x %s\n",
			i, ldr.SectionName(sh), sh.Type, sh.Size, placed)
	}
	fmt.Fprintf(c.App.Writer, "exports: %d, private symbols: %d\n", len(ext.ExpTab), len(ext.SymTab))
	if c.Bool("verbose") {
		spew.Fdump(c.App.Writer, ext.ExpTab)
	}
	return nil
}

func link(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("missing object file")
	}
	ldr, ext, err := elffile.Open(c.Args().First())
	if err != nil {
		return err
	}
	rel, err := relocatorFor(ldr.Hdr.Machine)
	if err != nil {
		return err
	}
	reg := extension.NewRegistry()
	reg.DeviceExports = c.Bool("device-exports")
	for _, e := range c.StringSlice("export") {
		name, addr, ok := strings.Cut(e, "=")
		if !ok {
			return fmt.Errorf("invalid export %q", e)
		}
		v, err := strconv.ParseUint(strings.TrimPrefix(addr, "0x"), 16, 64)
		if err != nil {
			return fmt.Errorf("invalid export address %q: %w", addr, err)
		}
		reg.Export(extension.Symbol{Name: name, Addr: v})
	}

	lk := linker.New(reg, rel, cacheFor())
	report, err := lk.LinkReport(ldr, ext, nil)
	for _, d := range report.Diags {
		fmt.Fprintf(c.App.ErrWriter, "diag: %v\n", d)
	}
	if err != nil {
		return err
	}
	reg.Insert(ext)
	fmt.Fprintf(c.App.Writer, "%s linked\n", ext.Name)
	for m := loader.Mem(0); m < loader.MemCount; m++ {
		if r := ext.Region(m); !r.Empty() {
			fmt.Fprintf(c.App.Writer, "  %-8v %#x..%#x\n", m, r.Addr, r.Addr+r.Size())
		}
	}
	for _, sym := range ext.ExpTab {
		fmt.Fprintf(c.App.Writer, "  export %s = %#x\n", sym.Name, sym.Addr)
	}
	if c.Bool("verbose") {
		spew.Fdump(c.App.Writer, report)
	}
	return nil
}

func relocatorFor(m elf.Machine) (arch.Relocator, error) {
	switch m {
	case elf.EM_AARCH64:
		return arm64.New(), nil
	case elf.EM_ARM:
		return arm.New(), nil
	case elf.EM_X86_64:
		return amd64.New(), nil
	case elf.EM_XTENSA:
		return xtensa.New(), nil
	}
	return nil, fmt.Errorf("machine %v: %w", m, arch.ErrUnsupported)
}
