package main

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/SkyHighSundae1/android-aosp-16-dev-beta-1-platform/compiler/optimizing"
)

var (
	codeFlag = &cli.StringFlag{
		Name:  "code",
		Usage: "method bytecode as hex code units, e.g. '1210 0f00'",
	}
	codeFileFlag = &cli.StringFlag{
		Name:  "code-file",
		Usage: "file holding the hex code units",
	}
	registersFlag = &cli.UintFlag{
		Name:  "registers",
		Usage: "registers_size of the method",
		Value: 1,
	}
	insFlag = &cli.UintFlag{
		Name:  "ins",
		Usage: "ins_size of the method (argument vregs)",
	}
	shortyFlag = &cli.StringFlag{
		Name:  "shorty",
		Usage: "method shorty, return kind first",
		Value: "V",
	}
	staticFlag = &cli.BoolFlag{
		Name:  "static",
		Usage: "treat the method as static (no receiver)",
		Value: true,
	}
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML config file",
	}
	verboseFlag = &cli.BoolFlag{
		Name:  "verbose",
		Usage: "enable debug logging",
	}
)

func main() {
	app := &cli.App{
		Name:   "graphdump",
		Usage:  "build the optimizing graph of a dex method and print it",
		Flags:  []cli.Flag{codeFlag, codeFileFlag, registersFlag, insFlag, shortyFlag, staticFlag, configFlag, verboseFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	if ctx.Bool(verboseFlag.Name) {
		optimizing.EnableGraphDebugLogs(true)
	}

	cfg := optimizing.DefaultConfig()
	if path := ctx.String(configFlag.Name); path != "" {
		var err error
		if cfg, err = optimizing.LoadConfig(path); err != nil {
			return err
		}
	}

	hexCode := ctx.String(codeFlag.Name)
	if path := ctx.String(codeFileFlag.Name); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		hexCode = string(data)
	}
	if hexCode == "" {
		return fmt.Errorf("one of --%s or --%s is required", codeFlag.Name, codeFileFlag.Name)
	}
	insns, err := parseCodeUnits(hexCode)
	if err != nil {
		return err
	}

	sig := &optimizing.MethodSignature{
		Shorty:   ctx.String(shortyFlag.Name),
		IsStatic: ctx.Bool(staticFlag.Name),
	}
	code := optimizing.NewCodeItemAccessor(insns,
		uint16(ctx.Uint(registersFlag.Name)), uint16(ctx.Uint(insFlag.Name)), nil)

	key := optimizing.MethodKey(sha256.Sum256(unitBytes(insns)))
	g, res := optimizing.NewGraphBuilder(code, sig, nil, cfg).WithCacheKey(key).BuildGraph()
	if res != optimizing.AnalysisSuccess {
		return fmt.Errorf("graph build failed: %s", res)
	}
	defer g.Free()

	optimizing.DumpGraph(os.Stdout, g)
	return nil
}

// parseCodeUnits reads whitespace-separated 16-bit hex code units.
func parseCodeUnits(s string) ([]uint16, error) {
	fields := strings.Fields(s)
	insns := make([]uint16, 0, len(fields))
	for _, f := range fields {
		u, err := strconv.ParseUint(f, 16, 16)
		if err != nil {
			return nil, fmt.Errorf("bad code unit %q: %w", f, err)
		}
		insns = append(insns, uint16(u))
	}
	if len(insns) == 0 {
		return nil, fmt.Errorf("empty bytecode")
	}
	return insns, nil
}

func unitBytes(insns []uint16) []byte {
	out := make([]byte, 0, len(insns)*2)
	for _, u := range insns {
		out = append(out, byte(u), byte(u>>8))
	}
	return out
}
