package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/olivierh59500/xmkit/pkg/config"
	"github.com/olivierh59500/xmkit/pkg/xm"
)

type command struct {
	name  string
	args  string
	help  string
	run   func(a *app, fs *pflag.FlagSet, args []string) error
	flags func(fs *pflag.FlagSet)
}

var commands = []command{
	{name: "info", args: "<module>", help: "show module header and slot usage", run: runInfo, flags: infoFlags},
	{name: "convert", args: "<module> <out.xm>", help: "load any supported module and save it as XM", run: runConvert, flags: convertFlags},
	{name: "dump", args: "<module>", help: "dump decoded structures", run: runDump, flags: dumpFlags},
	{name: "export-sample", args: "<module> <instrument> <sample> <out.wav>", help: "write a sample as WAV", run: runExportSample},
	{name: "import-sample", args: "<module> <instrument> <sample> <in.wav> <out.xm>", help: "replace a sample with a WAV file", run: runImportSample},
	{name: "extract-xi", args: "<module> <instrument> <out.xi>", help: "write an instrument as XI", run: runExtractXI},
	{name: "insert-xi", args: "<module> <instrument> <in.xi> <out.xm>", help: "replace an instrument with an XI file", run: runInsertXI},
	{name: "snapshot-save", args: "<module> <pattern> <out.snap>", help: "write a pattern snapshot", run: runSnapshotSave},
	{name: "snapshot-load", args: "<module> <pattern> <in.snap> <out.xm>", help: "paste a pattern snapshot", run: runSnapshotLoad, flags: snapshotFlags},
	{name: "midi", args: "<module> <instrument>", help: "print the MIDI messages of an instrument", run: runMIDI},
	{name: "play-sample", args: "<module> <instrument> <sample>", help: "audition a sample", run: runPlaySample, flags: playFlags},
}

// app holds what every command shares: settings, logger and codec options.
type app struct {
	cfg    config.Config
	logger *log.Logger
	opts   []xm.Option
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [global options] <command> [options] <args>\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "xmkit - inspect and convert tracker modules\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-14s %s\n", c.name, c.help)
	}
	fmt.Fprintf(os.Stderr, "\nGlobal options:\n")
	pflag.PrintDefaults()
}

func main() {
	configPath := pflag.String("config", config.DefaultPath, "settings file")
	charset := pflag.String("charset", "", "code page for names (latin1, cp437)")
	tmpDir := pflag.String("tmp", "", "directory for unpacked archives")
	verbose := pflag.BoolP("verbose", "v", false, "log every load warning")
	pflag.Usage = usage
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	if *charset != "" {
		cfg.Charset = *charset
	}
	if *tmpDir != "" {
		cfg.TempDir = *tmpDir
	}
	cfg.Verbose = cfg.Verbose || *verbose

	a := &app{cfg: cfg, logger: log.New(os.Stderr, "xmkit: ", 0)}
	a.opts = []xm.Option{xm.WithCharset(xm.ParseCharset(cfg.Charset))}
	if cfg.Verbose {
		a.opts = append(a.opts, xm.WithLogger(a.logger))
	}

	name := pflag.Arg(0)
	for _, c := range commands {
		if c.name != name {
			continue
		}
		fs := pflag.NewFlagSet(c.name, pflag.ExitOnError)
		fs.Usage = func() {
			fmt.Fprintf(os.Stderr, "Usage: %s %s [options] %s\n", os.Args[0], c.name, c.args)
			fs.PrintDefaults()
		}
		if c.flags != nil {
			c.flags(fs)
		}
		fs.Parse(pflag.Args()[1:])
		if err := c.run(a, fs, fs.Args()); err != nil {
			a.logger.Fatalf("%s: %v", c.name, err)
		}
		return
	}
	log.Fatalf("Unknown command: %s", name)
}

// load reads a module and prints a one line summary of any repairs.
func (a *app) load(path string) *xm.Module {
	m, rep, err := xm.LoadFile(path, a.cfg.TempDir, a.opts...)
	if err != nil {
		if xm.IsNotModule(err) {
			a.logger.Fatalf("%s is not a supported module", path)
		}
		a.logger.Fatalf("Failed to load %s: %v", path, err)
	}
	if n := len(rep.Warnings); n > 0 {
		status := "repaired"
		if rep.Partial() {
			status = "partially loaded"
		}
		a.logger.Printf("%s: %s, %d warnings", path, status, n)
	}
	return m
}

func (a *app) variant() xm.Variant {
	if a.cfg.Save.WithoutSamples {
		return xm.VariantXMNoSamples
	}
	return xm.VariantXM
}

func (a *app) save(path string, m *xm.Module) error {
	return xm.SaveFile(path, m, a.variant(), append(a.opts, xm.WithLogger(a.logger))...)
}

func needArgs(fs *pflag.FlagSet, args []string, n int) error {
	if len(args) != n {
		fs.Usage()
		return fmt.Errorf("want %d arguments, got %d", n, len(args))
	}
	return nil
}

// slot parses a decimal index and checks it against [lo, hi].
func slot(arg, what string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", what, arg, err)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s %d out of range %d-%d", what, v, lo, hi)
	}
	return v, nil
}

func instrumentArg(m *xm.Module, arg string) (*xm.Instrument, int, error) {
	n, err := slot(arg, "instrument", 1, xm.MaxInstruments)
	if err != nil {
		return nil, 0, err
	}
	return m.Instruments[n-1], n, nil
}

func sampleArg(ins *xm.Instrument, arg string) (*xm.Sample, int, error) {
	n, err := slot(arg, "sample", 0, xm.MaxSamples-1)
	if err != nil {
		return nil, 0, err
	}
	return ins.Samples[n], n, nil
}

func closeOrLog(c io.Closer, logger *log.Logger) {
	if err := c.Close(); err != nil {
		logger.Printf("close: %v", err)
	}
}
