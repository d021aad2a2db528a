package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/olivierh59500/xmkit/pkg/audio"
	"github.com/olivierh59500/xmkit/pkg/xm"
)

func infoFlags(fs *pflag.FlagSet) {
	fs.BoolP("yaml", "y", false, "print as YAML")
}

func runInfo(a *app, fs *pflag.FlagSet, args []string) error {
	if err := needArgs(fs, args, 1); err != nil {
		return err
	}
	asYAML, _ := fs.GetBool("yaml")

	data, err := os.ReadFile(args[0])
	if err == nil {
		if format, channels, err := xm.GetInfo(data); err == nil {
			fmt.Printf("File format: %s, %d channels\n", format, channels)
		}
	}

	m := a.load(args[0])
	sum := m.Summary()
	if asYAML {
		out, err := yaml.Marshal(sum)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	}

	fmt.Printf("Title:       %s\n", strings.TrimRight(sum.Name, " "))
	fmt.Printf("Tracker:     %s\n", strings.TrimRight(sum.Tracker, " "))
	fmt.Printf("Channels:    %d\n", sum.Channels)
	fmt.Printf("Speed:       %d ticks, %d BPM\n", sum.Tempo, sum.BPM)
	fmt.Printf("Song length: %d (restart %d)\n", sum.SongLength, sum.Restart)
	fmt.Printf("Patterns:    %d\n", sum.Patterns)
	fmt.Printf("Instruments: %d (%d samples)\n", sum.Instruments, sum.Samples)
	for i := 0; i < sum.Instruments; i++ {
		ins := m.Instruments[i]
		if ins.Name == "" && ins.NumUsedSamples() == 0 {
			continue
		}
		fmt.Printf("  %3d %-22s %d samples\n", i+1, ins.Name, ins.NumUsedSamples())
	}
	return nil
}

func convertFlags(fs *pflag.FlagSet) {
	fs.Bool("no-samples", false, "write sample headers without sample data")
}

func runConvert(a *app, fs *pflag.FlagSet, args []string) error {
	if err := needArgs(fs, args, 2); err != nil {
		return err
	}
	if noSamples, _ := fs.GetBool("no-samples"); noSamples {
		a.cfg.Save.WithoutSamples = true
	}
	m := a.load(args[0])
	if err := a.save(args[1], m); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", args[1])
	return nil
}

func dumpFlags(fs *pflag.FlagSet) {
	fs.IntP("pattern", "p", -1, "dump one pattern")
	fs.IntP("instrument", "i", 0, "dump one instrument (1-based)")
}

func runDump(a *app, fs *pflag.FlagSet, args []string) error {
	if err := needArgs(fs, args, 1); err != nil {
		return err
	}
	m := a.load(args[0])
	cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true}

	if p, _ := fs.GetInt("pattern"); p >= 0 {
		if p >= xm.MaxPatterns {
			return fmt.Errorf("pattern %d out of range", p)
		}
		printPattern(m, m.Patterns[p])
		return nil
	}
	if n, _ := fs.GetInt("instrument"); n > 0 {
		ins, _, err := instrumentArg(m, fmt.Sprint(n))
		if err != nil {
			return err
		}
		used := ins.NumUsedSamples()
		view := *ins
		for i := used; i < xm.MaxSamples; i++ {
			view.Samples[i] = nil
		}
		for i := 0; i < used; i++ {
			s := *view.Samples[i]
			s.Data = nil
			view.Samples[i] = &s
		}
		cfg.Fdump(os.Stdout, view)
		return nil
	}
	cfg.Fdump(os.Stdout, m.Summary())
	return nil
}

func printPattern(m *xm.Module, p *xm.Pattern) {
	for row := 0; row < p.Length; row++ {
		cells := make([]string, 0, m.NumChannels)
		for ch := 0; ch < m.NumChannels; ch++ {
			if c := p.Cell(row, ch); c != nil {
				cells = append(cells, c.String())
			}
		}
		fmt.Printf("%02X | %s\n", row, strings.Join(cells, " | "))
	}
}

func runExportSample(a *app, fs *pflag.FlagSet, args []string) error {
	if err := needArgs(fs, args, 4); err != nil {
		return err
	}
	m := a.load(args[0])
	ins, _, err := instrumentArg(m, args[1])
	if err != nil {
		return err
	}
	s, _, err := sampleArg(ins, args[2])
	if err != nil {
		return err
	}
	if s.Length == 0 {
		return fmt.Errorf("sample %s of instrument %s is empty", args[2], args[1])
	}
	f, err := os.Create(args[3])
	if err != nil {
		return err
	}
	defer closeOrLog(f, a.logger)
	if err := xm.ExportWAV(f, s); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d frames, %d Hz)\n", args[3], s.Length, xm.SampleRate(s))
	return nil
}

func runImportSample(a *app, fs *pflag.FlagSet, args []string) error {
	if err := needArgs(fs, args, 5); err != nil {
		return err
	}
	m := a.load(args[0])
	ins, _, err := instrumentArg(m, args[1])
	if err != nil {
		return err
	}
	_, idx, err := sampleArg(ins, args[2])
	if err != nil {
		return err
	}
	f, err := os.Open(args[3])
	if err != nil {
		return err
	}
	s, err := xm.ImportWAV(f)
	f.Close()
	if err != nil {
		return err
	}
	base := filepath.Base(args[3])
	s.Name = strings.TrimSuffix(base, filepath.Ext(base))
	ins.Samples[idx] = s
	return a.save(args[4], m)
}

func runExtractXI(a *app, fs *pflag.FlagSet, args []string) error {
	if err := needArgs(fs, args, 3); err != nil {
		return err
	}
	m := a.load(args[0])
	ins, _, err := instrumentArg(m, args[1])
	if err != nil {
		return err
	}
	f, err := os.Create(args[2])
	if err != nil {
		return err
	}
	defer closeOrLog(f, a.logger)
	return xm.SaveXI(f, ins, a.opts...)
}

func runInsertXI(a *app, fs *pflag.FlagSet, args []string) error {
	if err := needArgs(fs, args, 4); err != nil {
		return err
	}
	m := a.load(args[0])
	_, n, err := instrumentArg(m, args[1])
	if err != nil {
		return err
	}
	f, err := os.Open(args[2])
	if err != nil {
		return err
	}
	ins, rep, err := xm.LoadXI(f, a.opts...)
	f.Close()
	if err != nil {
		return err
	}
	if len(rep.Warnings) > 0 {
		a.logger.Printf("%s: %d warnings", args[2], len(rep.Warnings))
	}
	m.SetInstrument(n-1, ins)
	return a.save(args[3], m)
}

func patternArg(m *xm.Module, arg string) (*xm.Pattern, error) {
	n, err := slot(arg, "pattern", 0, xm.MaxPatterns-1)
	if err != nil {
		return nil, err
	}
	return m.Patterns[n], nil
}

func runSnapshotSave(a *app, fs *pflag.FlagSet, args []string) error {
	if err := needArgs(fs, args, 3); err != nil {
		return err
	}
	m := a.load(args[0])
	p, err := patternArg(m, args[1])
	if err != nil {
		return err
	}
	f, err := os.Create(args[2])
	if err != nil {
		return err
	}
	defer closeOrLog(f, a.logger)
	return xm.WritePatternSnapshot(f, p, m.NumChannels)
}

func snapshotFlags(fs *pflag.FlagSet) {
	fs.Bool("resize", false, "resize the pattern to the snapshot row count")
}

func runSnapshotLoad(a *app, fs *pflag.FlagSet, args []string) error {
	if err := needArgs(fs, args, 4); err != nil {
		return err
	}
	m := a.load(args[0])
	p, err := patternArg(m, args[1])
	if err != nil {
		return err
	}
	f, err := os.Open(args[2])
	if err != nil {
		return err
	}
	snap, err := xm.ReadPatternSnapshot(f)
	f.Close()
	if err != nil {
		return err
	}
	if resize, _ := fs.GetBool("resize"); resize && snap.Rows != p.Length {
		p.Resize(snap.Rows)
	}
	if err := snap.ApplyTo(p, m.NumChannels); err != nil {
		return fmt.Errorf("%w (pattern has %d rows, snapshot %d; use --resize)", err, p.Length, snap.Rows)
	}
	return a.save(args[3], m)
}

func runMIDI(a *app, fs *pflag.FlagSet, args []string) error {
	if err := needArgs(fs, args, 2); err != nil {
		return err
	}
	m := a.load(args[0])
	ins, n, err := instrumentArg(m, args[1])
	if err != nil {
		return err
	}
	setup := xm.MIDISetup(ins)
	if setup == nil {
		fmt.Printf("Instrument %d has MIDI output off\n", n)
		return nil
	}
	fmt.Printf("Setup:\n")
	for _, msg := range setup {
		fmt.Printf("  % X  %s\n", []byte(msg), msg)
	}
	fmt.Printf("Notes:\n")
	for pos := 0; pos < m.SongLength; pos++ {
		p := m.Patterns[m.Orders[pos]]
		for row := 0; row < p.Length; row++ {
			for ch := 0; ch < m.NumChannels; ch++ {
				c := p.Cell(row, ch)
				if c == nil || int(c.Instrument) != n {
					continue
				}
				if msg, ok := xm.MIDINote(ins, *c); ok {
					fmt.Printf("  %02X:%02X ch%02d  % X  %s\n", pos, row, ch, []byte(msg), msg)
				}
			}
		}
	}
	return nil
}

func playFlags(fs *pflag.FlagSet) {
	fs.IntP("note", "n", audio.PreviewNote, "note to play (49 = C-4)")
	fs.Duration("max", 5*time.Second, "stop looping samples after this long")
	fs.StringP("output", "o", "oto", "output backend (oto, wav, null)")
	fs.String("wav", "preview.wav", "output file for the wav backend")
}

func runPlaySample(a *app, fs *pflag.FlagSet, args []string) error {
	if err := needArgs(fs, args, 3); err != nil {
		return err
	}
	m := a.load(args[0])
	ins, _, err := instrumentArg(m, args[1])
	if err != nil {
		return err
	}
	s, _, err := sampleArg(ins, args[2])
	if err != nil {
		return err
	}
	note, _ := fs.GetInt("note")
	maxDur, _ := fs.GetDuration("max")
	backend, _ := fs.GetString("output")
	wavFile, _ := fs.GetString("wav")

	var out audio.Output
	switch backend {
	case "oto":
		out = audio.NewOtoOutput()
	case "wav":
		out = audio.NewWAVOutput(wavFile)
	case "null":
		out = &audio.NullOutput{}
	default:
		return fmt.Errorf("unknown output backend: %s", backend)
	}

	rate := a.cfg.Preview.SampleRate
	src := audio.NewSampleSource(s, note, rate, maxDur)
	player := audio.NewPlayer(src, out)
	if err := player.Start(rate, a.cfg.Preview.BufferSize); err != nil {
		if backend != "oto" {
			return err
		}
		a.logger.Printf("Warning: audio device unavailable (%v), using null output", err)
		player = audio.NewPlayer(src, &audio.NullOutput{})
		if err := player.Start(rate, a.cfg.Preview.BufferSize); err != nil {
			return err
		}
	}
	fmt.Printf("Playing %q at note %d...\n", s.Name, note)
	return player.Wait()
}
