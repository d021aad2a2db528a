//go:build gui
// +build gui

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/olivierh59500/xmkit/pkg/audio"
	"github.com/olivierh59500/xmkit/pkg/config"
	"github.com/olivierh59500/xmkit/pkg/xm"
)

// maxPreview bounds the audition of looping samples.
const maxPreview = 8 * time.Second

type ViewerGUI struct {
	app    fyne.App
	window fyne.Window
	cfg    config.Config
	logger *log.Logger

	module *xm.Module
	path   string
	mutex  sync.Mutex

	// Preview
	player *audio.Player

	// UI Elements
	titleLabel     *widget.Label
	trackerLabel   *widget.Label
	songLabel      *widget.Label
	statusLabel    *widget.Label
	instrumentList *widget.List
	sampleList     *widget.List
	sampleInfo     *widget.Label
	patternSelect  *widget.Select
	patternGrid    *widget.TextGrid
	playButton     *widget.Button
	stopButton     *widget.Button

	instrument int
	sample     int
}

func NewViewerGUI(cfg config.Config) *ViewerGUI {
	v := &ViewerGUI{
		app:        app.New(),
		cfg:        cfg,
		logger:     log.New(os.Stderr, "xmkit-gui: ", 0),
		instrument: -1,
		sample:     -1,
	}
	v.app.Settings().SetTheme(&trackerTheme{})
	v.createUI()
	return v
}

func (v *ViewerGUI) options() []xm.Option {
	opts := []xm.Option{xm.WithCharset(xm.ParseCharset(v.cfg.Charset))}
	if v.cfg.Verbose {
		opts = append(opts, xm.WithLogger(v.logger))
	}
	return opts
}

func (v *ViewerGUI) createUI() {
	v.window = v.app.NewWindow("xmkit")
	v.window.Resize(fyne.NewSize(1000, 700))

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Module...", v.openModule),
		fyne.NewMenuItem("Save as XM...", v.saveModule),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export Sample to WAV...", v.exportSample),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", v.app.Quit),
	)
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", v.showAbout),
	)
	v.window.SetMainMenu(fyne.NewMainMenu(fileMenu, helpMenu))

	split := container.NewHSplit(v.createPatternContent(), v.createInstrumentContent())
	split.SetOffset(0.6)

	v.window.SetContent(container.NewBorder(v.createInfoCard(), nil, nil, nil, split))
	v.window.SetOnClosed(v.cleanup)
}

func (v *ViewerGUI) createInfoCard() fyne.CanvasObject {
	v.titleLabel = widget.NewLabel("No module loaded")
	v.titleLabel.TextStyle = fyne.TextStyle{Bold: true}
	v.trackerLabel = widget.NewLabel("")
	v.songLabel = widget.NewLabel("")
	v.statusLabel = widget.NewLabel("")

	return widget.NewCard("Module", "", container.NewVBox(
		v.titleLabel,
		container.NewHBox(v.trackerLabel, layout.NewSpacer(), v.statusLabel),
		v.songLabel,
	))
}

func (v *ViewerGUI) createPatternContent() fyne.CanvasObject {
	v.patternGrid = widget.NewTextGrid()
	v.patternSelect = widget.NewSelect(nil, func(choice string) {
		var idx int
		if _, err := fmt.Sscanf(choice, "Pattern %d", &idx); err == nil {
			v.showPattern(idx)
		}
	})
	top := container.NewHBox(widget.NewLabel("Pattern:"), v.patternSelect)
	return container.NewBorder(top, nil, nil, nil, container.NewScroll(v.patternGrid))
}

func (v *ViewerGUI) createInstrumentContent() fyne.CanvasObject {
	v.instrumentList = widget.NewList(
		func() int {
			v.mutex.Lock()
			defer v.mutex.Unlock()
			if v.module == nil {
				return 0
			}
			return xm.MaxInstruments
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("00 instrument name 00000")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			v.mutex.Lock()
			defer v.mutex.Unlock()
			if v.module == nil {
				return
			}
			ins := v.module.Instruments[id]
			text := fmt.Sprintf("%02X %s", id+1, ins.Name)
			if n := ins.NumUsedSamples(); n > 0 {
				text += fmt.Sprintf(" (%d)", n)
			}
			obj.(*widget.Label).SetText(text)
		},
	)
	v.instrumentList.OnSelected = func(id widget.ListItemID) {
		v.instrument, v.sample = id, -1
		v.sampleList.UnselectAll()
		v.sampleList.Refresh()
		v.sampleInfo.SetText("")
		v.playButton.Disable()
	}

	v.sampleList = widget.NewList(
		func() int {
			ins := v.selectedInstrument()
			if ins == nil {
				return 0
			}
			return ins.NumUsedSamples()
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("00 sample name")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			ins := v.selectedInstrument()
			if ins == nil {
				return
			}
			obj.(*widget.Label).SetText(fmt.Sprintf("%02d %s", id, ins.Samples[id].Name))
		},
	)
	v.sampleList.OnSelected = func(id widget.ListItemID) {
		v.sample = id
		s := v.selectedSample()
		if s == nil {
			return
		}
		v.sampleInfo.SetText(describeSample(s))
		if s.Length > 0 {
			v.playButton.Enable()
		} else {
			v.playButton.Disable()
		}
	}

	v.sampleInfo = widget.NewLabel("")
	v.playButton = widget.NewButtonWithIcon("", theme.MediaPlayIcon(), v.playSample)
	v.stopButton = widget.NewButtonWithIcon("", theme.MediaStopIcon(), v.stopSample)
	v.playButton.Disable()
	v.stopButton.Disable()

	controls := container.NewHBox(layout.NewSpacer(), v.playButton, v.stopButton, layout.NewSpacer())
	samples := container.NewBorder(nil, container.NewVBox(v.sampleInfo, controls), nil, nil, v.sampleList)

	split := container.NewVSplit(
		widget.NewCard("Instruments", "", v.instrumentList),
		widget.NewCard("Samples", "", samples),
	)
	split.SetOffset(0.5)
	return split
}

func describeSample(s *xm.Sample) string {
	channels := "mono"
	if s.Stereo {
		channels = "stereo"
	}
	text := fmt.Sprintf("%d frames, %d-bit %s, vol %d, fine %d, rel %d",
		s.Length, s.Bits, channels, s.Volume, s.FineTune, s.RelativeNote)
	if s.Loop != xm.LoopOff {
		text += fmt.Sprintf("\n%s loop %d-%d", s.Loop, s.LoopStart, s.LoopEnd)
	}
	return text
}

func (v *ViewerGUI) selectedInstrument() *xm.Instrument {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if v.module == nil || v.instrument < 0 || v.instrument >= xm.MaxInstruments {
		return nil
	}
	return v.module.Instruments[v.instrument]
}

func (v *ViewerGUI) selectedSample() *xm.Sample {
	ins := v.selectedInstrument()
	if ins == nil || v.sample < 0 || v.sample >= xm.MaxSamples {
		return nil
	}
	return ins.Samples[v.sample]
}

func (v *ViewerGUI) openModule() {
	dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		v.loadModule(reader.URI().Path())
	}, v.window)
}

func (v *ViewerGUI) loadModule(path string) {
	m, rep, err := xm.LoadFile(path, v.cfg.TempDir, v.options()...)
	if err != nil {
		if xm.IsNotModule(err) {
			err = fmt.Errorf("%s is not a supported module", filepath.Base(path))
		}
		dialog.ShowError(err, v.window)
		return
	}

	v.stopSample()
	v.mutex.Lock()
	v.module, v.path = m, path
	v.instrument, v.sample = -1, -1
	v.mutex.Unlock()

	sum := m.Summary()
	name := strings.TrimRight(sum.Name, " ")
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	v.titleLabel.SetText(name)
	v.trackerLabel.SetText(strings.TrimRight(sum.Tracker, " "))
	v.songLabel.SetText(fmt.Sprintf("%d channels • %d orders • %d patterns • %d instruments • tempo %d • %d BPM",
		sum.Channels, sum.SongLength, sum.Patterns, sum.Instruments, sum.Tempo, sum.BPM))

	switch {
	case len(rep.Warnings) == 0:
		v.statusLabel.SetText("")
	case rep.Partial():
		v.statusLabel.SetText(fmt.Sprintf("partially loaded, %d warnings", len(rep.Warnings)))
	default:
		v.statusLabel.SetText(fmt.Sprintf("repaired, %d warnings", len(rep.Warnings)))
	}

	count := sum.Patterns
	if count == 0 {
		count = 1
	}
	choices := make([]string, count)
	for i := range choices {
		choices[i] = fmt.Sprintf("Pattern %d", i)
	}
	v.patternSelect.Options = choices
	v.patternSelect.SetSelectedIndex(0)

	v.instrumentList.UnselectAll()
	v.instrumentList.Refresh()
	v.sampleList.Refresh()
	v.sampleInfo.SetText("")
	v.playButton.Disable()
}

func (v *ViewerGUI) showPattern(idx int) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if v.module == nil || idx < 0 || idx >= xm.MaxPatterns {
		return
	}
	p := v.module.Patterns[idx]

	var sb strings.Builder
	for row := 0; row < p.Length; row++ {
		fmt.Fprintf(&sb, "%02X", row)
		for ch := 0; ch < v.module.NumChannels; ch++ {
			if c := p.Cell(row, ch); c != nil {
				sb.WriteString(" | ")
				sb.WriteString(c.String())
			}
		}
		sb.WriteByte('\n')
	}
	v.patternGrid.SetText(sb.String())
}

func (v *ViewerGUI) playSample() {
	s := v.selectedSample()
	if s == nil || s.Length == 0 {
		return
	}
	v.stopSample()

	src := audio.NewSampleSource(s, audio.PreviewNote, v.cfg.Preview.SampleRate, maxPreview)
	player := audio.NewPlayer(src, audio.NewOtoOutput())
	if err := player.Start(v.cfg.Preview.SampleRate, v.cfg.Preview.BufferSize); err != nil {
		dialog.ShowError(err, v.window)
		return
	}

	v.mutex.Lock()
	v.player = player
	v.mutex.Unlock()
	v.stopButton.Enable()

	go func() {
		if err := player.Wait(); err != nil {
			v.logger.Printf("preview: %v", err)
		}
		v.mutex.Lock()
		finished := v.player == player
		if finished {
			v.player = nil
		}
		v.mutex.Unlock()
		if finished {
			fyne.Do(v.stopButton.Disable)
		}
	}()
}

func (v *ViewerGUI) stopSample() {
	v.mutex.Lock()
	player := v.player
	v.player = nil
	v.mutex.Unlock()

	if player != nil {
		if err := player.Stop(); err != nil {
			v.logger.Printf("preview: %v", err)
		}
	}
	v.stopButton.Disable()
}

func (v *ViewerGUI) saveModule() {
	v.mutex.Lock()
	m := v.module
	v.mutex.Unlock()
	if m == nil {
		dialog.ShowInformation("No module loaded", "Please open a module first", v.window)
		return
	}

	dialog.ShowFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		path := writer.URI().Path()
		writer.Close()

		variant := xm.VariantXM
		if v.cfg.Save.WithoutSamples {
			variant = xm.VariantXMNoSamples
		}
		if err := xm.SaveFile(path, m, variant, v.options()...); err != nil {
			dialog.ShowError(err, v.window)
			return
		}
		dialog.ShowInformation("Saved", filepath.Base(path)+" written", v.window)
	}, v.window)
}

func (v *ViewerGUI) exportSample() {
	s := v.selectedSample()
	if s == nil || s.Length == 0 {
		dialog.ShowInformation("No sample selected", "Please select a sample with data first", v.window)
		return
	}

	dialog.ShowFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		path := writer.URI().Path()
		writer.Close()

		if err := writeWAV(path, s); err != nil {
			dialog.ShowError(err, v.window)
			return
		}
		dialog.ShowInformation("Export Complete", "WAV file exported successfully", v.window)
	}, v.window)
}

// writeWAV goes through os.File because the WAV encoder seeks back to patch
// its header.
func writeWAV(path string, s *xm.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := xm.ExportWAV(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (v *ViewerGUI) showAbout() {
	about := container.NewVBox(
		widget.NewLabelWithStyle("xmkit", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		widget.NewLabel(""),
		widget.NewLabel("Viewer for Extended Module (XM) and legacy MOD files"),
		widget.NewLabel("Reads damaged files and reports what was repaired"),
		widget.NewLabel(""),
		widget.NewLabel("Archives: gzip, bzip2, zip, LHA"),
	)
	dialog.ShowCustom("About xmkit", "OK", about, v.window)
}

func (v *ViewerGUI) cleanup() {
	v.stopSample()
}

func (v *ViewerGUI) Run() {
	v.window.ShowAndRun()
}
