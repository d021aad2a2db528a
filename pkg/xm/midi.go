package xm

import (
	"gitlab.com/gomidi/midi/v2"
)

// Controllers used to set the pitch bend range through RPN 0.
const (
	ccDataEntry    = 6
	ccDataEntryLSB = 38
	ccRPNLSB       = 100
	ccRPNMSB       = 101
)

// MIDISetup returns the messages that prepare an external device for ins:
// a program change and the pitch bend range. It returns nil when MIDI
// passthrough is off.
func MIDISetup(ins *Instrument) []midi.Message {
	if !ins.MIDI.Enabled {
		return nil
	}
	ch := ins.MIDI.Channel & 0x0F
	return []midi.Message{
		midi.ProgramChange(ch, ins.MIDI.Program&0x7F),
		midi.ControlChange(ch, ccRPNMSB, 0),
		midi.ControlChange(ch, ccRPNLSB, 0),
		midi.ControlChange(ch, ccDataEntry, min(ins.MIDI.BendRange, maxBendRange)),
		midi.ControlChange(ch, ccDataEntryLSB, 0),
	}
}

// MIDINote converts a cell played by ins to a note message. Note 49 (C-4)
// is MIDI key 60. ok is false for cells that do not start or stop a note.
func MIDINote(ins *Instrument, n Note) (msg midi.Message, ok bool) {
	if !ins.MIDI.Enabled {
		return nil, false
	}
	ch := ins.MIDI.Channel & 0x0F
	switch {
	case n.Note == NoteOff:
		return midi.NoteOff(ch, 0), true
	case n.Note >= 1 && n.Note <= NoteMax:
		key := n.Note + 11
		velocity := uint8(100)
		if n.Volume >= 0x10 && n.Volume <= 0x50 {
			velocity = uint8(clampInt(int(n.Volume-0x10)*2, 1, 127))
		}
		return midi.NoteOn(ch, key, velocity), true
	}
	return nil, false
}
