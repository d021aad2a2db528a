package xm

import (
	"fmt"
	"os"

	"github.com/olivierh59500/xmkit/pkg/depack"
)

// LoadFile loads a module from disk. Compressed files and archives are
// unpacked into tmpDir first and every member is tried in order; the first
// one that parses wins.
func LoadFile(path, tmpDir string, opts ...Option) (*Module, *Report, error) {
	files, cleanup, err := depack.Candidates(path, tmpDir)
	defer cleanup()
	if err != nil {
		return nil, nil, wrapKind(err, KindIO, "unpack "+path)
	}

	var lastErr error
	for _, name := range files {
		m, rep, err := loadPlainFile(name, opts)
		if err == nil {
			return m, rep, nil
		}
		lastErr = err
	}
	return nil, nil, lastErr
}

func loadPlainFile(name string, opts []Option) (*Module, *Report, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, wrapKind(err, KindIO, "open "+name)
	}
	defer f.Close()
	return Load(f, opts...)
}

// SaveFile writes m to path.
func SaveFile(path string, m *Module, variant Variant, opts ...Option) error {
	f, err := os.Create(path)
	if err != nil {
		return wrapKind(err, KindIO, "create "+path)
	}
	if err := Save(f, m, variant, opts...); err != nil {
		f.Close()
		return err
	}
	return wrapKind(f.Close(), KindIO, "close "+path)
}

// IsModule checks data for any signature the loader understands.
func IsModule(data []byte) bool {
	return isXMHeader(data) || modChannelCount(data) > 0
}

// IsInstrument checks data for the standalone instrument signature.
func IsInstrument(data []byte) bool {
	return len(data) >= xiBodyAt && string(data[:len(xiSignature)]) == xiSignature && data[43] == 0x1A
}

// GetInfo describes the format of data without a full load.
func GetInfo(data []byte) (format string, channels int, err error) {
	switch {
	case isXMHeader(data):
		if len(data) < 70 {
			return "", 0, newKind(KindTruncated, "module header cut short")
		}
		v := readLittleEndian16(data, 58)
		return fmt.Sprintf("XM %d.%02x", v>>8, v&0xFF), int(readLittleEndian16(data, 68)), nil
	case modChannelCount(data) > 0:
		tag := string(data[modSignatureOffset : modSignatureOffset+4])
		return fmt.Sprintf("MOD (%s)", tag), modChannelCount(data), nil
	case IsInstrument(data):
		return fmt.Sprintf("XI %d.%02x", data[65], data[64]), 0, nil
	}
	return "", 0, ErrNotModule
}
