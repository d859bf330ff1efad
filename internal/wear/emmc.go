package wear

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EMMCProvider reads the eMMC health registers exposed by the host
// controller driver: a lifetime file holding DEVICE_LIFE_TIME_EST_TYP_A
// and _B as two hex bytes, and an EOL file holding PRE_EOL_INFO as one.
type EMMCProvider struct {
	LifetimePath string
	EOLPath      string
}

// Load parses both register files. Any malformed content fails the whole
// load; the device simply does not report wear this cycle.
func (p EMMCProvider) Load() (*Information, error) {
	lifetime, err := os.ReadFile(p.LifetimePath)
	if err != nil {
		return nil, fmt.Errorf("emmc: reading lifetime register: %w", err)
	}
	eol, err := os.ReadFile(p.EOLPath)
	if err != nil {
		return nil, fmt.Errorf("emmc: reading eol register: %w", err)
	}

	fields := strings.Fields(string(lifetime))
	if len(fields) != 2 {
		return nil, fmt.Errorf("emmc: lifetime register has %d values, want 2", len(fields))
	}
	codeA, err := parseHexByte(fields[0])
	if err != nil {
		return nil, fmt.Errorf("emmc: lifetime A: %w", err)
	}
	codeB, err := parseHexByte(fields[1])
	if err != nil {
		return nil, fmt.Errorf("emmc: lifetime B: %w", err)
	}

	eolFields := strings.Fields(string(eol))
	if len(eolFields) != 1 {
		return nil, fmt.Errorf("emmc: eol register has %d values, want 1", len(eolFields))
	}
	eolCode, err := parseHexByte(eolFields[0])
	if err != nil {
		return nil, fmt.Errorf("emmc: eol: %w", err)
	}
	preEOL := decodePreEOL(eolCode)
	if preEOL == PreEOLUnknown {
		return nil, fmt.Errorf("emmc: undefined eol code 0x%x", eolCode)
	}

	return &Information{
		LifetimeA: decodeLifetime(codeA),
		LifetimeB: decodeLifetime(codeB),
		PreEOL:    preEOL,
	}, nil
}

// parseHexByte accepts register values with or without a 0x prefix.
func parseHexByte(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	return strconv.ParseUint(s, 16, 8)
}
