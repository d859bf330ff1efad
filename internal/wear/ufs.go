package wear

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// UFSProvider reads the UFS health descriptor dump exposed by the host
// controller driver. The dump is line-oriented; recognized attributes are
// decoded and everything else, including vendor-proprietary fields, is
// ignored.
type UFSProvider struct {
	Path string
}

// The health descriptor attributes we understand.
const (
	ufsPreEOL    = "bPreEOLInfo"
	ufsLifetimeA = "bDeviceLifeTimeEstA"
	ufsLifetimeB = "bDeviceLifeTimeEstB"
)

// Load parses the descriptor dump. Only an unreadable source fails; a dump
// with no recognized attribute yields an all-unknown report.
func (p UFSProvider) Load() (*Information, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, fmt.Errorf("ufs: reading health descriptor: %w", err)
	}
	defer f.Close()

	var info Information
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		for _, attr := range []string{ufsPreEOL, ufsLifetimeA, ufsLifetimeB} {
			code, ok := descriptorValue(line, attr)
			if !ok {
				continue
			}
			switch attr {
			case ufsPreEOL:
				info.PreEOL = decodePreEOL(code)
			case ufsLifetimeA:
				info.LifetimeA = decodeLifetime(code)
			case ufsLifetimeB:
				info.LifetimeB = decodeLifetime(code)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ufs: reading health descriptor: %w", err)
	}
	return &info, nil
}

// descriptorValue extracts the hex value from a line of the form
// "...: bAttrName = 0xNN". Lines that mention the attribute but carry an
// unparsable value are treated as unrecognized.
func descriptorValue(line, attr string) (uint64, bool) {
	idx := strings.Index(line, attr)
	if idx < 0 {
		return 0, false
	}
	rest := line[idx+len(attr):]
	eq := strings.Index(rest, "=")
	if eq < 0 {
		return 0, false
	}
	code, err := parseHexByte(rest[eq+1:])
	if err != nil {
		return 0, false
	}
	return code, true
}
