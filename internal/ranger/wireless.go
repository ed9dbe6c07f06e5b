package ranger

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// LinkSample is one reading of the host's wireless station link.
type LinkSample struct {
	Interface string
	RSSI      float64 // dBm
	SNR       float64 // dB, valid only when HasSNR
	HasSNR    bool
}

// parseWireless extracts station link quality from /proc/net/wireless
// content. The first two lines are headers; each remaining line reports
// one interface:
//
//	wlan0: 0000   54.  -56.  -95.        0      0      0      0      0        0
//
// Level and noise are dBm with a trailing dot on most drivers. Drivers
// reporting relative units (non-negative level) are skipped, as is the
// kernel's noise-unknown marker (-256). When several interfaces are up
// the strongest link wins.
func parseWireless(r io.Reader) (LinkSample, bool) {
	var (
		best  LinkSample
		found bool
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "|") {
			continue // header
		}
		fields := strings.Fields(line)
		if len(fields) < 5 || !strings.HasSuffix(fields[0], ":") {
			continue
		}

		level, err := parseWirelessValue(fields[3])
		if err != nil || level >= 0 {
			continue
		}

		sample := LinkSample{
			Interface: strings.TrimSuffix(fields[0], ":"),
			RSSI:      level,
		}
		if noise, err := parseWirelessValue(fields[4]); err == nil && noise > -150 && noise < 0 {
			sample.SNR = level - noise
			sample.HasSNR = true
		}

		if !found || sample.RSSI > best.RSSI {
			best = sample
			found = true
		}
	}
	return best, found
}

func parseWirelessValue(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSuffix(s, "."), 64)
}
