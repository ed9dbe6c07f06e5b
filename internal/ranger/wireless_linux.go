//go:build linux

package ranger

import "os"

const procWireless = "/proc/net/wireless"

// readLink samples the station link from /proc/net/wireless. Hosts
// without a wireless interface report no sample.
func readLink() (LinkSample, bool) {
	f, err := os.Open(procWireless)
	if err != nil {
		return LinkSample{}, false
	}
	defer f.Close()
	return parseWireless(f)
}
