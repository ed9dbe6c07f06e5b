//go:build !linux

package ranger

// readLink reports no wireless link on platforms without
// /proc/net/wireless; the configured fallback RSSI applies.
func readLink() (LinkSample, bool) {
	return LinkSample{}, false
}
