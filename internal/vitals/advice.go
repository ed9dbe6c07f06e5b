package vitals

// Factors names the degradation factors indicated by the feature map,
// in a fixed order.
func Factors(f Features) []string {
	var out []string
	if v, ok := f["rssi_mean"]; ok && v < -70 {
		out = append(out, "Poor signal strength")
	}
	if v, ok := f["rssi_std"]; ok && v > 10 {
		out = append(out, "Signal instability")
	}
	if v, ok := f["response_time_mean"]; ok && v > 500 {
		out = append(out, "High response times")
	}
	if v, ok := f["uptime_ratio"]; ok && v < 0.95 {
		out = append(out, "Frequent disconnections")
	}
	if v, ok := f["error_rate"]; ok && v > 0.05 {
		out = append(out, "High error rate")
	}
	if v, ok := f["temp_max"]; ok && v > 80 {
		out = append(out, "Temperature concerns")
	}
	if v, ok := f["power_trend"]; ok && v > 0 {
		out = append(out, "Increasing power consumption")
	}
	return out
}

// Recommendations maps the score and features to maintenance guidance.
// The two score rules are exclusive; the rest stack.
func Recommendations(score float64, f Features) []string {
	var out []string
	switch {
	case score < 30:
		out = append(out, "Schedule immediate maintenance inspection")
	case score < 50:
		out = append(out, "Plan preventive maintenance within 2 weeks")
	}
	if v, ok := f["rssi_mean"]; ok && v < -70 {
		out = append(out, "Improve device positioning or add WiFi extender")
	}
	if v, ok := f["response_time_mean"]; ok && v > 1000 {
		out = append(out, "Check network congestion and device load")
	}
	if v, ok := f["disconnect_events"]; ok && v > 5 {
		out = append(out, "Investigate network stability issues")
	}
	if v, ok := f["error_rate"]; ok && v > 0.1 {
		out = append(out, "Review device logs for error patterns")
	}
	if v, ok := f["temp_max"]; ok && v > 85 {
		out = append(out, "Improve device ventilation or cooling")
	}
	return out
}
