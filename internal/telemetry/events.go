package telemetry

// Event topics published by the telemetry module.
//
// `measurement` carries a ring.Entry, `anomaly` a models.AnomalyEvent, and
// `alert` a models.Alert.
const (
	TopicMeasurement = "measurement"
	TopicAnomaly     = "anomaly"
	TopicAlert       = "alert"
)
