package vitals

// Event topics published by the vitals module.
//
// `health` carries a models.HealthSnapshot and is published only when a
// device's score or risk changes. `alert` carries a models.Alert and is
// published on transitions into critical risk.
const (
	TopicHealth = "health"
	TopicAlert  = "alert"
)
