package atlas

// Event topics published by the atlas module.
//
// `region` carries a models.AnomalyRegion; every clustering pass publishes
// its full region set. `alert` carries a models.Alert and fires only when a
// high-severity region appears where none was before.
const (
	TopicRegion = "region"
	TopicAlert  = "alert"
)
