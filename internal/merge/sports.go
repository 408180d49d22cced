package merge

// FallbackSport is used for sector codes missing from the table.
const FallbackSport = "alpine_skiing"

var sportsByCode = map[string]string{
	"AL":  "alpine_skiing",
	"SX":  "ski_cross",
	"MO":  "freestyle_moguls",
	"FS":  "freestyle_park",
	"SB":  "snowboard_park",
	"SBX": "snowboard_cross",
	"PSL": "snowboard_alpine",
	"JP":  "ski_jumping",
	"CC":  "cross_country",
}

var sportLabels = map[string]string{
	"alpine_skiing":    "Alpine Skiing",
	"ski_cross":        "Ski Cross",
	"freestyle_moguls": "Moguls",
	"freestyle_park":   "Freeski Park",
	"snowboard_park":   "Snowboard Park",
	"snowboard_cross":  "Snowboard Cross",
	"snowboard_alpine": "Snowboard Alpine",
	"ski_jumping":      "Ski Jumping",
	"cross_country":    "Cross Country",
}

// SportKey maps a FIS sector code to its canonical sport key.
func SportKey(code string) string {
	if key, ok := sportsByCode[code]; ok {
		return key
	}
	return FallbackSport
}

// SportLabel returns the display label of a sport key, or the key itself
// when it has none.
func SportLabel(key string) string {
	if label, ok := sportLabels[key]; ok {
		return label
	}
	return key
}
