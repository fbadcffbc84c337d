package index

// Metric identifiers with a default classification rule.
const (
	TVOC                = "tvoc"
	ECO2                = "eco2"
	PM10                = "pm10"
	PM25                = "pm25"
	PM1                 = "pm1"
	InternalTemperature = "internal_temperature"
	RelativeHumidity    = "relative_humidity"
)

func fiveTier(excellent, good, medium, poor float64) Rule {
	return Rule{
		Thresholds: []Threshold{
			{Max: excellent, Category: Excellent},
			{Max: good, Category: Good},
			{Max: medium, Category: Medium},
			{Max: poor, Category: Poor},
		},
		Else: Terrible,
	}
}

// comfort metrics have no medium or poor tier
func threeTier(excellent, good float64) Rule {
	return Rule{
		Thresholds: []Threshold{
			{Max: excellent, Category: Excellent},
			{Max: good, Category: Good},
		},
		Else: Terrible,
	}
}

// DefaultTable returns the built-in rules. Each call returns a fresh table.
func DefaultTable() Table {
	return Table{
		TVOC:                fiveTier(100, 200, 300, 400),
		ECO2:                fiveTier(500, 1000, 1500, 2000),
		PM10:                fiveTier(20, 30, 40, 50),
		PM25:                fiveTier(16, 21, 26, 32),
		PM1:                 fiveTier(6, 9, 12, 15),
		InternalTemperature: threeTier(18, 27),
		RelativeHumidity:    threeTier(40, 60),
	}
}
