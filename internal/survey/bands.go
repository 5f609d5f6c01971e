package survey

// PriorityBand is a catalogued frequency range worth scanning before
// anything else, as described by spec.md §4.3: FM broadcast, air-band
// VHF, amateur 2 m/70 cm, marine VHF, NOAA weather, ADS-B, and the common
// ISM bands. The original band_catalog.py this is modeled on ships without
// an actual table (see DESIGN.md); ranges below are the standard US band
// plan allocations for each named service.
type PriorityBand struct {
	Name              string
	StartHz           float64
	EndHz             float64
	Priority          int // 1 (highest) .. 5 (lowest, gap-fill)
	RecommendedStepHz float64
	RecommendedDwellMs float64
}

// RTLMinHz and RTLMaxHz bound the tunable range of a typical RTL-SDR
// dongle, matching the teacher's default survey span.
const (
	RTLMinHz = 24_000_000
	RTLMaxHz = 1_766_000_000
)

// Catalogue lists the static priority bands, grouped by priority (1 first);
// entries within one priority are not sorted by frequency.
var Catalogue = []PriorityBand{
	{Name: "noaa_weather", StartHz: 162_400_000, EndHz: 162_550_000, Priority: 1, RecommendedStepHz: 25_000, RecommendedDwellMs: 100},
	{Name: "ads_b", StartHz: 1_089_000_000, EndHz: 1_091_000_000, Priority: 1, RecommendedStepHz: 50_000, RecommendedDwellMs: 50},
	{Name: "fm_broadcast", StartHz: 88_000_000, EndHz: 108_000_000, Priority: 1, RecommendedStepHz: 200_000, RecommendedDwellMs: 50},
	{Name: "ism_433", StartHz: 433_050_000, EndHz: 434_790_000, Priority: 1, RecommendedStepHz: 25_000, RecommendedDwellMs: 100},
	{Name: "air_band_vhf", StartHz: 118_000_000, EndHz: 137_000_000, Priority: 2, RecommendedStepHz: 25_000, RecommendedDwellMs: 100},
	{Name: "marine_vhf", StartHz: 156_000_000, EndHz: 162_000_000, Priority: 2, RecommendedStepHz: 25_000, RecommendedDwellMs: 100},
	{Name: "amateur_2m", StartHz: 144_000_000, EndHz: 148_000_000, Priority: 2, RecommendedStepHz: 25_000, RecommendedDwellMs: 100},
	{Name: "amateur_70cm", StartHz: 420_000_000, EndHz: 450_000_000, Priority: 2, RecommendedStepHz: 25_000, RecommendedDwellMs: 100},
	{Name: "ism_868", StartHz: 868_000_000, EndHz: 868_600_000, Priority: 2, RecommendedStepHz: 25_000, RecommendedDwellMs: 100},
	{Name: "ism_915", StartHz: 902_000_000, EndHz: 928_000_000, Priority: 2, RecommendedStepHz: 200_000, RecommendedDwellMs: 100},
	{Name: "ism_315", StartHz: 314_000_000, EndHz: 316_000_000, Priority: 3, RecommendedStepHz: 25_000, RecommendedDwellMs: 100},
}

// BandForFrequency returns the catalogued priority band containing hz, or
// "unknown" if hz falls outside every catalogued range. Used to stamp a
// recorded signal's freq_band column so the medallion bronze→silver
// transform (internal/medallion) can filter and group by it.
func BandForFrequency(hz float64) string {
	for _, b := range Catalogue {
		if hz >= b.StartHz && hz <= b.EndHz {
			return b.Name
		}
	}
	return "unknown"
}

// overlap returns the intersection of [aStart, aEnd] and [bStart, bEnd], and
// whether it is non-empty.
func overlap(aStart, aEnd, bStart, bEnd float64) (float64, float64, bool) {
	start := aStart
	if bStart > start {
		start = bStart
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	return start, end, start < end
}
