// Package legalband holds the compile-time table of US-centric legal and
// caution receive bands consulted by the compliance checker (spec.md §6).
package legalband

// Band is a named frequency range used for compliance annotation.
type Band struct {
	StartMHz float64
	EndMHz   float64
	Label    string
}

// Contains reports whether freqMHz falls within the band, inclusive.
func (b Band) Contains(freqMHz float64) bool {
	return freqMHz >= b.StartMHz && freqMHz <= b.EndMHz
}

// Legal is the table of well-established US receive bands.
var Legal = []Band{
	{StartMHz: 0.5, EndMHz: 1.7, Label: "AM broadcast"},
	{StartMHz: 87.5, EndMHz: 108, Label: "FM broadcast"},
	{StartMHz: 108, EndMHz: 117.975, Label: "VOR"},
	{StartMHz: 118, EndMHz: 137, Label: "aircraft VHF"},
	{StartMHz: 137, EndMHz: 138, Label: "NOAA satellite"},
	{StartMHz: 144, EndMHz: 148, Label: "amateur 2m"},
	{StartMHz: 156, EndMHz: 162.025, Label: "marine VHF"},
	{StartMHz: 162.4, EndMHz: 162.55, Label: "NOAA weather"},
	{StartMHz: 420, EndMHz: 450, Label: "amateur 70cm"},
	{StartMHz: 462.5625, EndMHz: 467.7125, Label: "FRS/GMRS"},
	{StartMHz: 470, EndMHz: 608, Label: "UHF TV"},
	{StartMHz: 824, EndMHz: 849, Label: "cellular"},
	{StartMHz: 869, EndMHz: 894, Label: "cellular"},
	{StartMHz: 1090, EndMHz: 1090, Label: "ADS-B"},
}

// Caution holds government/military/public-safety ranges that warrant
// extra care even though reception itself is not restricted.
var Caution = []Band{
	{StartMHz: 138, EndMHz: 144, Label: "government/military"},
	{StartMHz: 148, EndMHz: 150.05, Label: "government/military"},
	{StartMHz: 150.05, EndMHz: 156, Label: "public safety"},
	{StartMHz: 162.05, EndMHz: 162.4, Label: "government"},
	{StartMHz: 225, EndMHz: 380, Label: "military aviation"},
	{StartMHz: 380, EndMHz: 399.9, Label: "federal government"},
	{StartMHz: 406, EndMHz: 420, Label: "federal government"},
	{StartMHz: 806, EndMHz: 824, Label: "public safety"},
	{StartMHz: 851, EndMHz: 869, Label: "public safety"},
}

// Lookup returns the first legal-table label covering freqMHz, and whether
// any entry matched.
func Lookup(freqMHz float64) (string, bool) {
	for _, b := range Legal {
		if b.Contains(freqMHz) {
			return b.Label, true
		}
	}
	return "", false
}

// LookupCaution returns the first caution-table label covering freqMHz, and
// whether any entry matched.
func LookupCaution(freqMHz float64) (string, bool) {
	for _, b := range Caution {
		if b.Contains(freqMHz) {
			return b.Label, true
		}
	}
	return "", false
}
