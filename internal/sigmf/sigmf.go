// Package sigmf implements the SigMF recording format (spec.md §6): a
// data/metadata file pair describing a raw IQ capture. No ecosystem SigMF
// codec library surfaced in the corpus this was grounded on, so the
// binary codec is a direct translation of the bespoke serializer the
// original carries, matching its own choice to hand-roll this format
// rather than depend on one.
package sigmf

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// DataType names one of SigMF's ten recognized sample encodings.
type DataType string

const (
	ComplexFloat64 DataType = "cf64_le"
	ComplexFloat32 DataType = "cf32_le"
	ComplexInt32   DataType = "ci32_le"
	ComplexInt16   DataType = "ci16_le"
	ComplexInt8    DataType = "ci8"
	RealFloat64    DataType = "rf64_le"
	RealFloat32    DataType = "rf32_le"
	RealInt32      DataType = "ri32_le"
	RealInt16      DataType = "ri16_le"
	RealInt8       DataType = "ri8"
)

// sampleSize returns the on-disk byte size of one sample (both I and Q for
// complex types) for dt, and whether dt is recognized.
func sampleSize(dt DataType) (int, bool) {
	switch dt {
	case ComplexFloat64:
		return 16, true
	case ComplexFloat32:
		return 8, true
	case ComplexInt32:
		return 8, true
	case ComplexInt16:
		return 4, true
	case ComplexInt8:
		return 2, true
	case RealFloat64:
		return 8, true
	case RealFloat32:
		return 4, true
	case RealInt32:
		return 4, true
	case RealInt16:
		return 2, true
	case RealInt8:
		return 1, true
	default:
		return 0, false
	}
}

func isComplex(dt DataType) bool {
	switch dt {
	case ComplexFloat64, ComplexFloat32, ComplexInt32, ComplexInt16, ComplexInt8:
		return true
	default:
		return false
	}
}

// Error reports a SigMF load/save failure: malformed metadata, a missing
// paired file, or an unsupported datatype (spec.md §7).
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("sigmf: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Capture pins a sample index in the data file to a center frequency and
// timestamp.
type Capture struct {
	SampleStart int64
	FrequencyHz float64
	HasFreq     bool
	Datetime    string
}

// Annotation labels the sample range [SampleStart, SampleStart+SampleCount)
// and optionally a frequency sub-band within it.
type Annotation struct {
	SampleStart    int64
	SampleCount    int64
	FreqLowerEdge  float64
	HasFreqLower   bool
	FreqUpperEdge  float64
	HasFreqUpper   bool
	Label          string
	Comment        string
}

// Recording is a loaded or freshly created SigMF recording: the paired
// file locations plus the global metadata, captures, and annotations.
type Recording struct {
	DataPath string
	MetaPath string

	Datatype    DataType
	SampleRate  float64
	Version     string
	Description string
	Author      string
	Recorder    string
	License     string
	HW          string

	Captures    []Capture
	Annotations []Annotation
}

// Create writes samples to <outputDir>/<basename>.sigmf-data in datatype's
// encoding, records a single capture pinning centerFreqHz at sample 0, and
// saves the paired .sigmf-meta document.
func Create(samples []complex64, sampleRate, centerFreqHz float64, outputDir, basename, description string, datatype DataType) (*Recording, error) {
	if _, ok := sampleSize(datatype); !ok {
		return nil, &Error{Op: "create", Err: fmt.Errorf("unsupported datatype %q", datatype)}
	}
	if basename == "" {
		basename = "recording_" + time.Now().UTC().Format("20060102_150405")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, &Error{Op: "create", Err: err}
	}

	dataPath := filepath.Join(outputDir, basename+".sigmf-data")
	metaPath := filepath.Join(outputDir, basename+".sigmf-meta")

	body, err := Encode(samples, datatype)
	if err != nil {
		return nil, &Error{Op: "create", Err: err}
	}
	if len(body)%mustSize(datatype) != 0 {
		return nil, &Error{Op: "create", Err: fmt.Errorf("encoded length %d not a multiple of sample size", len(body))}
	}
	if err := os.WriteFile(dataPath, body, 0o644); err != nil {
		return nil, &Error{Op: "create", Err: err}
	}

	rec := &Recording{
		DataPath:    dataPath,
		MetaPath:    metaPath,
		Datatype:    datatype,
		SampleRate:  sampleRate,
		Version:     "1.0.0",
		Description: description,
		Recorder:    "rfscout",
		Captures: []Capture{
			{SampleStart: 0, FrequencyHz: centerFreqHz, HasFreq: true, Datetime: time.Now().UTC().Format(time.RFC3339)},
		},
	}

	if err := rec.SaveMetadata(); err != nil {
		return nil, err
	}
	return rec, nil
}

func mustSize(dt DataType) int {
	n, _ := sampleSize(dt)
	return n
}

// metaDoc is the on-disk JSON shape of a .sigmf-meta file.
type metaDoc struct {
	Global      globalMeta       `json:"global"`
	Captures    []captureMeta    `json:"captures"`
	Annotations []annotationMeta `json:"annotations"`
}

type globalMeta struct {
	Datatype    string  `json:"core:datatype"`
	SampleRate  float64 `json:"core:sample_rate"`
	Version     string  `json:"core:version"`
	Description string  `json:"core:description,omitempty"`
	Author      string  `json:"core:author,omitempty"`
	Recorder    string  `json:"core:recorder,omitempty"`
	License     string  `json:"core:license,omitempty"`
	HW          string  `json:"core:hw,omitempty"`
}

type captureMeta struct {
	SampleStart int64    `json:"core:sample_start"`
	Frequency   *float64 `json:"core:frequency,omitempty"`
	Datetime    *string  `json:"core:datetime,omitempty"`
}

type annotationMeta struct {
	SampleStart   int64    `json:"core:sample_start"`
	SampleCount   int64    `json:"core:sample_count"`
	FreqLowerEdge *float64 `json:"core:freq_lower_edge,omitempty"`
	FreqUpperEdge *float64 `json:"core:freq_upper_edge,omitempty"`
	Label         *string  `json:"core:label,omitempty"`
	Comment       *string  `json:"core:comment,omitempty"`
}

// SaveMetadata writes the recording's current metadata to MetaPath.
func (r *Recording) SaveMetadata() error {
	doc := metaDoc{
		Global: globalMeta{
			Datatype:    string(r.Datatype),
			SampleRate:  r.SampleRate,
			Version:     r.Version,
			Description: r.Description,
			Author:      r.Author,
			Recorder:    r.Recorder,
			License:     r.License,
			HW:          r.HW,
		},
	}

	for _, c := range r.Captures {
		cm := captureMeta{SampleStart: c.SampleStart}
		if c.HasFreq {
			f := c.FrequencyHz
			cm.Frequency = &f
		}
		if c.Datetime != "" {
			d := c.Datetime
			cm.Datetime = &d
		}
		doc.Captures = append(doc.Captures, cm)
	}

	for _, a := range r.Annotations {
		am := annotationMeta{SampleStart: a.SampleStart, SampleCount: a.SampleCount}
		if a.HasFreqLower {
			v := a.FreqLowerEdge
			am.FreqLowerEdge = &v
		}
		if a.HasFreqUpper {
			v := a.FreqUpperEdge
			am.FreqUpperEdge = &v
		}
		if a.Label != "" {
			l := a.Label
			am.Label = &l
		}
		if a.Comment != "" {
			c := a.Comment
			am.Comment = &c
		}
		doc.Annotations = append(doc.Annotations, am)
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &Error{Op: "save_metadata", Err: err}
	}
	if err := os.WriteFile(r.MetaPath, body, 0o644); err != nil {
		return &Error{Op: "save_metadata", Err: err}
	}
	return nil
}

// Load reads a recording from either half of a sigmf-data/sigmf-meta pair,
// failing if the paired file is missing.
func Load(path string) (*Recording, error) {
	ext := filepath.Ext(path)
	var dataPath, metaPath string
	switch ext {
	case ".sigmf-data":
		dataPath = path
		metaPath = path[:len(path)-len(ext)] + ".sigmf-meta"
	case ".sigmf-meta":
		metaPath = path
		dataPath = path[:len(path)-len(ext)] + ".sigmf-data"
	default:
		return nil, &Error{Op: "load", Err: fmt.Errorf("invalid file extension %q", ext)}
	}

	if _, err := os.Stat(metaPath); err != nil {
		return nil, &Error{Op: "load", Err: fmt.Errorf("metadata file not found: %s", metaPath)}
	}
	if _, err := os.Stat(dataPath); err != nil {
		return nil, &Error{Op: "load", Err: fmt.Errorf("data file not found: %s", dataPath)}
	}

	body, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, &Error{Op: "load", Err: err}
	}

	var doc metaDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &Error{Op: "load", Err: fmt.Errorf("malformed metadata: %w", err)}
	}
	if doc.Global.Datatype == "" {
		doc.Global.Datatype = string(ComplexFloat32)
	}
	if doc.Global.Version == "" {
		doc.Global.Version = "1.0.0"
	}

	rec := &Recording{
		DataPath:    dataPath,
		MetaPath:    metaPath,
		Datatype:    DataType(doc.Global.Datatype),
		SampleRate:  doc.Global.SampleRate,
		Version:     doc.Global.Version,
		Description: doc.Global.Description,
		Author:      doc.Global.Author,
		Recorder:    doc.Global.Recorder,
		License:     doc.Global.License,
		HW:          doc.Global.HW,
	}

	for _, cm := range doc.Captures {
		c := Capture{SampleStart: cm.SampleStart}
		if cm.Frequency != nil {
			c.FrequencyHz = *cm.Frequency
			c.HasFreq = true
		}
		if cm.Datetime != nil {
			c.Datetime = *cm.Datetime
		}
		rec.Captures = append(rec.Captures, c)
	}

	for _, am := range doc.Annotations {
		a := Annotation{SampleStart: am.SampleStart, SampleCount: am.SampleCount}
		if am.FreqLowerEdge != nil {
			a.FreqLowerEdge = *am.FreqLowerEdge
			a.HasFreqLower = true
		}
		if am.FreqUpperEdge != nil {
			a.FreqUpperEdge = *am.FreqUpperEdge
			a.HasFreqUpper = true
		}
		if am.Label != nil {
			a.Label = *am.Label
		}
		if am.Comment != nil {
			a.Comment = *am.Comment
		}
		rec.Annotations = append(rec.Annotations, a)
	}

	return rec, nil
}

// ToSamples reads and decodes the recording's data file back into complex
// samples, regardless of its on-disk datatype.
func (r *Recording) ToSamples() ([]complex64, error) {
	body, err := os.ReadFile(r.DataPath)
	if err != nil {
		return nil, &Error{Op: "to_samples", Err: err}
	}
	samples, err := Decode(body, r.Datatype)
	if err != nil {
		return nil, &Error{Op: "to_samples", Err: err}
	}
	return samples, nil
}

// AddAnnotation appends an annotation covering [sampleStart,
// sampleStart+sampleCount).
func (r *Recording) AddAnnotation(sampleStart, sampleCount int64, label, comment string, freqLower, freqUpper float64, hasFreqLower, hasFreqUpper bool) {
	r.Annotations = append(r.Annotations, Annotation{
		SampleStart: sampleStart, SampleCount: sampleCount,
		Label: label, Comment: comment,
		FreqLowerEdge: freqLower, HasFreqLower: hasFreqLower,
		FreqUpperEdge: freqUpper, HasFreqUpper: hasFreqUpper,
	})
}

// DurationSeconds returns the recording's length from the data file's size
// on disk, 0 if SampleRate is not positive.
func (r *Recording) DurationSeconds() float64 {
	if r.SampleRate <= 0 {
		return 0
	}
	info, err := os.Stat(r.DataPath)
	if err != nil {
		return 0
	}
	size, ok := sampleSize(r.Datatype)
	if !ok || size == 0 {
		return 0
	}
	numSamples := info.Size() / int64(size)
	return float64(numSamples) / r.SampleRate
}

// CenterFrequency returns the first capture's frequency, if any.
func (r *Recording) CenterFrequency() (float64, bool) {
	if len(r.Captures) == 0 {
		return 0, false
	}
	return r.Captures[0].FrequencyHz, r.Captures[0].HasFreq
}

// Encode serializes samples into dt's little-endian on-disk representation.
func Encode(samples []complex64, dt DataType) ([]byte, error) {
	size, ok := sampleSize(dt)
	if !ok {
		return nil, fmt.Errorf("unsupported datatype %q", dt)
	}
	buf := make([]byte, 0, len(samples)*size)

	for _, s := range samples {
		switch dt {
		case ComplexFloat64:
			buf = appendF64(buf, float64(real(s)))
			buf = appendF64(buf, float64(imag(s)))
		case ComplexFloat32:
			buf = appendF32(buf, real(s))
			buf = appendF32(buf, imag(s))
		case ComplexInt32:
			buf = appendI32(buf, int32(real(s)*math.MaxInt32))
			buf = appendI32(buf, int32(imag(s)*math.MaxInt32))
		case ComplexInt16:
			buf = appendI16(buf, int16(real(s)*math.MaxInt16))
			buf = appendI16(buf, int16(imag(s)*math.MaxInt16))
		case ComplexInt8:
			buf = append(buf, byte(int8(real(s)*math.MaxInt8)), byte(int8(imag(s)*math.MaxInt8)))
		case RealFloat64:
			buf = appendF64(buf, float64(real(s)))
		case RealFloat32:
			buf = appendF32(buf, real(s))
		case RealInt32:
			buf = appendI32(buf, int32(real(s)*math.MaxInt32))
		case RealInt16:
			buf = appendI16(buf, int16(real(s)*math.MaxInt16))
		case RealInt8:
			buf = append(buf, byte(int8(real(s)*math.MaxInt8)))
		default:
			return nil, fmt.Errorf("unsupported datatype %q", dt)
		}
	}
	return buf, nil
}

// Decode parses raw bytes in dt's encoding back into complex samples; real
// datatypes are returned with a zero imaginary component.
func Decode(body []byte, dt DataType) ([]complex64, error) {
	size, ok := sampleSize(dt)
	if !ok {
		return nil, fmt.Errorf("unsupported datatype %q", dt)
	}
	if size == 0 || len(body)%size != 0 {
		return nil, fmt.Errorf("data length %d is not a multiple of sample size %d", len(body), size)
	}

	n := len(body) / size
	out := make([]complex64, n)
	off := 0
	for i := 0; i < n; i++ {
		switch dt {
		case ComplexFloat64:
			re := readF64(body[off:])
			im := readF64(body[off+8:])
			out[i] = complex(float32(re), float32(im))
		case ComplexFloat32:
			re := readF32(body[off:])
			im := readF32(body[off+4:])
			out[i] = complex(re, im)
		case ComplexInt32:
			re := int32(binary.LittleEndian.Uint32(body[off:]))
			im := int32(binary.LittleEndian.Uint32(body[off+4:]))
			out[i] = complex(float32(re)/math.MaxInt32, float32(im)/math.MaxInt32)
		case ComplexInt16:
			re := int16(binary.LittleEndian.Uint16(body[off:]))
			im := int16(binary.LittleEndian.Uint16(body[off+2:]))
			out[i] = complex(float32(re)/math.MaxInt16, float32(im)/math.MaxInt16)
		case ComplexInt8:
			re := int8(body[off])
			im := int8(body[off+1])
			out[i] = complex(float32(re)/math.MaxInt8, float32(im)/math.MaxInt8)
		case RealFloat64:
			out[i] = complex(float32(readF64(body[off:])), 0)
		case RealFloat32:
			out[i] = complex(readF32(body[off:]), 0)
		case RealInt32:
			v := int32(binary.LittleEndian.Uint32(body[off:]))
			out[i] = complex(float32(v)/math.MaxInt32, 0)
		case RealInt16:
			v := int16(binary.LittleEndian.Uint16(body[off:]))
			out[i] = complex(float32(v)/math.MaxInt16, 0)
		case RealInt8:
			v := int8(body[off])
			out[i] = complex(float32(v)/math.MaxInt8, 0)
		}
		off += size
	}
	return out, nil
}

func appendF64(buf []byte, v float64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	return append(buf, b[:]...)
}

func appendF32(buf []byte, v float32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	return append(buf, b[:]...)
}

func appendI32(buf []byte, v int32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return append(buf, b[:]...)
}

func appendI16(buf []byte, v int16) []byte {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(v))
	return append(buf, b[:]...)
}

func readF64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func readF32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
