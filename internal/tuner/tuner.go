// Package tuner defines the SDR tuner collaborator interface (spec.md §6).
// The tuner driver itself is explicitly out of the core's scope; this
// package gives it a named shape so the scanner, survey manager, and watch
// engine can depend on an interface instead of a concrete device.
package tuner

import (
	"context"
	"errors"
	"fmt"
)

// Tuner is the minimal device surface consumed by the scanner.
type Tuner interface {
	Open(ctx context.Context, sampleRate, centerFreq float64, gain string, ppm float64, deviceIndex int) error
	SetSampleRate(ctx context.Context, sampleRate float64) error
	SetCenterFreq(ctx context.Context, freq float64) error
	SetGain(ctx context.Context, gain string) error
	ReadSamples(ctx context.Context, n int) ([]complex64, error)
	Close() error
}

// ErrorClass taxonomizes tuner failures per spec.md §7.
type ErrorClass int

const (
	ErrDeviceNotFound ErrorClass = iota
	ErrDeviceBusy
	ErrUSB
	ErrUnsupportedSampleRate
	ErrInvalidFrequency
	ErrInvalidGain
)

func (c ErrorClass) String() string {
	switch c {
	case ErrDeviceNotFound:
		return "device_not_found"
	case ErrDeviceBusy:
		return "device_busy"
	case ErrUSB:
		return "usb_error"
	case ErrUnsupportedSampleRate:
		return "unsupported_sample_rate"
	case ErrInvalidFrequency:
		return "invalid_frequency"
	case ErrInvalidGain:
		return "invalid_gain"
	default:
		return "unknown"
	}
}

// DeviceError is a human-readable, classified tuner failure. It is fatal to
// the current scan/read but recoverable at the session level (spec.md §7).
type DeviceError struct {
	Class   ErrorClass
	Message string
	USBCode int // only meaningful when Class == ErrUSB
}

func (e *DeviceError) Error() string {
	if e.Class == ErrUSB {
		return fmt.Sprintf("%s: %s (usb code %d)", e.Class, e.Message, e.USBCode)
	}
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

// NewDeviceError constructs a classified device error.
func NewDeviceError(class ErrorClass, message string) *DeviceError {
	return &DeviceError{Class: class, Message: message}
}

// NewUSBError constructs a USB-class device error carrying its numeric code.
func NewUSBError(code int, message string) *DeviceError {
	return &DeviceError{Class: ErrUSB, Message: message, USBCode: code}
}

// IsTransientUSB reports whether err is a USB-class error, which the scanner
// may retry a bounded number of times on hardware known to exhibit
// transient overflows.
func IsTransientUSB(err error) bool {
	var de *DeviceError
	if errors.As(err, &de) {
		return de.Class == ErrUSB
	}
	return false
}
