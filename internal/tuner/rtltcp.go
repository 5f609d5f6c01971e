package tuner

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// rtlTCP commands, matching the rtl_tcp wire protocol used by rtl-sdr.com
// compatible dongles and their network relays.
const (
	cmdSetFreq       = 0x01
	cmdSetSampleRate = 0x02
	cmdSetGainMode   = 0x03
	cmdSetGain       = 0x04
	cmdSetPPM        = 0x05
)

// RTLTCPTuner drives a networked rtl_tcp-compatible SDR dongle. It is the
// concrete realization of the Tuner collaborator for commodity RTL-SDR
// hardware reachable over TCP (locally, or discovered via mDNS — see
// DiscoverTuners).
type RTLTCPTuner struct {
	addr string
	conn net.Conn
}

// NewRTLTCPTuner builds a tuner bound to a rtl_tcp server at addr
// ("host:port"). Dialing happens in Open.
func NewRTLTCPTuner(addr string) *RTLTCPTuner {
	return &RTLTCPTuner{addr: addr}
}

func (t *RTLTCPTuner) Open(ctx context.Context, sampleRate, centerFreq float64, gain string, ppm float64, deviceIndex int) error {
	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return NewDeviceError(ErrDeviceNotFound, fmt.Sprintf("dial %s: %v", t.addr, err))
	}
	t.conn = conn

	// rtl_tcp sends a 12-byte "RTL0" + tuner-info header on connect; we don't
	// need device_index here since the TCP endpoint already pins one device.
	_ = deviceIndex
	header := make([]byte, 12)
	if _, err := conn.Read(header); err != nil {
		conn.Close()
		return NewDeviceError(ErrDeviceBusy, fmt.Sprintf("reading device header: %v", err))
	}

	if err := t.SetSampleRate(ctx, sampleRate); err != nil {
		return err
	}
	if err := t.SetCenterFreq(ctx, centerFreq); err != nil {
		return err
	}
	if err := t.sendCommand(cmdSetPPM, uint32(ppm)); err != nil {
		return err
	}
	return t.SetGain(ctx, gain)
}

func (t *RTLTCPTuner) sendCommand(cmd byte, param uint32) error {
	buf := make([]byte, 5)
	buf[0] = cmd
	binary.BigEndian.PutUint32(buf[1:], param)
	if _, err := t.conn.Write(buf); err != nil {
		return NewUSBError(0, fmt.Sprintf("write command %d: %v", cmd, err))
	}
	return nil
}

func (t *RTLTCPTuner) SetSampleRate(_ context.Context, sampleRate float64) error {
	if sampleRate <= 0 || sampleRate > 2.4e6 {
		return NewDeviceError(ErrUnsupportedSampleRate, "rtl_tcp supports up to 2.4 Msps")
	}
	return t.sendCommand(cmdSetSampleRate, uint32(sampleRate))
}

func (t *RTLTCPTuner) SetCenterFreq(_ context.Context, freq float64) error {
	if freq <= 0 {
		return NewDeviceError(ErrInvalidFrequency, "frequency must be positive")
	}
	return t.sendCommand(cmdSetFreq, uint32(freq))
}

func (t *RTLTCPTuner) SetGain(_ context.Context, gain string) error {
	if gain == "auto" || gain == "" {
		return t.sendCommand(cmdSetGainMode, 0)
	}
	if err := t.sendCommand(cmdSetGainMode, 1); err != nil {
		return err
	}
	var tenthsDB uint32
	if _, err := fmt.Sscanf(gain, "%d", &tenthsDB); err != nil {
		return NewDeviceError(ErrInvalidGain, fmt.Sprintf("unparseable gain %q", gain))
	}
	return t.sendCommand(cmdSetGain, tenthsDB)
}

// ReadSamples reads n complex samples (2 interleaved uint8 I/Q bytes each,
// offset-centered at 127.5 per the rtl_tcp wire format).
func (t *RTLTCPTuner) ReadSamples(_ context.Context, n int) ([]complex64, error) {
	raw := make([]byte, n*2)
	read := 0
	for read < len(raw) {
		k, err := t.conn.Read(raw[read:])
		if err != nil {
			return nil, NewUSBError(1, fmt.Sprintf("read samples: %v", err))
		}
		read += k
	}
	out := make([]complex64, n)
	for i := 0; i < n; i++ {
		iq := float32(raw[2*i]) - 127.5
		qq := float32(raw[2*i+1]) - 127.5
		out[i] = complex(iq/127.5, qq/127.5)
	}
	return out, nil
}

func (t *RTLTCPTuner) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
