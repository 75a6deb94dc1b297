package device

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    RawSample
		wantErr bool
	}{
		{
			name: "valid line",
			line: "1234567890123,36875,41020,32768,3",
			want: RawSample{
				Timestamp:   time.Unix(0, 1234567890123*1000),
				Temperature: 36.875,
				TempValid:   true,
				Light:       41020,
				Dial:        32768,
				Presses:     3,
			},
		},
		{
			name: "negative temperature",
			line: "1,-1500,0,0,0",
			want: RawSample{
				Timestamp:   time.Unix(0, 1000),
				Temperature: -1.5,
				TempValid:   true,
			},
		},
		{
			name: "probe missing",
			line: "1,-,65535,65535,0",
			want: RawSample{
				Timestamp: time.Unix(0, 1000),
				Light:     65535,
				Dial:      65535,
			},
		},
		{
			name:    "invalid - wrong number of fields",
			line:    "1,36875,41020,32768",
			wantErr: true,
		},
		{
			name:    "invalid - too many fields",
			line:    "1,36875,41020,32768,0,extra",
			wantErr: true,
		},
		{
			name:    "invalid - timestamp",
			line:    "abc,36875,41020,32768,0",
			wantErr: true,
		},
		{
			name:    "invalid - temperature",
			line:    "1,hot,41020,32768,0",
			wantErr: true,
		},
		{
			name:    "invalid - light out of range",
			line:    "1,36875,65536,32768,0",
			wantErr: true,
		},
		{
			name:    "invalid - dial",
			line:    "1,36875,41020,-1,0",
			wantErr: true,
		},
		{
			name:    "invalid - presses",
			line:    "1,36875,41020,32768,x",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatCommand(t *testing.T) {
	assert.Equal(t, "H42.5\n", string(formatCommand('H', 42.5)))
	assert.Equal(t, "S-100.0\n", string(formatCommand('S', -100)))
	assert.Equal(t, "P0.0\n", string(formatCommand('P', 0)))
	assert.Equal(t, "P66.7\n", string(formatCommand('P', 66.66)))
}

// fakeConn feeds lines written to the pipe and captures commands.
type fakeConn struct {
	r *io.PipeReader

	mu       sync.Mutex
	written  bytes.Buffer
	writeErr error
}

func (c *fakeConn) Read(p []byte) (int, error) { return c.r.Read(p) }

func (c *fakeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	return c.written.Write(p)
}

func (c *fakeConn) Close() error { return c.r.Close() }

func (c *fakeConn) Written() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written.String()
}

type fakeClock struct{ ns atomic.Int64 }

func (c *fakeClock) Now() time.Time          { return time.Unix(0, c.ns.Load()) }
func (c *fakeClock) Advance(d time.Duration) { c.ns.Add(int64(d)) }

func newAttachedSerial(t *testing.T) (*Serial, *io.PipeWriter, *fakeConn, *fakeClock) {
	t.Helper()

	clock := &fakeClock{}
	clock.ns.Store(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())

	pr, pw := io.Pipe()
	conn := &fakeConn{r: pr}

	d := New("fake", 0, time.Second, zerolog.Nop())
	d.now = clock.Now
	require.NoError(t, d.attach(conn))
	t.Cleanup(func() {
		pw.Close()
		d.Close()
	})
	return d, pw, conn, clock
}

func sendLine(t *testing.T, pw *io.PipeWriter, d *Serial, line string, presses uint32) {
	t.Helper()
	_, err := pw.Write([]byte(line + "\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		s, ok := d.Latest()
		return ok && s.Presses == presses
	}, time.Second, time.Millisecond)
}

func TestSerial_ReadsLatestSample(t *testing.T) {
	d, pw, _, _ := newAttachedSerial(t)

	_, err := d.ReadTemperature()
	assert.ErrorIs(t, err, ErrNoSample)

	sendLine(t, pw, d, "1,36875,41020,32768,0", 0)

	temp, err := d.ReadTemperature()
	require.NoError(t, err)
	assert.Equal(t, 36.875, temp)

	light, err := d.ReadLight()
	require.NoError(t, err)
	assert.Equal(t, uint16(41020), light)

	dial, err := d.ReadDial()
	require.NoError(t, err)
	assert.Equal(t, uint16(32768), dial)
}

func TestSerial_ProbeMissing(t *testing.T) {
	d, pw, _, _ := newAttachedSerial(t)

	sendLine(t, pw, d, "1,-,41020,32768,0", 0)

	_, err := d.ReadTemperature()
	assert.Error(t, err)

	light, err := d.ReadLight()
	require.NoError(t, err)
	assert.Equal(t, uint16(41020), light)
}

func TestSerial_StaleSample(t *testing.T) {
	d, pw, _, clock := newAttachedSerial(t)

	sendLine(t, pw, d, "1,36875,41020,32768,0", 0)
	clock.Advance(1500 * time.Millisecond)

	_, err := d.ReadLight()
	assert.ErrorIs(t, err, ErrNoSample)
}

func TestSerial_SkipsMalformedLines(t *testing.T) {
	d, pw, _, _ := newAttachedSerial(t)

	_, err := pw.Write([]byte("garbage\n\n"))
	require.NoError(t, err)
	sendLine(t, pw, d, "2,30000,100,200,0", 0)

	temp, err := d.ReadTemperature()
	require.NoError(t, err)
	assert.Equal(t, 30.0, temp)
}

func TestSerial_PowerToggleOnPress(t *testing.T) {
	d, pw, _, _ := newAttachedSerial(t)

	var toggles atomic.Int32
	d.OnPowerToggle(func() { toggles.Add(1) })

	// The first sample only establishes the counter
	sendLine(t, pw, d, "1,36000,100,100,5", 5)
	assert.Equal(t, int32(0), toggles.Load())

	sendLine(t, pw, d, "2,36000,100,100,6", 6)
	waitToggles(t, &toggles, 1)

	sendLine(t, pw, d, "3,36000,100,100,8", 8)
	waitToggles(t, &toggles, 3)

	// MCU reboot resets the counter without toggling
	sendLine(t, pw, d, "4,36000,100,100,0", 0)
	assert.Equal(t, int32(3), toggles.Load())

	sendLine(t, pw, d, "5,36000,100,100,1", 1)
	waitToggles(t, &toggles, 4)
}

func waitToggles(t *testing.T, toggles *atomic.Int32, want int32) {
	t.Helper()
	assert.Eventually(t, func() bool { return toggles.Load() == want }, time.Second, time.Millisecond)
}

func TestSerial_SendsCommands(t *testing.T) {
	d, _, conn, _ := newAttachedSerial(t)

	require.NoError(t, d.SetHeaterPower(42.5))
	require.NoError(t, d.SetStirPower(-100))
	require.NoError(t, d.SetPumpPower(60))

	assert.Equal(t, "H42.5\nS-100.0\nP60.0\n", conn.Written())
}

func TestSerial_RejectsOutOfRange(t *testing.T) {
	d, _, conn, _ := newAttachedSerial(t)

	assert.ErrorIs(t, d.SetHeaterPower(120), ErrActuatorFault)
	assert.ErrorIs(t, d.SetStirPower(-101), ErrActuatorFault)
	assert.ErrorIs(t, d.SetPumpPower(-1), ErrActuatorFault)
	assert.Empty(t, conn.Written())
}

func TestSerial_WriteError(t *testing.T) {
	d, _, conn, _ := newAttachedSerial(t)

	conn.mu.Lock()
	conn.writeErr = errors.New("device unplugged")
	conn.mu.Unlock()

	err := d.SetHeaterPower(10)
	assert.ErrorIs(t, err, ErrActuatorFault)
}

func TestSerial_Close(t *testing.T) {
	d, _, _, _ := newAttachedSerial(t)

	assert.True(t, d.IsConnected())
	require.NoError(t, d.Close())
	assert.False(t, d.IsConnected())

	_, err := d.ReadLight()
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, d.SetPumpPower(10), ErrNotConnected)

	// Closing twice is a no-op
	assert.NoError(t, d.Close())
}
