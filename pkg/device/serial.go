package device

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const (
	// DefaultBaudRate is the UART speed of the Pico bridge firmware.
	DefaultBaudRate = 115200
	// DefaultStaleAfter is how long a reading stays valid after it was received.
	DefaultStaleAfter = 2 * time.Second
)

// RawSample represents a raw measurement line from the MCU.
type RawSample struct {
	Timestamp   time.Time // MCU timestamp
	Received    time.Time // host receive time
	Temperature float64   // °C
	TempValid   bool      // false when the probe did not answer
	Light       uint16    // 16-bit ADC code
	Dial        uint16    // 16-bit ADC code
	Presses     uint32    // power button press counter
}

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial represents a connection to the bridge MCU. A reader goroutine keeps the latest
// sample; reads return it while it is fresh.
type Serial struct {
	port       string
	baudRate   int
	staleAfter time.Duration
	log        zerolog.Logger

	conn      io.ReadWriteCloser
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
	done      chan struct{}

	latest      RawSample
	haveSample  bool
	lastPresses uint32

	cbMu      sync.RWMutex
	callbacks []func()

	writeMu sync.Mutex
	now     func() time.Time
}

// New creates a new Serial instance for the given port.
func New(port string, baudRate int, staleAfter time.Duration, log zerolog.Logger) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if staleAfter == 0 {
		staleAfter = DefaultStaleAfter
	}

	return &Serial{
		port:       port,
		baudRate:   baudRate,
		staleAfter: staleAfter,
		log:        log.With().Str("port", port).Logger(),
		now:        time.Now,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err == nil {
		result := make([]Port, 0, len(details))
		for _, d := range details {
			desc := d.Name
			if d.IsUSB {
				desc = fmt.Sprintf("%s (USB %s:%s %s)", d.Name, d.VID, d.PID, d.Product)
			}
			result = append(result, Port{Name: d.Name, Description: desc})
		}
		return result, nil
	}

	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(names))
	for _, name := range names {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Connect opens the serial port and starts reading samples.
func (d *Serial) Connect() error {
	d.mu.RLock()
	connected := d.connected
	d.mu.RUnlock()
	if connected {
		return fmt.Errorf("already connected")
	}

	port, err := serial.Open(d.port, &serial.Mode{BaudRate: d.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	return d.attach(port)
}

// attach starts the reader on an already open connection.
func (d *Serial) attach(conn io.ReadWriteCloser) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	d.conn = conn
	d.connected = true
	d.haveSample = false
	d.done = make(chan struct{})
	d.ctx, d.cancel = context.WithCancel(context.Background())

	go d.readSamples(d.ctx, conn, d.done)

	return nil
}

// Close closes the connection and waits for the reader to stop.
func (d *Serial) Close() error {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return nil
	}

	d.cancel()
	var err error
	if d.conn != nil {
		if err = d.conn.Close(); err != nil {
			err = fmt.Errorf("failed to close serial port: %w", err)
		}
		d.conn = nil
	}
	d.connected = false
	done := d.done
	d.mu.Unlock()

	<-done
	return err
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// OnPowerToggle registers a callback invoked once per power button press.
func (d *Serial) OnPowerToggle(fn func()) {
	d.cbMu.Lock()
	defer d.cbMu.Unlock()
	d.callbacks = append(d.callbacks, fn)
}

// Latest returns the last received sample.
func (d *Serial) Latest() (RawSample, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.latest, d.haveSample
}

// ReadTemperature returns the latest probe temperature.
func (d *Serial) ReadTemperature() (float64, error) {
	s, err := d.fresh()
	if err != nil {
		return 0, err
	}
	if !s.TempValid {
		return 0, fmt.Errorf("temperature probe not responding")
	}
	return s.Temperature, nil
}

// ReadLight returns the latest phototransistor reading.
func (d *Serial) ReadLight() (uint16, error) {
	s, err := d.fresh()
	if err != nil {
		return 0, err
	}
	return s.Light, nil
}

// ReadDial returns the latest pump dial reading.
func (d *Serial) ReadDial() (uint16, error) {
	s, err := d.fresh()
	if err != nil {
		return 0, err
	}
	return s.Dial, nil
}

// SetHeaterPower sends a heater command.
func (d *Serial) SetHeaterPower(percent float64) error {
	return d.send(Heater, 'H', percent)
}

// SetStirPower sends a stirring command.
func (d *Serial) SetStirPower(percent float64) error {
	return d.send(Stir, 'S', percent)
}

// SetPumpPower sends a pump command.
func (d *Serial) SetPumpPower(percent float64) error {
	return d.send(Pump, 'P', percent)
}

func (d *Serial) fresh() (RawSample, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return RawSample{}, ErrNotConnected
	}
	if !d.haveSample {
		return RawSample{}, ErrNoSample
	}
	if age := d.now().Sub(d.latest.Received); age > d.staleAfter {
		return RawSample{}, fmt.Errorf("%w: last sample %v old", ErrNoSample, age.Round(time.Millisecond))
	}
	return d.latest, nil
}

func (d *Serial) send(t Target, prefix byte, percent float64) error {
	if err := checkRange(t, percent); err != nil {
		return err
	}

	d.mu.RLock()
	conn := d.conn
	connected := d.connected
	d.mu.RUnlock()
	if !connected {
		return fmt.Errorf("%w: %w", ErrActuatorFault, ErrNotConnected)
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	if _, err := conn.Write(formatCommand(prefix, percent)); err != nil {
		return fmt.Errorf("%w: failed to send %s command: %w", ErrActuatorFault, t, err)
	}
	return nil
}

// formatCommand builds a command line: one letter and a value with one decimal.
// Example: "H42.5\n", "S-100.0\n"
func formatCommand(prefix byte, percent float64) []byte {
	buf := make([]byte, 0, 12)
	buf = append(buf, prefix)
	buf = strconv.AppendFloat(buf, percent, 'f', 1, 64)
	return append(buf, '\n')
}

// readSamples reads lines from the serial port and stores the latest sample.
func (d *Serial) readSamples(ctx context.Context, conn io.Reader, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Msg("serial reader stopped")
		}
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		sample, err := parseLine(line)
		if err != nil {
			d.log.Warn().Err(err).Str("line", line).Msg("failed to parse line")
			continue
		}
		sample.Received = d.now()
		d.store(sample)
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		d.log.Error().Err(err).Msg("error reading from serial port")
	}
}

// store records the sample and fires one toggle per new button press.
func (d *Serial) store(sample RawSample) {
	d.mu.Lock()
	presses := 0
	// A counter that went backwards means the MCU rebooted.
	if d.haveSample && sample.Presses > d.lastPresses {
		presses = int(sample.Presses - d.lastPresses)
	}
	d.latest = sample
	d.haveSample = true
	d.lastPresses = sample.Presses
	d.mu.Unlock()

	if presses <= 0 {
		return
	}

	d.cbMu.RLock()
	callbacks := make([]func(), len(d.callbacks))
	copy(callbacks, d.callbacks)
	d.cbMu.RUnlock()

	for range presses {
		for _, cb := range callbacks {
			if cb != nil {
				cb()
			}
		}
	}
}

// parseLine parses a line from the MCU into a RawSample.
// Format: unix_micros,temp_millic,light,dial,presses
// Example: 1234567890123,36875,41020,32768,3
// A "-" temperature means the probe did not answer.
func parseLine(line string) (RawSample, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 5 {
		return RawSample{}, fmt.Errorf("invalid line format: expected 5 comma-separated values, got %d", len(parts))
	}

	timestampMicros, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return RawSample{}, fmt.Errorf("invalid timestamp: %w", err)
	}

	var (
		temperature float64
		tempValid   bool
	)
	if parts[1] != "-" {
		milli, err := strconv.ParseInt(parts[1], 10, 32)
		if err != nil {
			return RawSample{}, fmt.Errorf("invalid temperature: %w", err)
		}
		temperature = float64(milli) / 1000
		tempValid = true
	}

	light, err := strconv.ParseUint(parts[2], 10, 16)
	if err != nil {
		return RawSample{}, fmt.Errorf("invalid light reading: %w", err)
	}

	dial, err := strconv.ParseUint(parts[3], 10, 16)
	if err != nil {
		return RawSample{}, fmt.Errorf("invalid dial reading: %w", err)
	}

	presses, err := strconv.ParseUint(parts[4], 10, 32)
	if err != nil {
		return RawSample{}, fmt.Errorf("invalid press counter: %w", err)
	}

	return RawSample{
		Timestamp:   time.Unix(0, timestampMicros*1000),
		Temperature: temperature,
		TempValid:   tempValid,
		Light:       uint16(light),
		Dial:        uint16(dial),
		Presses:     uint32(presses),
	}, nil
}
