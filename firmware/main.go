//go:build tinygo

//go:generate tinygo flash -target=pico

package main

import (
	"machine"
	"strconv"
	"time"

	"github.com/chewxy/math32"
	"tinygo.org/x/drivers/ds18b20"
	"tinygo.org/x/drivers/onewire"
	"tinygo.org/x/drivers/servo"
)

// hbridge drives one H-bridge channel forward with a PWM duty cycle.
type hbridge struct {
	pwm      servo.PWM
	channel  uint8
	in1, in2 machine.Pin
}

func (h *hbridge) configure(pwm servo.PWM, pin, in1, in2 machine.Pin) {
	h.pwm, h.in1, h.in2 = pwm, in1, in2
	in1.Configure(machine.PinConfig{Mode: machine.PinOutput})
	in2.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pwm.Configure(machine.PWMConfig{Period: PWM_PERIOD_NS})
	ch, err := pwm.Channel(pin)
	if err != nil {
		println("pwm channel:", err.Error())
	}
	h.channel = ch
	h.set(0)
}

// set drives the channel forward at percent power, clamped to 0..100.
func (h *hbridge) set(percent float32) {
	percent = math32.Max(0, math32.Min(100, percent))
	h.in1.High()
	h.in2.Low()
	h.pwm.Set(h.channel, uint32(float32(h.pwm.Top())*percent/100))
}

var (
	adcPhoto machine.ADC
	adcDial  machine.ADC
	uart     = machine.UART0

	stirrer servo.Servo
	heater  hbridge
	pump    hbridge

	probe        ds18b20.Device
	probeROM     []uint8
	conversionAt time.Time
	tempMilli    int32
	tempValid    bool

	// Power button
	presses     uint32
	lastPressAt time.Time

	// ADC averaging - running sums and counts
	photoSum    uint32
	dialSum     uint32
	sampleCount int

	// Timing
	lastADCRead time.Time
	lastReport  time.Time

	// Serial buffer for reading command lines
	serialBuffer [16]byte
	serialPos    int
)

func main() {
	uart.Configure(machine.UARTConfig{BaudRate: UART_BAUD_RATE})

	machine.InitADC()
	adcPhoto = machine.ADC{Pin: PIN_PHOTO}
	adcDial = machine.ADC{Pin: PIN_DIAL}
	adcPhoto.Configure(machine.ADCConfig{})
	adcDial.Configure(machine.ADCConfig{})

	var err error
	stirrer, err = servo.New(PWM_SERVO, PIN_SERVO)
	if err != nil {
		println("servo:", err.Error())
	}
	setStir(0)

	heater.configure(PWM_HEATER, PIN_HEATER_PWM, PIN_HEATER_IN1, PIN_HEATER_IN2)
	pump.configure(PWM_PUMP, PIN_PUMP_PWM, PIN_PUMP_IN1, PIN_PUMP_IN2)

	configureProbe()

	PIN_BUTTON.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	PIN_BUTTON.SetInterrupt(machine.PinFalling, onButton)

	lastADCRead = time.Now()
	lastReport = lastADCRead

	// Main loop
	for {
		now := time.Now()

		processSerial()
		pollTemperature(now)

		if now.Sub(lastADCRead) >= time.Duration(SAMPLE_INTERVAL_MS)*time.Millisecond/NUM_SAMPLES {
			photoSum += uint32(adcPhoto.Get())
			dialSum += uint32(adcDial.Get())
			sampleCount++
			lastADCRead = now
		}

		if now.Sub(lastReport) >= time.Duration(SAMPLE_INTERVAL_MS)*time.Millisecond && sampleCount > 0 {
			report(now)
			photoSum, dialSum, sampleCount = 0, 0, 0
			lastReport = now
		}

		time.Sleep(100 * time.Microsecond)
	}
}

func configureProbe() {
	ow := onewire.New(PIN_ONEWIRE)
	ow.Configure(onewire.Config{})
	probe = ds18b20.New(ow)

	roms, err := ow.Search(onewire.SEARCH_ROM)
	if err != nil || len(roms) == 0 {
		println("ds18b20 not found")
		return
	}
	probeROM = roms[0]
}

// pollTemperature collects a finished conversion and starts the next one.
// A 12-bit DS18B20 conversion takes up to 750ms.
func pollTemperature(now time.Time) {
	if probeROM == nil {
		return
	}
	if !conversionAt.IsZero() {
		if now.Sub(conversionAt) < CONVERSION_MS*time.Millisecond {
			return
		}
		milli, err := probe.ReadTemperature(probeROM)
		tempMilli, tempValid = milli, err == nil
	}
	if err := probe.RequestTemperature(probeROM); err != nil {
		tempValid = false
		conversionAt = time.Time{}
		return
	}
	conversionAt = now
}

func onButton(machine.Pin) {
	now := time.Now()
	if now.Sub(lastPressAt) < DEBOUNCE_MS*time.Millisecond {
		return
	}
	lastPressAt = now
	presses++
}

// report prints one measurement line.
// Format: "unix_micros,temp_millic,light,dial,presses\n"
// Example: "1234567890123,36875,41020,32768,3\n"
func report(now time.Time) {
	light := uint16(photoSum / uint32(sampleCount))
	dial := uint16(dialSum / uint32(sampleCount))

	print(now.UnixNano() / 1000)
	print(",")
	if tempValid {
		print(tempMilli)
	} else {
		print("-")
	}
	print(",")
	print(light)
	print(",")
	print(dial)
	print(",")
	print(presses)
	print("\n")
}

// setStir maps -100..100 power to a continuous servo pulse.
func setStir(percent float32) {
	percent = math32.Max(-100, math32.Min(100, percent))
	us := SERVO_NEUTRAL_US + math32.Round(percent*SERVO_US_PER_PCT)
	stirrer.SetMicroseconds(int16(us))
}

func processSerial() {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		if data == '\n' || data == '\r' {
			if serialPos > 1 {
				handleCommand(serialBuffer[0], string(serialBuffer[1:serialPos]))
			}
			serialPos = 0
			continue
		}

		if data == ' ' || data == '\t' {
			continue
		}

		if serialPos < len(serialBuffer) {
			serialBuffer[serialPos] = data
			serialPos++
		} else {
			// Overlong line - drop it
			serialPos = 0
		}
	}
}

// handleCommand applies one "H42.5", "S-100.0" or "P60.0" command.
func handleCommand(cmd byte, arg string) {
	v, err := strconv.ParseFloat(arg, 32)
	if err != nil {
		return
	}
	percent := float32(v)

	switch cmd {
	case 'H':
		heater.set(percent)
	case 'S':
		setStir(percent)
	case 'P':
		pump.set(percent)
	}
}
