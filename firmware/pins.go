//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	SAMPLE_INTERVAL_MS = 100 // report interval in milliseconds
	NUM_SAMPLES        = 16  // ADC reads averaged per report
	DEBOUNCE_MS        = 200 // power button debounce
	CONVERSION_MS      = 750 // DS18B20 12-bit conversion time

	// Servo pulse: 1500µs neutral, ±500µs at ±100% power
	SERVO_NEUTRAL_US = 1500
	SERVO_US_PER_PCT = 5

	// H-bridge PWM frequency
	PWM_PERIOD_NS = 1e9 / 1000

	// Stirring servo (continuous rotation)
	PIN_SERVO = machine.GP1

	// Heater H-bridge channel
	PIN_HEATER_PWM = machine.GP4
	PIN_HEATER_IN1 = machine.GP3
	PIN_HEATER_IN2 = machine.GP2

	// Pump H-bridge channel
	PIN_PUMP_PWM = machine.GP13
	PIN_PUMP_IN1 = machine.GP14
	PIN_PUMP_IN2 = machine.GP15

	// Analog inputs
	PIN_PHOTO = machine.GP26 // phototransistor
	PIN_DIAL  = machine.GP27 // pump speed dial

	// DS18B20 one-wire bus
	PIN_ONEWIRE = machine.GP21

	// Power button, active low
	PIN_BUTTON = machine.GP5

	// Serial configuration
	// Line format: "unix_micros,temp_millic,light,dial,presses\n", ~40 bytes at 10 lines/sec.
	UART_BAUD_RATE = 115200
)

var (
	// PWM slices for the pins above (RP2040: slice = (gpio/2) % 8).
	PWM_SERVO  = machine.PWM0
	PWM_HEATER = machine.PWM2
	PWM_PUMP   = machine.PWM6
)
