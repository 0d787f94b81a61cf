package main

import (
	"machine"

	"tinygo.org/x/drivers/ws2812"
)

// The XIAO RP2040 onboard NeoPixel is powered through GPIO11 and driven on
// GPIO12. It lights up while the device waits for a packet.
// https://wiki.seeedstudio.com/XIAO-RP2040-with-Arduino/
var status struct {
	power machine.Pin
	led   ws2812.Device
	ready bool
}

func initMainLED() {
	if status.ready {
		return
	}

	status.power = machine.GPIO11
	status.power.Configure(machine.PinConfig{Mode: machine.PinOutput})
	status.power.Low()

	machine.GPIO12.Configure(machine.PinConfig{Mode: machine.PinOutput})
	status.led = ws2812.New(machine.GPIO12)
	status.ready = true
}

func turnOnMainLED(r, g, b uint8) {
	initMainLED()
	status.power.High()
	status.led.Write([]byte{g, r, b})
}

func turnOffMainLED() {
	initMainLED()
	status.power.Low()
}
