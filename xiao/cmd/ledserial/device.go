package main

import (
	"fmt"
	"machine"

	"github.com/exor2008/Pleiades/ledserial"
	"tinygo.org/x/drivers/ws2812"
)

// Device drives the LED matrix strip from frames received over serial.
type Device struct {
	serial SerialReadWriter
	strip  ws2812.Device

	numLEDs uint16
	pix     []byte
}

// NewDevice creates a new device.
func NewDevice(serial machine.Serialer, stripPin machine.Pin) *Device {
	stripPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &Device{
		serial: WrapSerial(serial),
		strip:  ws2812.New(stripPin),
	}
}

// Run handles packets forever. Every packet is answered with an ack or an
// error so the host can pace its frames.
func (d *Device) Run() {
	for {
		p, err := d.readPacket()
		if err != nil {
			d.sendError(err)
			continue
		}

		if err := d.handlePacket(p); err != nil {
			d.sendError(err)
			continue
		}

		d.send(ledserial.AckPacket{IncomingPacketType: p.Type()})
	}
}

func (d *Device) send(p ledserial.OutgoingPacket) {
	ledserial.WriteOutgoingPacket(d.serial, p)
}

func (d *Device) sendError(err error) {
	d.send(ledserial.ErrorPacket{Message: err.Error()})
}

func (d *Device) readPacket() (ledserial.IncomingPacket, error) {
	turnOnMainLED(0, 16, 0)
	defer turnOffMainLED()

	return ledserial.ReadIncomingPacket(d.serial, ledserial.ReadContext{
		NumLEDs:   d.numLEDs,
		LEDBuffer: d.pix,
	})
}

func (d *Device) handlePacket(p ledserial.IncomingPacket) error {
	switch p := p.(type) {
	case ledserial.InitializePacket:
		if p.NumLEDs < 1 {
			return fmt.Errorf("invalid number of LEDs: %d", p.NumLEDs)
		}
		d.numLEDs = p.NumLEDs
		d.pix = make([]byte, 3*int(p.NumLEDs))
		d.send(ledserial.LogPacket{Message: fmt.Sprintf("initialized %d LEDs", p.NumLEDs)})
		d.show()

	case ledserial.ClearPacket:
		clear(d.pix)
		d.show()

	case ledserial.SetPacket:
		// ws2812 strips expect GRB order.
		for i := 0; i+2 < len(p.Pix); i += 3 {
			p.Pix[i], p.Pix[i+1] = p.Pix[i+1], p.Pix[i]
		}
		d.strip.Write(p.Pix)

	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}

	return nil
}

func (d *Device) show() {
	d.strip.Write(d.pix)
}
