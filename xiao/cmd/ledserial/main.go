// Command ledserial is the XIAO RP2040 firmware that receives frames from the
// pleiades daemon over USB serial and shows them on the matrix strip.
package main

import "machine"

const stripPin = machine.D10

func main() {
	machine.Serial.Configure(machine.UARTConfig{BaudRate: 115200})
	NewDevice(machine.Serial, stripPin).Run()
}
