package main

import (
	"io"
	"machine"
	"runtime"
	"time"
)

// SerialReadWriter is the serial port as the packet codec sees it.
type SerialReadWriter interface {
	io.ReadWriter
	// Buffered returns the number of bytes waiting to be read.
	Buffered() int
}

type serialIO struct {
	machine.Serialer
}

// WrapSerial adapts a machine.Serialer to io.ReadWriter. Reads never block
// for long: an empty buffer sleeps for a millisecond and reports zero bytes,
// which io.ReadFull retries.
func WrapSerial(serial machine.Serialer) SerialReadWriter {
	return serialIO{Serialer: serial}
}

func (s serialIO) Read(b []byte) (int, error) {
	n := min(s.Buffered(), len(b))
	if n == 0 {
		time.Sleep(time.Millisecond)
		return 0, nil
	}

	for i := range n {
		c, err := s.ReadByte()
		if err != nil {
			return i, err
		}
		b[i] = c
	}

	runtime.Gosched()
	return n, nil
}

func (s serialIO) Write(b []byte) (int, error) {
	for i, c := range b {
		if err := s.WriteByte(c); err != nil {
			return i, err
		}
	}
	runtime.Gosched()
	return len(b), nil
}
