package driver

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"go.uber.org/zap"
)

type uartTransport struct {
	device    string
	logger    *zap.Logger
	writeMu   sync.Mutex
	port      io.ReadWriteCloser
	respChan  chan []byte
	nonceChan chan NonceFrame
	quit      chan struct{}
	closeOnce sync.Once
}

//NewUARTTransport opens the chain bus behind a serial device
func NewUARTTransport(device string, baud uint, logger *zap.Logger) (Transport, error) {
	t := &uartTransport{
		device:    device,
		logger:    logger,
		respChan:  make(chan []byte, 64),
		nonceChan: make(chan NonceFrame, 256),
		quit:      make(chan struct{}),
	}
	if err := t.open(baud); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *uartTransport) open(baud uint) error {
	options := serial.OpenOptions{
		PortName:        t.device,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	}
	port, err := serial.Open(options)
	if err != nil {
		return fmt.Errorf("driver: cannot open %s: %w", t.device, err)
	}
	t.port = port
	go t.readLoop(port)
	return nil
}

// readLoop scans the upstream byte flow into frames and fans them out
// by the flag bit. One loop runs per opened port, a baud rate switch
// replaces the port and the stale loop dies with it.
func (t *uartTransport) readLoop(port io.Reader) {
	scanner := bufio.NewScanner(port)
	scanner.Split(scanFrames)
	for scanner.Scan() {
		frame := scanner.Bytes()
		payload := make([]byte, framePayloadSize)
		copy(payload, frame)
		if frame[framePayloadSize]&nonceFlagBit != 0 {
			nf := NonceFrame{
				Nonce:  binary.BigEndian.Uint32(payload[:4]),
				WorkID: payload[4],
			}
			select {
			case t.nonceChan <- nf:
			case <-t.quit:
				return
			}
		} else {
			select {
			case t.respChan <- payload:
			case <-t.quit:
				return
			}
		}
	}
	t.logger.Debug("UART scanner exited", zap.String("device", t.device))
}

func (t *uartTransport) SendCommand(frame []byte) error {
	full := make([]byte, len(frame)+1)
	copy(full, frame)
	full[len(frame)] = crc5(frame)
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if t.port == nil {
		return ErrTransportClosed
	}
	if _, err := t.port.Write(full); err != nil {
		return fmt.Errorf("driver: write to %s failed: %w", t.device, err)
	}
	return nil
}

func (t *uartTransport) ReadCmdResponse(timeout time.Duration) ([]byte, error) {
	select {
	case payload := <-t.respChan:
		return payload, nil
	case <-time.After(timeout):
		return nil, ErrResponseTimeout
	case <-t.quit:
		return nil, ErrTransportClosed
	}
}

func (t *uartTransport) Nonces() <-chan NonceFrame {
	return t.nonceChan
}

func (t *uartTransport) SetBaudRate(baud uint) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if t.port != nil {
		t.port.Close()
	}
	t.logger.Info("switching host baud rate", zap.String("device", t.device), zap.Uint("baud", baud))
	return t.open(baud)
}

func (t *uartTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.quit)
		t.writeMu.Lock()
		defer t.writeMu.Unlock()
		if t.port != nil {
			err = t.port.Close()
			t.port = nil
		}
	})
	return err
}
