package driver

import (
	"bytes"
	"testing"

	"go.uber.org/zap"
)

func TestReadLoopFansOutFrames(t *testing.T) {
	resp := testFrame([]byte{0x13, 0x87, 0x90, 0x04, 0x04, 0x00}, false)
	nonce := testFrame([]byte{0x00, 0x00, 0x00, 0x04, 0x01, 0x00}, true)
	stream := append(append([]byte{}, resp...), nonce...)

	tr := &uartTransport{
		logger:    zap.NewNop(),
		respChan:  make(chan []byte, 4),
		nonceChan: make(chan NonceFrame, 4),
		quit:      make(chan struct{}),
	}
	tr.readLoop(bytes.NewReader(stream))

	select {
	case payload := <-tr.respChan:
		if !bytes.Equal(payload, resp[:framePayloadSize]) {
			t.Errorf("command payload is %x, want %x", payload, resp[:framePayloadSize])
		}
	default:
		t.Fatal("command response never arrived")
	}
	select {
	case nf := <-tr.nonceChan:
		if nf.Nonce != 0x00000004 || nf.WorkID != 0x01 {
			t.Errorf("nonce frame decoded as %+v, want nonce 0x00000004 work id 1", nf)
		}
	default:
		t.Fatal("nonce frame never arrived")
	}
}
