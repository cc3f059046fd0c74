package boardman

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
	"github.com/stianeikeland/go-rpio"
)

// Hashboard control pins, indexed by board slot. Reset pins are
// outputs, low holds the chips in reset. Plug pins are inputs, high
// means a board sits in the slot.
var (
	resetPins []int
	plugPins  []int
	opened    bool
)

//Init maps the GPIO memory block and configures the pins listed in the
//resetio and plugio config entries. Boards are held in reset until a
//driver releases them.
func Init() error {
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("boardman: cannot map GPIO memory: %w", err)
	}
	opened = true
	resetPins = viper.GetIntSlice("resetio")
	plugPins = viper.GetIntSlice("plugio")
	for _, pin := range resetPins {
		log.Printf("Set pin%d as reset output\n", pin)
		rpio.Pin(pin).Output()
		rpio.Pin(pin).Low()
	}
	for _, pin := range plugPins {
		log.Printf("Set pin%d as plug sense input\n", pin)
		rpio.Pin(pin).Input()
	}
	return nil
}

//Close releases the GPIO mapping
func Close() {
	if opened {
		rpio.Close()
		opened = false
	}
}

func resetPin(boardID int) (rpio.Pin, bool) {
	if boardID < 0 || boardID >= len(resetPins) {
		log.Printf("board %d has no reset pin configured", boardID)
		return 0, false
	}
	return rpio.Pin(resetPins[boardID]), true
}

//EnterReset pulls the board's chips into reset
func EnterReset(boardID int) {
	if pin, ok := resetPin(boardID); ok {
		pin.Low()
		log.Printf("board %d entered reset", boardID)
	}
}

//ExitReset releases the board's chips from reset
func ExitReset(boardID int) {
	if pin, ok := resetPin(boardID); ok {
		pin.High()
		log.Printf("board %d released from reset", boardID)
	}
}

//Reset holds the board in reset for the given time and releases it
func Reset(boardID int, hold time.Duration) {
	EnterReset(boardID)
	time.Sleep(hold)
	ExitReset(boardID)
}

//IsPlugged reports whether a hashboard sits in the slot
func IsPlugged(boardID int) bool {
	if boardID < 0 || boardID >= len(plugPins) {
		log.Printf("board %d has no plug pin configured", boardID)
		return false
	}
	return rpio.Pin(plugPins[boardID]).Read() == rpio.High
}
