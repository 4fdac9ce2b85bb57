//go:build rp2040

// Sound level node entrypoint. Runs the driver loop and mirrors every frame
// on the debug UART so a bench host can watch readings without the READY
// line.
package main

import (
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"sensornode-go/drivers/soundlevel"
	"sensornode-go/hal"
	"sensornode-go/hal/rp2"
	"sensornode-go/sensor"
	"sensornode-go/x/conv"
)

// Board wiring.
const (
	pinMicPower = 6
	pinMicMode  = 7
	pinReady    = 8
	pinLED      = 25

	chMic hal.Channel = 0 // GPIO26 / ADC0

	debugBaud = 115200
	loopTick  = 100 * time.Millisecond
	reportGap = 10 // loop ticks between debug frames
)

func main() {
	time.Sleep(2 * time.Second)
	println("[sound] boot")

	dbg := uartx.UART0
	_ = dbg.Configure(uartx.UARTConfig{
		BaudRate: debugBaud,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})

	adc := rp2.NewADC(map[hal.Channel]machine.Pin{
		chMic: machine.GPIO26,
	})

	dev := soundlevel.New(soundlevel.Config{
		ADC:      adc,
		Channel:  chMic,
		MicPower: rp2.NewPin(pinMicPower),
		MicMode:  rp2.NewPin(pinMicMode),
		Activity: rp2.NewPin(pinLED),
		Watchdog: rp2.NewWatchdog(),
		Retain:   rp2.NewRetain(),
		Notify:   rp2.NewPin(pinReady),
	})
	dev.Init()
	dev.Measure() // one reading right after boot

	var frame [sensor.FrameMax]byte
	line := make([]byte, 0, 16)
	ticks := 0
	for {
		dev.Loop()
		ticks++
		if ticks%reportGap == 0 {
			n := dev.GetData(frame[:])
			line = line[:0]
			line = append(line, "dB*600 "...)
			line = conv.AppendHex(line, frame[:n])
			line = append(line, '\r', '\n')
			_, _ = dbg.Write(line)
		}
		time.Sleep(loopTick)
	}
}
