//go:build rp2040

// Power monitor node entrypoint. The power node is poll-only: a reading is
// requested on a fixed cadence and every completed cycle pulses READY.
package main

import (
	"machine"
	"time"

	"sensornode-go/drivers/powermon"
	"sensornode-go/hal"
	"sensornode-go/hal/rp2"
)

// Board wiring.
const (
	pinSolarEn = 2
	pinBatEn   = 3
	pinVRefEn  = 4
	pinReady   = 8
	pinLED     = 25

	chSolar   hal.Channel = 0 // GPIO26 / ADC0
	chBattery hal.Channel = 1 // GPIO27 / ADC1

	loopTick   = 100 * time.Millisecond
	measureGap = 600 // loop ticks between readings (~1 min)
)

func main() {
	time.Sleep(2 * time.Second)
	println("[power] boot")

	adc := rp2.NewADC(map[hal.Channel]machine.Pin{
		chSolar:   machine.GPIO26,
		chBattery: machine.GPIO27,
	})

	vrefPin := rp2.NewPin(pinVRefEn)
	vrefPin.ConfigureOutput(false)

	dev := powermon.New(powermon.Config{
		ADC:            adc,
		VRef:           hal.PinVRef{Pin: vrefPin},
		SolarChannel:   chSolar,
		BatteryChannel: chBattery,
		SolarEnable:    rp2.NewPin(pinSolarEn),
		BatteryEnable:  rp2.NewPin(pinBatEn),
		Activity:       rp2.NewPin(pinLED),
		Watchdog:       rp2.NewWatchdog(),
		Retain:         rp2.NewRetain(),
		Notify:         rp2.NewPin(pinReady),
	})
	dev.Init()

	ticks := 0
	for {
		if ticks%measureGap == 0 {
			dev.Measure()
		}
		dev.Loop()
		ticks++
		time.Sleep(loopTick)
	}
}
