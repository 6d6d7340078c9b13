package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"minos/device"
	"minos/internal/sh"
	"minos/kernel/hal"
	"minos/kernel/irq"
	"minos/machine"
)

// loadOptions reads the optional --config file; absent fields keep the
// machine defaults.
func loadOptions() (machine.Options, error) {
	var opts machine.Options
	if flagConfig == "" {
		return opts, nil
	}

	data, err := os.ReadFile(flagConfig)
	if err != nil {
		return opts, err
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parse %s: %w", flagConfig, err)
	}
	return opts, nil
}

// bootMachine constructs the machine, boots the drivers on it, wires the
// keyboard interrupt to the console driver and starts the demo shell.
func bootMachine(opts machine.Options, serialOut io.Writer, log *logrus.Logger) (*machine.Machine, error) {
	m := machine.New(opts, serialOut, log)

	hw := hal.Hardware{
		Ports:       m.Bus(),
		VRAM:        m.VRAM(),
		SerialTx:    m.UART(),
		Keyboard:    m.Keyboard().Getc,
		PIC:         m.PIC(),
		IOAPIC:      m.IOAPIC(),
		CurrentCore: m.BootCore,
		Reboot:      m.RequestReboot,
	}

	cons, kerr := hal.Boot(hw)
	if kerr != nil {
		m.Close()
		return nil, fmt.Errorf("boot: %s: %s", kerr.Module, kerr.Message)
	}

	m.SetIRQHandler(irq.LineKeyboard, func() {
		cons.HandleInterrupt(hw.Keyboard)
	})
	m.BootCore().EnableInterrupts()

	ops, ok := device.Lookup(device.MajorConsole)
	if !ok {
		m.Close()
		return nil, fmt.Errorf("boot: console not registered in device switch")
	}
	sh.New(cons, ops).Start()

	return m, nil
}
