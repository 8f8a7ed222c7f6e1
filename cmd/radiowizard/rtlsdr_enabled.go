//go:build rtlsdr

package main

import "github.com/sfestenstein/radiowizard/device"

func newRtlSdrDevice() device.Device {
	return device.NewRtlSdrDevice()
}
