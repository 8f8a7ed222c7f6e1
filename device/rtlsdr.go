//go:build rtlsdr

package device

// #cgo LDFLAGS: -lrtlsdr
// #include <stdlib.h>
// #include <rtl-sdr.h>
//
// extern void goRtlSdrCallback(unsigned char *buf, uint32_t len, void *ctx);
import "C"

import (
	"sync"
	"unsafe"

	"github.com/sfestenstein/radiowizard/iq"
)

// RtlSdrDevice wraps librtlsdr's C API behind the Device interface. Async
// streaming runs on a goroutine calling rtlsdr_read_async, which blocks
// until rtlsdr_cancel_async is invoked from StopStreaming.
type RtlSdrDevice struct {
	mu sync.Mutex

	dev          *C.rtlsdr_dev_t
	open         bool
	centerFreqHz uint64
	sampleRateHz uint32
	gainTenthsDb int
	autoGain     bool
	streaming    bool
	doneCh       chan struct{}

	callback RawIqCallback
}

//export goRtlSdrCallback
func goRtlSdrCallback(buf *C.uchar, length C.uint32_t, ctx unsafe.Pointer) {
	d := (*RtlSdrDevice)(ctx)
	if d == nil || d.callback == nil || length == 0 {
		return
	}
	data := C.GoBytes(unsafe.Pointer(buf), C.int(length))
	d.callback(data)
}

func NewRtlSdrDevice() *RtlSdrDevice {
	return &RtlSdrDevice{gainTenthsDb: 0, autoGain: true}
}

func (d *RtlSdrDevice) Open(deviceIndex int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return true
	}
	var dev *C.rtlsdr_dev_t
	if C.rtlsdr_open(&dev, C.uint32_t(deviceIndex)) != 0 {
		return false
	}
	d.dev = dev
	d.open = true
	return true
}

func (d *RtlSdrDevice) Close() {
	d.StopStreaming()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev != nil {
		C.rtlsdr_close(d.dev)
		d.dev = nil
	}
	d.open = false
}

func (d *RtlSdrDevice) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

func (d *RtlSdrDevice) SetCenterFrequency(frequencyHz uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil || C.rtlsdr_set_center_freq(d.dev, C.uint32_t(frequencyHz)) != 0 {
		return false
	}
	d.centerFreqHz = frequencyHz
	return true
}

func (d *RtlSdrDevice) CenterFrequency() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.centerFreqHz
}

func (d *RtlSdrDevice) SetSampleRate(rateHz uint32) bool {
	if !iq.IsSupportedSampleRate(uint(rateHz)) {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil || C.rtlsdr_set_sample_rate(d.dev, C.uint32_t(rateHz)) != 0 {
		return false
	}
	d.sampleRateHz = rateHz
	return true
}

func (d *RtlSdrDevice) SampleRate() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sampleRateHz
}

func (d *RtlSdrDevice) SetAutoGain(enabled bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	mode := C.int(0)
	if !enabled {
		mode = 1
	}
	if d.dev == nil || C.rtlsdr_set_tuner_gain_mode(d.dev, mode) != 0 {
		return false
	}
	d.autoGain = enabled
	return true
}

func (d *RtlSdrDevice) SetGain(tenthsDb int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil || C.rtlsdr_set_tuner_gain(d.dev, C.int(tenthsDb)) != 0 {
		return false
	}
	d.gainTenthsDb = tenthsDb
	return true
}

func (d *RtlSdrDevice) Gain() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gainTenthsDb
}

func (d *RtlSdrDevice) GainValues() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil {
		return nil
	}
	n := C.rtlsdr_get_tuner_gains(d.dev, nil)
	if n <= 0 {
		return nil
	}
	raw := make([]C.int, n)
	C.rtlsdr_get_tuner_gains(d.dev, &raw[0])
	out := make([]int, n)
	for i, v := range raw {
		out[i] = int(v)
	}
	return out
}

func (d *RtlSdrDevice) StartStreaming(callback RawIqCallback, bufferSize int) bool {
	d.mu.Lock()
	if d.dev == nil || d.streaming {
		d.mu.Unlock()
		return false
	}
	C.rtlsdr_reset_buffer(d.dev)
	d.callback = callback
	d.streaming = true
	d.doneCh = make(chan struct{})
	dev := d.dev
	done := d.doneCh
	d.mu.Unlock()

	go func() {
		defer close(done)
		C.rtlsdr_read_async(
			dev,
			(C.rtlsdr_read_async_cb_t)(C.goRtlSdrCallback),
			unsafe.Pointer(d),
			0,
			C.uint32_t(bufferSize),
		)
	}()
	return true
}

func (d *RtlSdrDevice) StopStreaming() {
	d.mu.Lock()
	if !d.streaming || d.dev == nil {
		d.mu.Unlock()
		return
	}
	dev := d.dev
	done := d.doneCh
	d.mu.Unlock()

	C.rtlsdr_cancel_async(dev)
	<-done

	d.mu.Lock()
	d.streaming = false
	d.callback = nil
	d.mu.Unlock()
}

func (d *RtlSdrDevice) IsStreaming() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streaming
}

func (d *RtlSdrDevice) Name() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil {
		return "RTL-SDR"
	}
	return C.GoString(C.rtlsdr_get_device_name(0))
}

func (d *RtlSdrDevice) EnumerateDevices() []iq.DeviceInfo {
	count := int(C.rtlsdr_get_device_count())
	infos := make([]iq.DeviceInfo, 0, count)
	var manufact, product, serial [256]C.char
	for i := 0; i < count; i++ {
		C.rtlsdr_get_device_usb_strings(
			C.uint32_t(i),
			(*C.char)(unsafe.Pointer(&manufact[0])),
			(*C.char)(unsafe.Pointer(&product[0])),
			(*C.char)(unsafe.Pointer(&serial[0])),
		)
		infos = append(infos, iq.DeviceInfo{
			Index:        i,
			Name:         C.GoString(C.rtlsdr_get_device_name(C.uint32_t(i))),
			Manufacturer: C.GoString((*C.char)(unsafe.Pointer(&manufact[0]))),
			Product:      C.GoString((*C.char)(unsafe.Pointer(&product[0]))),
			Serial:       C.GoString((*C.char)(unsafe.Pointer(&serial[0]))),
		})
	}
	return infos
}
