package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/yegors/co-translate/pkg/logger"
)

// MicrophoneConfig holds capture device settings
type MicrophoneConfig struct {
	Device     string // device name, empty for the system default
	SampleRate int
	VADMode    int
	Pause      time.Duration
	MinSpeech  time.Duration
}

// Microphone captures from a local input device and segments it into utterances
type Microphone struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	frames chan []byte
	seg    *Segmenter
	logger *logger.Logger

	mu      sync.Mutex
	framer  framer
	dropped int
	closed  bool
}

// NewMicrophone opens the capture device and starts streaming frames
func NewMicrophone(cfg MicrophoneConfig, logger *logger.Logger) (*Microphone, error) {
	log := logger.Named("microphone")

	vad, err := NewWebRTCVAD(cfg.SampleRate, cfg.VADMode)
	if err != nil {
		return nil, err
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init audio context: %w", err)
	}

	m := &Microphone{
		ctx:    mctx,
		frames: make(chan []byte, 256),
		logger: log,
		framer: framer{size: FrameBytes(cfg.SampleRate)},
	}
	m.seg = NewSegmenter(SegmenterConfig{
		SampleRate: cfg.SampleRate,
		Pause:      cfg.Pause,
		MinSpeech:  cfg.MinSpeech,
	}, m.frames, vad, logger)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(cfg.SampleRate)

	if cfg.Device != "" {
		devices, err := mctx.Devices(malgo.Capture)
		if err != nil {
			m.freeContext()
			return nil, fmt.Errorf("failed to list capture devices: %w", err)
		}
		found := false
		for _, d := range devices {
			if d.Name() == cfg.Device {
				deviceConfig.Capture.DeviceID = d.ID.Pointer()
				found = true
				break
			}
		}
		if !found {
			m.freeContext()
			return nil, fmt.Errorf("capture device not found: %s", cfg.Device)
		}
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			m.push(input)
		},
	}

	dev, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		m.freeContext()
		return nil, fmt.Errorf("failed to init capture device: %w", err)
	}
	m.device = dev

	if err := dev.Start(); err != nil {
		dev.Uninit()
		m.freeContext()
		return nil, fmt.Errorf("failed to start capture device: %w", err)
	}

	log.Info("Microphone started",
		String("device", cfg.Device),
		Int("sample_rate", cfg.SampleRate))

	return m, nil
}

// push runs on the audio thread and must never block
func (m *Microphone) push(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	for _, frame := range m.framer.push(data) {
		select {
		case m.frames <- frame:
		default:
			m.dropped++
		}
	}
}

// Listen implements Source
func (m *Microphone) Listen(ctx context.Context, timeout, phraseLimit time.Duration) (*Utterance, error) {
	return m.seg.Listen(ctx, timeout, phraseLimit)
}

// CaptureDevices lists the names of the capture devices on this machine
func CaptureDevices() ([]string, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init audio context: %w", err)
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	devices, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to list capture devices: %w", err)
	}
	names := make([]string, 0, len(devices))
	for _, d := range devices {
		names = append(names, d.Name())
	}
	return names, nil
}

// Close stops the device and releases the audio context
func (m *Microphone) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	dropped := m.dropped
	m.mu.Unlock()

	if m.device != nil {
		m.device.Stop()
		m.device.Uninit()
	}
	m.freeContext()
	close(m.frames)

	m.logger.Info("Microphone stopped", Int("dropped_frames", dropped))
}

func (m *Microphone) freeContext() {
	_ = m.ctx.Uninit()
	m.ctx.Free()
}
