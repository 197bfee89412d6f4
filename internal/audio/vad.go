package audio

import (
	"fmt"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

// WebRTCVAD is a VoiceDetector backed by the WebRTC voice activity detector
type WebRTCVAD struct {
	vad        *webrtcvad.VAD
	sampleRate int
}

// NewWebRTCVAD creates a detector with the given aggressiveness (0-3)
func NewWebRTCVAD(sampleRate, mode int) (*WebRTCVAD, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create vad: %w", err)
	}
	if err := v.SetMode(mode); err != nil {
		return nil, fmt.Errorf("failed to set vad mode %d: %w", mode, err)
	}
	return &WebRTCVAD{vad: v, sampleRate: sampleRate}, nil
}

// IsSpeech implements VoiceDetector
func (w *WebRTCVAD) IsSpeech(frame []byte) (bool, error) {
	return w.vad.Process(w.sampleRate, frame)
}
