package pipeline

import (
	"errors"

	"speech-feedback-service/internal/service/audio"
)

// Class groups submission failures for transport status mapping.
type Class int

const (
	ClassInternal      Class = iota
	ClassInvalidAudio        // the caller sent audio we cannot score
	ClassTranscription       // the STT provider failed
)

func (c Class) String() string {
	switch c {
	case ClassInvalidAudio:
		return "invalid_audio"
	case ClassTranscription:
		return "transcription"
	default:
		return "internal"
	}
}

// Classify maps a Result error to its Class.
func Classify(err error) Class {
	switch {
	case errors.Is(err, audio.ErrDecode), errors.Is(err, ErrAudioTooLong):
		return ClassInvalidAudio
	case errors.Is(err, ErrTranscription):
		return ClassTranscription
	default:
		return ClassInternal
	}
}
