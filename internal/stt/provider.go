// Package stt provides speech-to-text transcription for journal audio.
package stt

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/roelfdiedericks/lilybear/internal/errs"
)

// Provider is the interface for STT implementations.
type Provider interface {
	// Transcribe converts an audio file to text. The returned transcript may
	// be empty when the provider recognised nothing.
	Transcribe(ctx context.Context, filePath string) (string, error)

	// Name returns the provider name (e.g., "google", "openai")
	Name() string

	// Close releases any resources held by the provider.
	Close() error
}

// checkFile fails fast on a missing audio file so no request is sent.
func checkFile(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errs.NotFound("audio file "+filePath, err)
		}
		return err
	}
	if info.IsDir() {
		return errs.NotFound("audio file "+filePath, fs.ErrNotExist)
	}
	return nil
}
