package model

import (
	"errors"
	"fmt"
)

var (
	// ErrDictionaryLoad: a dictionary artifact is missing or malformed. Fatal at startup.
	ErrDictionaryLoad = errors.New("dictionary load failed")
	// ErrNotReady: a request arrived before the dictionary finished loading.
	ErrNotReady = errors.New("dictionary not ready")
	// ErrUnknownWordID: no feature record exists for the id.
	ErrUnknownWordID = errors.New("unknown word id")
	// ErrNoPath: the lattice has no BOS to EOS path. Indicates a broken unknown-word model.
	ErrNoPath = errors.New("no path through lattice")
)

// LoadError describes which artifact failed to load.
type LoadError struct {
	Artifact string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Artifact, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is makes every LoadError match ErrDictionaryLoad.
func (e *LoadError) Is(target error) bool { return target == ErrDictionaryLoad }

// Malformed builds a LoadError for a structural violation in an artifact.
func Malformed(artifact, format string, args ...any) error {
	return &LoadError{Artifact: artifact, Err: fmt.Errorf(format, args...)}
}

// Code is a short error class used in logs and metric labels.
type Code string

const (
	CodeUnknown       Code = "unknown"
	CodeLoad          Code = "load"
	CodeNotReady      Code = "not_ready"
	CodeUnknownWordID Code = "unknown_word_id"
	CodeNoPath        Code = "no_path"
)

// Classify maps an error to its Code using the sentinels above.
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeUnknown
	case errors.Is(err, ErrNotReady):
		return CodeNotReady
	case errors.Is(err, ErrDictionaryLoad):
		return CodeLoad
	case errors.Is(err, ErrUnknownWordID):
		return CodeUnknownWordID
	case errors.Is(err, ErrNoPath):
		return CodeNoPath
	default:
		return CodeUnknown
	}
}
