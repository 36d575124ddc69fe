package service

import "errors"

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrAssetNotFound   = errors.New("asset not found")

	ErrEmptyClipboard = errors.New("clipboard is empty")
	ErrNoSuchClip     = errors.New("no such clip")

	ErrEngineNotReady = errors.New("transcoding engine is not available")
)
