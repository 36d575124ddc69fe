package storage

import "errors"

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrAssetExists     = errors.New("asset exists")
	ErrAssetNotFound   = errors.New("asset not found")
)
