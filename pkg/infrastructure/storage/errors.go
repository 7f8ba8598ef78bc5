package storage

import "github.com/pkg/errors"

var ErrObjectNotFound = errors.New("object not found")
