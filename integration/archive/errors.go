package archive

import "errors"

var (
	ErrNotFound       = errors.New("archive: command not found")
	ErrNilStore       = errors.New("archive: nil store")
	ErrEncode         = errors.New("archive: failed to encode snapshot")
	ErrDecode         = errors.New("archive: failed to decode snapshot")
	ErrUnknownBackend = errors.New("archive: unknown backend")
)
