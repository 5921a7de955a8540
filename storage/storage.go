// Package storage declares the block-addressable storage driver the
// errlog core consumes. It is an external collaborator (spec.md §6): the
// core never assumes a particular device, only this narrow interface.
package storage

import "context"

// Driver is a block-addressable storage device. Block size is fixed for
// the lifetime of a Driver.
type Driver interface {
	// Init prepares the device for use.
	Init(ctx context.Context) error

	// Lock serializes access across callers; Unlock releases it. Lock
	// honors ctx's deadline as the RTOS driver's wait timeout.
	Lock(ctx context.Context) error
	Unlock()

	// ReadBlock/WriteBlock transfer exactly one block at addr. buf must
	// be exactly BlockSize() bytes.
	ReadBlock(ctx context.Context, addr uint16, buf []byte) error
	WriteBlock(ctx context.Context, addr uint16, buf []byte) error

	// Erase clears every block address in [start, end).
	Erase(ctx context.Context, start, end uint16) error

	// BlockSize is the fixed block size of this device.
	BlockSize() uint64
}
