/*
 * errors.go, part of atomsio.
 *
 * Copyright 2024 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package atomsio

import (
	"errors"
	"fmt"
	"strings"
)

var (
	//ErrBackendUnavailable is returned when an explicitly requested backend is
	//not registered, or not available.
	ErrBackendUnavailable = errors.New("backend unavailable")

	//ErrUnsupportedFormat is returned when no available backend claims a file.
	ErrUnsupportedFormat = errors.New("unsupported format")

	//ErrBackendOperationFailed wraps any error returned by the selected backend.
	ErrBackendOperationFailed = errors.New("backend operation failed")

	ErrEmptyPath        = errors.New("empty file path")
	ErrInvalidSystem    = errors.New("invalid system")
	ErrDuplicateBackend = errors.New("duplicate backend name")
	ErrRegistryFrozen   = errors.New("registry is frozen")

	//ErrFormatNotAccepted is returned when a format is given for a call, but the
	//selected backend doesn't implement FormatBackend.
	ErrFormatNotAccepted = errors.New("backend doesn't accept a format")
)

// BackendUnavailableError gives the details of an ErrBackendUnavailable.
type BackendUnavailableError struct {
	Name       string
	Registered bool //false if no backend with that name exists.
}

func (e *BackendUnavailableError) Error() string {
	if !e.Registered {
		return fmt.Sprintf("%s: %q is not registered", ErrBackendUnavailable, e.Name)
	}
	return fmt.Sprintf("%s: %q is registered but not available", ErrBackendUnavailable, e.Name)
}

func (e *BackendUnavailableError) Is(target error) bool { return target == ErrBackendUnavailable }

// UnsupportedFormatError gives the details of an ErrUnsupportedFormat.
type UnsupportedFormatError struct {
	Path      string
	Ext       string
	Op        Operation
	Consulted []string //backends asked, none of which could handle the file.
	Skipped   []string //backends not asked because they are unavailable.
}

func (e *UnsupportedFormatError) Error() string {
	ext := e.Ext
	if ext == "" {
		ext = "(none)"
	}
	msg := fmt.Sprintf("%s: no backend can %s %s (extension %s); consulted: [%s]", ErrUnsupportedFormat, e.Op, e.Path, ext, strings.Join(e.Consulted, ", "))
	if len(e.Skipped) > 0 {
		msg += fmt.Sprintf("; unavailable: [%s]", strings.Join(e.Skipped, ", "))
	}
	return msg
}

func (e *UnsupportedFormatError) Is(target error) bool { return target == ErrUnsupportedFormat }

// BackendOperationError wraps, unchanged, the error returned by a backend.
type BackendOperationError struct {
	Backend string
	Op      Operation
	Path    string
	Err     error
}

func (e *BackendOperationError) Error() string {
	return fmt.Sprintf("%s: %s %s %s: %v", ErrBackendOperationFailed, e.Backend, e.Op, e.Path, e.Err)
}

func (e *BackendOperationError) Is(target error) bool { return target == ErrBackendOperationFailed }

func (e *BackendOperationError) Unwrap() error { return e.Err }

// FileName returns the file the failing operation was working on.
func (e *BackendOperationError) FileName() string { return e.Path }
