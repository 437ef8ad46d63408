/*
 * ase.go, part of atomsio.
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

package external

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/rmera/atomsio"
	"github.com/rmera/atomsio/xyz"
)

// Name is the default name of the backend in a registry.
const Name = "ase"

// DefaultCommand is the converter program used if none is given.
const DefaultCommand = "ase"

// DefaultFormats are the extensions (and file names) the backend claims by default.
var DefaultFormats = []string{".cif", ".traj", ".pwi", ".pwo", ".in", ".vasp", ".xsf", ".extxyz", ".xyz", "POSCAR", "CONTCAR"}

// Options configures the backend. They are usually decoded from the
// options map of the configuration file.
type Options struct {
	//Command is the converter program, DefaultCommand if empty.
	Command string `mapstructure:"command"`
	//Format, if given, is passed to the converter as the format of the
	//non-extxyz file, instead of letting it guess from the name. It is the
	//default for calls that don't give one with atomsio.WithFormat.
	Format string `mapstructure:"format"`
	//Formats replaces DefaultFormats.
	Formats []string `mapstructure:"formats"`
	//TempDir is where the intermediate files go. The system default if empty.
	TempDir string `mapstructure:"tmpdir"`
}

// DecodeOptions decodes a generic options map, as read from the configuration,
// into Options. Unknown keys are an error.
func DecodeOptions(m map[string]any) (Options, error) {
	var o Options
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &o,
	})
	if err != nil {
		return o, err
	}
	if err := dec.Decode(m); err != nil {
		return o, fmt.Errorf("%s backend options: %w", Name, err)
	}
	return o, nil
}

// Runner runs a program and returns its combined output.
type Runner func(command string, args ...string) ([]byte, error)

func execRunner(command string, args ...string) ([]byte, error) {
	return exec.Command(command, args...).CombinedOutput()
}

// Option modifies a Backend when it is created.
type Option func(*Backend)

// WithRunner replaces the function that runs the converter. The program
// is then not looked up, and the backend is always available.
func WithRunner(r Runner) Option {
	return func(B *Backend) {
		B.run = r
	}
}

// WithLogger sets the logger for the backend.
func WithLogger(l *slog.Logger) Option {
	return func(B *Backend) {
		if l != nil {
			B.log = l
		}
	}
}

// Backend converts files with an external program.
type Backend struct {
	command   string
	format    string
	tmpdir    string
	formats   atomsio.Formats
	available bool
	run       Runner
	log       *slog.Logger
}

// NewBackend returns a backend for the given options. Availability is decided
// here, by looking for the program in the PATH, and doesn't change afterwards.
func NewBackend(o Options, opts ...Option) *Backend {
	B := &Backend{command: o.Command, format: o.Format, tmpdir: o.TempDir, log: slog.Default()}
	if B.command == "" {
		B.command = DefaultCommand
	}
	exts := o.Formats
	if len(exts) == 0 {
		exts = DefaultFormats
	}
	B.formats = make(atomsio.Formats, len(exts))
	for _, e := range exts {
		if strings.HasPrefix(e, ".") {
			e = strings.ToLower(e)
		}
		B.formats[e] = atomsio.AllOperations
	}
	for _, f := range opts {
		f(B)
	}
	if B.run != nil {
		B.available = true
		return B
	}
	B.run = execRunner
	path, err := exec.LookPath(B.command)
	if err != nil {
		B.log.Info("external converter not found, backend disabled", "backend", Name, "command", B.command, "error", err)
		return B
	}
	B.log.Debug("external converter found", "backend", Name, "path", path)
	B.available = true
	return B
}

func (B *Backend) Name() string { return Name }

func (B *Backend) Available() bool { return B.available }

// Formats returns the extensions and file names the backend handles.
func (B *Backend) Formats() atomsio.Formats { return B.formats }

// Command returns the converter program.
func (B *Backend) Command() string { return B.command }

func (B *Backend) CanHandle(path string, op atomsio.Operation) bool {
	return B.formats.Handles(path, op)
}

// Format returns the format given to the converter, or "" if it guesses
// from the file name.
func (B *Backend) Format() string { return B.format }

var _ atomsio.FormatBackend = (*Backend)(nil)

// ForFormat returns a copy of the backend that passes format to the converter.
func (B *Backend) ForFormat(format string) (atomsio.Backend, error) {
	if format == "" || strings.HasPrefix(format, "-") || strings.ContainsAny(format, " \t\n") {
		return nil, fmt.Errorf("%s: invalid format %q", Name, format)
	}
	b := *B
	b.format = format
	return &b, nil
}

// Error is returned when the converter fails.
type Error struct {
	Command string
	Args    []string
	Output  string
	Err     error
}

func (err *Error) Error() string {
	out := strings.TrimSpace(err.Output)
	if out == "" {
		return fmt.Sprintf("%s %s: %v", err.Command, strings.Join(err.Args, " "), err.Err)
	}
	return fmt.Sprintf("%s %s: %v: %s", err.Command, strings.Join(err.Args, " "), err.Err, out)
}

func (err *Error) Unwrap() error { return err.Err }

// tempFile returns the name of a new, empty, extxyz file. The caller removes it.
func (B *Backend) tempFile() (string, error) {
	f, err := os.CreateTemp(B.tmpdir, "atomsio-*.extxyz")
	if err != nil {
		return "", err
	}
	name := f.Name()
	return name, f.Close()
}

// convert runs the converter from in to out. The extxyz side is given as
// format, the other one gets the user-given format, if any.
func (B *Backend) convert(in, out string, toExtxyz bool, index string) error {
	args := []string{"convert", "-f"}
	if toExtxyz {
		if B.format != "" {
			args = append(args, "-i", B.format)
		}
		args = append(args, "-o", "extxyz", "-n", index)
	} else {
		args = append(args, "-i", "extxyz")
		if B.format != "" {
			args = append(args, "-o", B.format)
		}
	}
	args = append(args, in, out)
	B.log.Debug("running converter", "command", B.command, "args", args)
	output, err := B.run(B.command, args...)
	if err != nil {
		return &Error{Command: B.command, Args: args, Output: string(bytes.TrimSpace(output)), Err: err}
	}
	return nil
}

func (B *Backend) load(path, index string) ([]*atomsio.System, error) {
	if !B.available {
		return nil, fmt.Errorf("%s: %w", B.command, atomsio.ErrBackendUnavailable)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	tmp, err := B.tempFile()
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp)
	if err := B.convert(path, tmp, true, index); err != nil {
		return nil, err
	}
	traj, err := xyz.ReadFile(tmp)
	if err != nil {
		return nil, fmt.Errorf("reading %s converted from %s: %w", filepath.Base(tmp), path, err)
	}
	return traj, nil
}

func (B *Backend) save(path string, traj ...*atomsio.System) error {
	if !B.available {
		return fmt.Errorf("%s: %w", B.command, atomsio.ErrBackendUnavailable)
	}
	tmp, err := B.tempFile()
	if err != nil {
		return err
	}
	defer os.Remove(tmp)
	if err := xyz.WriteFile(tmp, traj...); err != nil {
		return err
	}
	return B.convert(tmp, path, false, "")
}

// LoadSystem asks the converter for the structure number index. Negative
// indexes count from the end, as in the converter.
func (B *Backend) LoadSystem(path string, index int) (*atomsio.System, error) {
	traj, err := B.load(path, strconv.Itoa(index))
	if err != nil {
		return nil, err
	}
	if len(traj) != 1 {
		return nil, fmt.Errorf("%s: converter returned %d structures for index %d", path, len(traj), index)
	}
	return traj[0], nil
}

func (B *Backend) SaveSystem(path string, sys *atomsio.System) error {
	return B.save(path, sys)
}

func (B *Backend) LoadTrajectory(path string) ([]*atomsio.System, error) {
	return B.load(path, ":")
}

func (B *Backend) SaveTrajectory(path string, traj []*atomsio.System) error {
	return B.save(path, traj...)
}
