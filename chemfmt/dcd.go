/*
 * dcd.go, part of atomsio.
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

package chemfmt

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/rmera/atomsio"
	"github.com/rmera/atomsio/internal/fileio"
	v3 "github.com/rmera/atomsio/v3"
)

//DCD is the CHARMM/NAMD binary trajectory format. Only coordinates are stored,
//so the atoms read from a DCD file only have an ID. Unit cell blocks are skipped
//when reading, and never written. Files ending in .gz or .zst are (de)compressed
//on the fly.

const dcdMaxTitle int32 = 80

// DCDReader reads a CHARMM/NAMD binary trajectory. It implements atomsio.Traj.
type DCDReader struct {
	natoms     int32
	readable   bool
	filename   string
	extrablock bool
	fourdim    bool
	f          io.ReadCloser
	dcd        *bufio.Reader
	raw        bytes.Buffer
	dcdFields  [][]float32
	endian     binary.ByteOrder
}

// NewDCDReader opens a DCD trajectory for reading. It supports big and little
// endianness, CHARMM or NAMD>=2.1 files, and no fixed atoms.
func NewDCDReader(name string) (*DCDReader, error) {
	D := &DCDReader{filename: name}
	var err error
	D.f, err = fileio.Open(name)
	if err != nil {
		return nil, err
	}
	if err := D.initRead(); err != nil {
		D.Close()
		return nil, newError("dcd", err.Error(), name, "NewDCDReader")
	}
	D.readable = true
	return D, nil
}

func (D *DCDReader) initRead() error {
	D.dcd = bufio.NewReader(D.f)
	D.endian = binary.LittleEndian
	var check int32
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return err
	}
	//The first thing we should read is an 84.
	//If this fails it means that the file is big endian.
	if check != 84 {
		D.endian = binary.BigEndian
	}
	magic := make([]byte, 4)
	if err := binary.Read(D.dcd, D.endian, magic); err != nil {
		return err
	}
	if string(magic) != "CORD" {
		return fmt.Errorf("Wrong magic number")
	}
	//We first read a big chunk for random access.
	buf := make([]byte, 80)
	if err := binary.Read(D.dcd, D.endian, buf); err != nil {
		return err
	}
	field := func(i int) int32 {
		return int32(D.endian.Uint32(buf[i : i+4]))
	}
	//X-plor sets this last int to zero, charmm sets it to its version number.
	//if we have a charmm file we get some additional flags.
	if field(76) == 0 {
		return fmt.Errorf("X-plor DCD not supported")
	}
	D.extrablock = field(40) != 0
	D.fourdim = field(44) == 1
	if field(32) != 0 {
		return fmt.Errorf("Fixed atoms not supported")
	}
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return err
	}
	if check != 84 {
		return fmt.Errorf("Wrong DCD format")
	}
	var blocksize int32
	if err := binary.Read(D.dcd, D.endian, &blocksize); err != nil {
		return err
	}
	//how many units of dcdMaxTitle does the title have?
	var ntitle int32
	if err := binary.Read(D.dcd, D.endian, &ntitle); err != nil {
		return err
	}
	if ntitle < 0 || ntitle > 1000 {
		return fmt.Errorf("Wrong DCD title size: %d", ntitle)
	}
	if _, err := io.CopyN(io.Discard, D.dcd, int64(dcdMaxTitle*ntitle)); err != nil {
		return err
	}
	if err := binary.Read(D.dcd, D.endian, &blocksize); err != nil {
		return err
	}
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return err
	}
	if check != 4 { //one must read a 4 before the natoms
		return fmt.Errorf("Wrong format in DCD")
	}
	if err := binary.Read(D.dcd, D.endian, &D.natoms); err != nil {
		return err
	}
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return err
	}
	if check != 4 { //and one more 4
		return fmt.Errorf("DCD has wrong format")
	}
	if D.natoms <= 0 || D.natoms > math.MaxInt32/4 {
		return fmt.Errorf("DCD has %d atoms", D.natoms)
	}
	return nil
}

// Readable returns true if the object is ready to be read from.
// It doesn't guarantee that there is something to read.
func (D *DCDReader) Readable() bool {
	return D.readable
}

// Len returns the number of atoms per frame.
func (D *DCDReader) Len() int {
	return int(D.natoms)
}

// Close closes the file. The reader can't be used after this.
func (D *DCDReader) Close() {
	if D.f != nil {
		D.f.Close()
	}
	D.readable = false
}

// Next reads the next frame into keep, or just skips it if keep is nil. DCD boxes
// are not read. At the end of the trajectory, it returns an atomsio.LastFrameError.
func (D *DCDReader) Next(keep *v3.Matrix, box ...[]float64) error {
	if !D.readable {
		return newError("dcd", TrajUnIniRead, D.filename, "Next")
	}
	if err := D.nextRaw(); err != nil {
		if errors.Is(err, io.EOF) {
			D.Close()
			return newlastFrameError("dcd", D.filename, "Next")
		}
		return newError("dcd", err.Error(), D.filename, "Next")
	}
	if keep == nil {
		return nil
	}
	if keep.NVecs() < int(D.natoms) {
		return newError("dcd", NotEnoughSpace, D.filename, "Next")
	}
	D.copyFrame(keep)
	return nil
}

// copyFrame puts the last frame read in keep.
func (D *DCDReader) copyFrame(keep *v3.Matrix) {
	for i := 0; i < int(D.natoms); i++ {
		keep.Set(i, 0, float64(D.dcdFields[0][i]))
		keep.Set(i, 1, float64(D.dcdFields[1][i]))
		keep.Set(i, 2, float64(D.dcdFields[2][i]))
	}
}

// nextRaw reads a frame into D.dcdFields. It returns io.EOF only if the trajectory
// ended cleanly before the frame.
func (D *DCDReader) nextRaw() error {
	var blocksize int32
	if err := binary.Read(D.dcd, D.endian, &blocksize); err != nil {
		return err
	}
	//Even when there is an extra (unit cell) block, it is not present in all
	//snapshots for some trajectories, so we must use the block size to see if
	//there is an extra block or if the X block starts inmediately
	if D.extrablock && blocksize != D.natoms*4 {
		if err := D.skipBlock(blocksize); err != nil {
			return noEOF(err)
		}
		if err := binary.Read(D.dcd, D.endian, &blocksize); err != nil {
			return noEOF(err)
		}
	}
	for i := 0; i < 3; i++ {
		if i > 0 {
			if err := binary.Read(D.dcd, D.endian, &blocksize); err != nil {
				return noEOF(err)
			}
		}
		if blocksize != D.natoms*4 {
			return fmt.Errorf("Wrong block size %d in DCD snapshot, expected %d", blocksize, D.natoms*4)
		}
		if err := D.readFloat32Block(blocksize, i); err != nil {
			return noEOF(err)
		}
	}
	//we skip the 4-D values if they exist. They are not present in the last
	//snapshot of some files.
	if D.fourdim {
		if err := binary.Read(D.dcd, D.endian, &blocksize); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := D.skipBlock(blocksize); err != nil {
			return noEOF(err)
		}
	}
	return nil
}

// An EOF in the middle of a frame is an actual error.
func noEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// reads the coordinate block number i and its closing size mark, which must
// match blocksize. The fields are allocated once a whole block was read.
func (D *DCDReader) readFloat32Block(blocksize int32, i int) error {
	var check int32
	D.raw.Reset()
	n, err := D.raw.ReadFrom(io.LimitReader(D.dcd, int64(blocksize)))
	if err != nil {
		return err
	}
	if n < int64(blocksize) {
		return io.EOF
	}
	if D.dcdFields == nil {
		D.dcdFields = make([][]float32, 3)
		for j := range D.dcdFields {
			D.dcdFields[j] = make([]float32, int(D.natoms))
		}
	}
	if err := binary.Read(&D.raw, D.endian, D.dcdFields[i]); err != nil {
		return err
	}
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return err
	}
	if check != blocksize {
		return fmt.Errorf("Wrong format in DCD snapshot")
	}
	return nil
}

func (D *DCDReader) skipBlock(blocksize int32) error {
	var check int32
	if blocksize < 0 {
		return fmt.Errorf("Negative block size in DCD")
	}
	if _, err := io.CopyN(io.Discard, D.dcd, int64(blocksize)); err != nil {
		return err
	}
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return err
	}
	if check != blocksize {
		return fmt.Errorf("Failed security check")
	}
	return nil
}

// DCDWriter writes a CHARMM binary trajectory.
type DCDWriter struct {
	natoms    int32
	frames    int32
	nframes   int32 //the frame count written in the header
	writeable bool
	filename  string
	f         *os.File //nil for compressed files
	out       io.WriteCloser
	dcd       *bufio.Writer
	dcdFields [][]float32
	endian    binary.ByteOrder
}

// NewDCDWriter creates name and writes the DCD header for natoms atoms.
// The number of frames in the header is set on Close, except for compressed
// files, where it can't be rewritten and stays at zero. Use WriteDCD to get
// a compressed file with the right count.
func NewDCDWriter(name string, natoms int) (*DCDWriter, error) {
	return newDCDWriter(name, natoms, 0)
}

func newDCDWriter(name string, natoms, nframes int) (*DCDWriter, error) {
	if natoms <= 0 || natoms > math.MaxInt32/4 {
		return nil, newError("dcd", fmt.Sprintf("can't write %d atoms", natoms), name, "NewDCDWriter")
	}
	D := &DCDWriter{natoms: int32(natoms), nframes: int32(nframes), filename: name, endian: binary.LittleEndian}
	var err error
	if fileio.CompressionOf(name) == fileio.None {
		D.f, err = os.Create(name)
		D.out = D.f
	} else {
		D.out, err = fileio.Create(name)
	}
	if err != nil {
		return nil, err
	}
	D.dcd = bufio.NewWriter(D.out)
	if err := D.writeHeader(); err != nil {
		D.out.Close()
		return nil, newError("dcd", err.Error(), name, "NewDCDWriter")
	}
	D.dcdFields = make([][]float32, 3)
	for i := range D.dcdFields {
		D.dcdFields[i] = make([]float32, natoms)
	}
	D.writeable = true
	return D, nil
}

func (D *DCDWriter) writeHeader() error {
	title := make([]byte, 2*dcdMaxTitle)
	copy(title, "REMARKS WRITTEN WITH ATOMSIO")
	for i := 28; i < len(title); i++ {
		title[i] = ' '
	}
	header := []any{
		int32(84),
		[]byte("CORD"),
		D.nframes,  //number of frames. Updated on Close.
		int32(0),   //initial step
		int32(1),   //step interval
		[6]int32{}, //5 zeros plus natom-nfreat
		float32(1), //delta time
		int32(0),   //no unit cell
		[8]int32{},
		int32(24), //charmm version
		int32(84),
		int32(4 + len(title)),
		int32(2), //how many units of dcdMaxTitle does the title have
		title,
		int32(4 + len(title)),
		int32(4),
		D.natoms,
		int32(4),
	}
	for _, v := range header {
		if err := binary.Write(D.dcd, D.endian, v); err != nil {
			return err
		}
	}
	return nil
}

// WNext writes the next frame to the trajectory. The box is not written.
func (D *DCDWriter) WNext(towrite *v3.Matrix, box ...[]float64) error {
	if !D.writeable {
		return newError("dcd", TrajUnIniWrite, D.filename, "WNext")
	}
	if towrite == nil {
		return newError("dcd", NilCoordinates, D.filename, "WNext")
	}
	if int32(towrite.NVecs()) != D.natoms {
		return newError("dcd", fmt.Sprintf("%d coordinates given, but %d expected", towrite.NVecs(), D.natoms), D.filename, "WNext")
	}
	for i := 0; i < int(D.natoms); i++ {
		D.dcdFields[0][i] = float32(towrite.At(i, 0))
		D.dcdFields[1][i] = float32(towrite.At(i, 1))
		D.dcdFields[2][i] = float32(towrite.At(i, 2))
	}
	blocksize := D.natoms * 4 //the size is given in bytes
	for _, block := range D.dcdFields {
		for _, v := range []any{blocksize, block, blocksize} {
			if err := binary.Write(D.dcd, D.endian, v); err != nil {
				return newError("dcd", err.Error(), D.filename, "WNext")
			}
		}
	}
	D.frames++
	return nil
}

// Close writes the number of frames in the header, and closes the file.
func (D *DCDWriter) Close() error {
	if !D.writeable {
		return nil
	}
	D.writeable = false
	err := D.dcd.Flush()
	if err == nil && D.f != nil {
		//DCD requires the number of frames at the begining.
		var nf [4]byte
		D.endian.PutUint32(nf[:], uint32(D.frames))
		_, err = D.f.WriteAt(nf[:], 8)
	}
	if cerr := D.out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return newError("dcd", err.Error(), D.filename, "Close")
	}
	return nil
}

// ReadDCD reads a whole DCD trajectory. The atoms only get an ID.
func ReadDCD(name string) ([]*atomsio.System, error) {
	D, err := NewDCDReader(name)
	if err != nil {
		return nil, err
	}
	defer D.Close()
	//Frames are read before their matrices are allocated, so a corrupt
	//atom count fails on the first block instead.
	var coords []*v3.Matrix
	for {
		if err := D.Next(nil); err != nil {
			if _, ok := err.(atomsio.LastFrameError); ok {
				break
			}
			return nil, err
		}
		c := v3.Zeros(D.Len())
		D.copyFrame(c)
		coords = append(coords, c)
	}
	if len(coords) == 0 {
		return nil, newError("dcd", "trajectory has no frames", name, "ReadDCD")
	}
	traj := make([]*atomsio.System, len(coords))
	for i, c := range coords {
		s := &atomsio.System{Coords: c, Atoms: make([]*atomsio.Atom, D.Len())}
		for j := range s.Atoms {
			s.Atoms[j] = &atomsio.Atom{ID: j + 1}
		}
		traj[i] = s
	}
	return traj, nil
}

// WriteDCD writes the coordinates of traj to name. Everything else is lost.
func WriteDCD(name string, traj ...*atomsio.System) error {
	if err := atomsio.ValidateTrajectory(traj); err != nil {
		return err
	}
	W, err := newDCDWriter(name, traj[0].Len(), len(traj))
	if err != nil {
		return err
	}
	for i, s := range traj {
		if err := W.WNext(s.Coords); err != nil {
			W.Close()
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return W.Close()
}
