package disk

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/OneOfOne/xxhash"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"govetachun/go-page-db/internal/storage"
)

const (
	walMagic   = "PGDBWAL1"
	walVersion = 1

	// | magic | version | base seq | salt1 | salt2 | generation | checksum |
	// |  8B   |   4B    |    8B    |  4B   |  4B   |    16B     |    4B    |
	walHeaderSize = 48

	// | page id | flags | salt1 | salt2 | payload len | checksum |
	// |   4B    |  4B   |  4B   |  4B   |     4B      |    4B    |
	frameHeaderSize = 24

	flagCommit = 1 << 0

	// payloads larger than this are never written; seeing one means a torn frame
	maxFramePayload = 2 * storage.PageSize
)

// walHeader is the decoded WAL file header.
type walHeader struct {
	baseSeq    uint64
	salt1      uint32
	salt2      uint32
	generation uuid.UUID
	checksum   uint32
}

func newWalHeader(baseSeq uint64) walHeader {
	gen := uuid.New()
	return walHeader{
		baseSeq:    baseSeq,
		salt1:      binary.BigEndian.Uint32(gen[0:4]),
		salt2:      binary.BigEndian.Uint32(gen[4:8]),
		generation: gen,
	}
}

func (h *walHeader) encode() []byte {
	buf := make([]byte, walHeaderSize)
	copy(buf[0:8], walMagic)
	binary.BigEndian.PutUint32(buf[8:12], walVersion)
	binary.BigEndian.PutUint64(buf[12:20], h.baseSeq)
	binary.BigEndian.PutUint32(buf[20:24], h.salt1)
	binary.BigEndian.PutUint32(buf[24:28], h.salt2)
	copy(buf[28:44], h.generation[:])
	h.checksum = xxhash.Checksum32(buf[0:44])
	binary.BigEndian.PutUint32(buf[44:48], h.checksum)
	return buf
}

func decodeWalHeader(buf []byte) (walHeader, error) {
	var h walHeader
	if len(buf) < walHeaderSize {
		return h, errors.New("short wal header")
	}
	if string(buf[0:8]) != walMagic {
		return h, errors.New("wal magic mismatch")
	}
	if v := binary.BigEndian.Uint32(buf[8:12]); v != walVersion {
		return h, errors.Errorf("unsupported wal version %d", v)
	}
	h.checksum = binary.BigEndian.Uint32(buf[44:48])
	if xxhash.Checksum32(buf[0:44]) != h.checksum {
		return h, errors.New("wal header checksum mismatch")
	}
	h.baseSeq = binary.BigEndian.Uint64(buf[12:20])
	h.salt1 = binary.BigEndian.Uint32(buf[20:24])
	h.salt2 = binary.BigEndian.Uint32(buf[24:28])
	copy(h.generation[:], buf[28:44])
	return h, nil
}

// frameHeader is one decoded frame header.
type frameHeader struct {
	pageID     uint32
	flags      uint32
	salt1      uint32
	salt2      uint32
	payloadLen uint32
	checksum   uint32
}

func (f frameHeader) commit() bool { return f.flags&flagCommit != 0 }
func (f frameHeader) codec() codec { return codec(f.flags>>8&0xff) }

func (f *frameHeader) encode(buf []byte) {
	binary.BigEndian.PutUint32(buf[0:4], f.pageID)
	binary.BigEndian.PutUint32(buf[4:8], f.flags)
	binary.BigEndian.PutUint32(buf[8:12], f.salt1)
	binary.BigEndian.PutUint32(buf[12:16], f.salt2)
	binary.BigEndian.PutUint32(buf[16:20], f.payloadLen)
	binary.BigEndian.PutUint32(buf[20:24], f.checksum)
}

func decodeFrameHeader(buf []byte) frameHeader {
	return frameHeader{
		pageID:     binary.BigEndian.Uint32(buf[0:4]),
		flags:      binary.BigEndian.Uint32(buf[4:8]),
		salt1:      binary.BigEndian.Uint32(buf[8:12]),
		salt2:      binary.BigEndian.Uint32(buf[12:16]),
		payloadLen: binary.BigEndian.Uint32(buf[16:20]),
		checksum:   binary.BigEndian.Uint32(buf[20:24]),
	}
}

// chainChecksum extends the running checksum over the first 20 header bytes
// and the payload.
func chainChecksum(prev uint32, hdr []byte, payload []byte) uint32 {
	sum := xxhash.Checksum32S(hdr[0:20], prev)
	if len(payload) > 0 {
		sum = xxhash.Checksum32S(payload, sum)
	}
	return sum
}

// wal is the append-only log file. It is not safe for concurrent appends;
// readAt may run alongside an append.
type wal struct {
	path   string
	fp     *os.File
	header walHeader

	size               int64  // next write position
	checksum           uint32 // running checksum at size
	lastCommitPos      int64
	lastCommitChecksum uint32
}

// walFrame is a page frame recovered from the log.
type walFrame struct {
	pageID storage.PageID
	offset int64 // payload offset
	length uint32
	codec  codec
}

// recoveredTxn is the set of page frames committed together.
type recoveredTxn struct {
	frames []walFrame
}

func openWal(path string) (*wal, error) {
	fp, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open wal %s", path)
	}
	return &wal{path: path, fp: fp}, nil
}

// reset truncates the log and writes a fresh header with a new generation.
func (w *wal) reset(baseSeq uint64, sync bool) error {
	w.header = newWalHeader(baseSeq)
	if err := w.fp.Truncate(0); err != nil {
		return errors.Wrap(err, "truncate wal")
	}
	if _, err := w.fp.WriteAt(w.header.encode(), 0); err != nil {
		return errors.Wrap(err, "write wal header")
	}
	if sync {
		if err := w.fp.Sync(); err != nil {
			return errors.Wrap(err, "fsync wal")
		}
	}
	w.size = walHeaderSize
	w.checksum = w.header.checksum
	w.lastCommitPos = w.size
	w.lastCommitChecksum = w.checksum
	return nil
}

// recover reads the header and every committed transaction. The tail after
// the last valid commit frame is cut off. ok is false when the header is
// missing or invalid and the log must be reset.
func (w *wal) recover() (txns []recoveredTxn, truncated int64, ok bool, err error) {
	info, err := w.fp.Stat()
	if err != nil {
		return nil, 0, false, errors.Wrap(err, "stat wal")
	}
	fileSize := info.Size()

	buf := make([]byte, walHeaderSize)
	if _, err := w.fp.ReadAt(buf, 0); err != nil {
		if err == io.EOF {
			return nil, 0, false, nil
		}
		return nil, 0, false, errors.Wrap(err, "read wal header")
	}
	header, herr := decodeWalHeader(buf)
	if herr != nil {
		return nil, 0, false, nil
	}
	w.header = header

	pos := int64(walHeaderSize)
	running := header.checksum
	w.lastCommitPos = pos
	w.lastCommitChecksum = running

	var pending []walFrame
	hdr := make([]byte, frameHeaderSize)
	for pos+frameHeaderSize <= fileSize {
		if _, err := w.fp.ReadAt(hdr, pos); err != nil {
			break
		}
		f := decodeFrameHeader(hdr)
		if f.salt1 != header.salt1 || f.salt2 != header.salt2 {
			break
		}
		if f.payloadLen > maxFramePayload || pos+frameHeaderSize+int64(f.payloadLen) > fileSize {
			break
		}
		var payload []byte
		if f.payloadLen > 0 {
			payload = make([]byte, f.payloadLen)
			if _, err := w.fp.ReadAt(payload, pos+frameHeaderSize); err != nil {
				break
			}
		}
		sum := chainChecksum(running, hdr, payload)
		if sum != f.checksum {
			break
		}
		running = sum

		if f.commit() {
			txns = append(txns, recoveredTxn{frames: pending})
			pending = nil
			pos += frameHeaderSize
			w.lastCommitPos = pos
			w.lastCommitChecksum = running
			continue
		}
		pending = append(pending, walFrame{
			pageID: storage.PageID(f.pageID),
			offset: pos + frameHeaderSize,
			length: f.payloadLen,
			codec:  f.codec(),
		})
		pos += frameHeaderSize + int64(f.payloadLen)
	}

	if fileSize > w.lastCommitPos {
		truncated = fileSize - w.lastCommitPos
		if err := w.fp.Truncate(w.lastCommitPos); err != nil {
			return nil, 0, false, errors.Wrap(err, "truncate wal tail")
		}
	}
	w.size = w.lastCommitPos
	w.checksum = w.lastCommitChecksum
	return txns, truncated, true, nil
}

// appendPage writes one page frame and returns where its payload lives.
func (w *wal) appendPage(id storage.PageID, c codec, payload []byte) (walFrame, error) {
	buf := make([]byte, frameHeaderSize+len(payload))
	f := frameHeader{
		pageID:     uint32(id),
		flags:      uint32(c) << 8,
		salt1:      w.header.salt1,
		salt2:      w.header.salt2,
		payloadLen: uint32(len(payload)),
	}
	f.encode(buf)
	copy(buf[frameHeaderSize:], payload)
	f.checksum = chainChecksum(w.checksum, buf, payload)
	binary.BigEndian.PutUint32(buf[20:24], f.checksum)

	if _, err := w.fp.WriteAt(buf, w.size); err != nil {
		return walFrame{}, errors.Wrapf(err, "write frame for page %d", id)
	}
	frame := walFrame{pageID: id, offset: w.size + frameHeaderSize, length: f.payloadLen, codec: c}
	w.size += int64(len(buf))
	w.checksum = f.checksum
	return frame, nil
}

// appendCommit writes the commit frame and optionally fsyncs.
func (w *wal) appendCommit(sync bool) error {
	buf := make([]byte, frameHeaderSize)
	f := frameHeader{flags: flagCommit, salt1: w.header.salt1, salt2: w.header.salt2}
	f.encode(buf)
	f.checksum = chainChecksum(w.checksum, buf, nil)
	binary.BigEndian.PutUint32(buf[20:24], f.checksum)

	if _, err := w.fp.WriteAt(buf, w.size); err != nil {
		return errors.Wrap(err, "write commit frame")
	}
	if sync {
		if err := w.fp.Sync(); err != nil {
			return errors.Wrap(err, "fsync wal")
		}
	}
	w.size += frameHeaderSize
	w.checksum = f.checksum
	w.lastCommitPos = w.size
	w.lastCommitChecksum = w.checksum
	return nil
}

// rollback discards everything written since the last commit frame.
func (w *wal) rollback() error {
	w.size = w.lastCommitPos
	w.checksum = w.lastCommitChecksum
	if err := w.fp.Truncate(w.size); err != nil {
		return errors.Wrap(err, "truncate wal after failed commit")
	}
	return nil
}

// readFrame loads and decodes the page stored in frame.
func (w *wal) readFrame(frame walFrame) ([]byte, error) {
	payload := make([]byte, frame.length)
	if _, err := w.fp.ReadAt(payload, frame.offset); err != nil {
		return nil, errors.Wrapf(err, "read frame for page %d", frame.pageID)
	}
	return decompressPage(frame.codec, payload)
}

func (w *wal) close() error {
	return w.fp.Close()
}
