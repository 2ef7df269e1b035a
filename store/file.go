package store

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const seqNumFieldWidth = 10

// FileStore is the flat-file MessageStore backend described in §6: four
// files per session sharing a common path prefix.
//
//	P.seqnums - two fixed-width decimals "NNNNNNNNNN : NNNNNNNNNN  " (sender : target)
//	P.body    - raw outbound message bytes concatenated
//	P.header  - one line per persisted message: "seq,offset,length\n"
//	P.session - RFC3339 creation timestamp
type FileStore struct {
	mtx    sync.Mutex
	prefix string

	seqFile     *os.File
	bodyFile    *os.File
	headerFile  *os.File
	sessionFile *os.File
	lock        *flock.Flock

	nextSender   uint64
	nextTarget   uint64
	creationTime time.Time
	index        map[uint64]indexEntry // seq -> offset/length in body file
}

type indexEntry struct {
	offset int64
	length int64
}

// NewFileStore opens (creating if necessary) the four files rooted at
// prefix, holding a lock on prefix+".lock" for the lifetime of the store.
func NewFileStore(prefix string) (*FileStore, error) {
	fs := &FileStore{prefix: prefix, index: make(map[uint64]indexEntry)}

	fs.lock = flock.New(prefix + ".lock")
	locked, err := fs.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("store: acquiring lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("store: %s is already locked by another process", prefix)
	}

	if fs.seqFile, err = os.OpenFile(prefix+".seqnums", os.O_RDWR|os.O_CREATE, 0o644); err != nil {
		return nil, err
	}
	if fs.bodyFile, err = os.OpenFile(prefix+".body", os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644); err != nil {
		return nil, err
	}
	if fs.headerFile, err = os.OpenFile(prefix+".header", os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644); err != nil {
		return nil, err
	}
	if fs.sessionFile, err = os.OpenFile(prefix+".session", os.O_RDWR|os.O_CREATE, 0o644); err != nil {
		return nil, err
	}

	if err := fs.Refresh(); err != nil {
		return nil, err
	}
	if fs.creationTime.IsZero() {
		fs.creationTime = time.Now().UTC()
		if err := fs.writeSessionFile(); err != nil {
			return nil, err
		}
	}
	if fs.nextSender == 0 && fs.nextTarget == 0 {
		fs.nextSender, fs.nextTarget = 1, 1
		if err := fs.writeSeqNums(); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

// Refresh re-reads the sequence-number and header-index files, picking
// up state written by another process (§4.5/§7's RefreshOnLogon).
func (fs *FileStore) Refresh() error {
	fs.mtx.Lock()
	defer fs.mtx.Unlock()

	if n, tgt, err := readSeqNums(fs.seqFile); err == nil {
		fs.nextSender, fs.nextTarget = n, tgt
	}

	if ts, err := readSessionFile(fs.sessionFile); err == nil {
		fs.creationTime = ts
	}

	idx, err := readHeaderIndex(fs.headerFile)
	if err != nil {
		return err
	}
	fs.index = idx
	return nil
}

func readSeqNums(f *os.File) (sender, target uint64, err error) {
	if _, err = f.Seek(0, 0); err != nil {
		return
	}
	buf := make([]byte, 2*seqNumFieldWidth+3)
	n, rerr := f.Read(buf)
	if rerr != nil || n < len(buf) {
		return 0, 0, fmt.Errorf("store: seqnums file not yet initialized")
	}
	sender, err = strconv.ParseUint(strings.TrimSpace(string(buf[:seqNumFieldWidth])), 10, 64)
	if err != nil {
		return
	}
	target, err = strconv.ParseUint(strings.TrimSpace(string(buf[seqNumFieldWidth+3:])), 10, 64)
	return
}

func readSessionFile(f *os.File) (time.Time, error) {
	if _, err := f.Seek(0, 0); err != nil {
		return time.Time{}, err
	}
	buf := make([]byte, 64)
	n, err := f.Read(buf)
	if err != nil || n == 0 {
		return time.Time{}, fmt.Errorf("store: session file empty")
	}
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(string(buf[:n])))
}

func readHeaderIndex(f *os.File) (map[uint64]indexEntry, error) {
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	idx := make(map[uint64]indexEntry)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		parts := strings.SplitN(sc.Text(), ",", 3)
		if len(parts) != 3 {
			continue
		}
		seq, err1 := strconv.ParseUint(parts[0], 10, 64)
		off, err2 := strconv.ParseInt(parts[1], 10, 64)
		length, err3 := strconv.ParseInt(parts[2], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		idx[seq] = indexEntry{offset: off, length: length}
	}
	return idx, sc.Err()
}

func (fs *FileStore) writeSeqNums() error {
	line := fmt.Sprintf("%0*d : %0*d  ", seqNumFieldWidth, fs.nextSender, seqNumFieldWidth, fs.nextTarget)
	if _, err := fs.seqFile.WriteAt([]byte(line), 0); err != nil {
		return err
	}
	return fs.seqFile.Sync()
}

func (fs *FileStore) writeSessionFile() error {
	if err := fs.sessionFile.Truncate(0); err != nil {
		return err
	}
	if _, err := fs.sessionFile.WriteAt([]byte(fs.creationTime.Format(time.RFC3339Nano)), 0); err != nil {
		return err
	}
	return fs.sessionFile.Sync()
}

// Reset truncates all four files (§4.5).
func (fs *FileStore) Reset() error {
	fs.mtx.Lock()
	defer fs.mtx.Unlock()

	for _, f := range []*os.File{fs.bodyFile, fs.headerFile} {
		if err := f.Truncate(0); err != nil {
			return err
		}
		if _, err := f.Seek(0, 0); err != nil {
			return err
		}
	}
	fs.index = make(map[uint64]indexEntry)
	fs.nextSender, fs.nextTarget = 1, 1
	fs.creationTime = time.Now().UTC()
	if err := fs.writeSeqNums(); err != nil {
		return err
	}
	return fs.writeSessionFile()
}

func (fs *FileStore) CreationTime() time.Time {
	fs.mtx.Lock()
	defer fs.mtx.Unlock()
	return fs.creationTime
}

func (fs *FileStore) NextSenderSeq() uint64 {
	fs.mtx.Lock()
	defer fs.mtx.Unlock()
	return fs.nextSender
}

func (fs *FileStore) SetNextSenderSeq(n uint64) error {
	fs.mtx.Lock()
	defer fs.mtx.Unlock()
	fs.nextSender = n
	return fs.writeSeqNums()
}

func (fs *FileStore) IncrSenderSeq() error {
	fs.mtx.Lock()
	defer fs.mtx.Unlock()
	fs.nextSender++
	return fs.writeSeqNums()
}

func (fs *FileStore) NextTargetSeq() uint64 {
	fs.mtx.Lock()
	defer fs.mtx.Unlock()
	return fs.nextTarget
}

func (fs *FileStore) SetNextTargetSeq(n uint64) error {
	fs.mtx.Lock()
	defer fs.mtx.Unlock()
	fs.nextTarget = n
	return fs.writeSeqNums()
}

func (fs *FileStore) IncrTargetSeq() error {
	fs.mtx.Lock()
	defer fs.mtx.Unlock()
	fs.nextTarget++
	return fs.writeSeqNums()
}

func (fs *FileStore) Set(seqNum uint64, raw []byte) error {
	fs.mtx.Lock()
	defer fs.mtx.Unlock()

	offset, err := fs.bodyFile.Seek(0, 2)
	if err != nil {
		return err
	}
	if _, err := fs.bodyFile.Write(raw); err != nil {
		return err
	}
	line := fmt.Sprintf("%d,%d,%d\n", seqNum, offset, len(raw))
	if _, err := fs.headerFile.Write([]byte(line)); err != nil {
		return err
	}
	fs.index[seqNum] = indexEntry{offset: offset, length: int64(len(raw))}
	return nil
}

func (fs *FileStore) Get(begin, end uint64) ([]string, error) {
	fs.mtx.Lock()
	defer fs.mtx.Unlock()

	var keys []uint64
	for k := range fs.index {
		if k >= begin && k <= end {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		e := fs.index[k]
		buf := make([]byte, e.length)
		if _, err := fs.bodyFile.ReadAt(buf, e.offset); err != nil {
			return nil, err
		}
		out = append(out, string(buf))
	}
	return out, nil
}

func (fs *FileStore) Close() error {
	fs.mtx.Lock()
	defer fs.mtx.Unlock()
	fs.seqFile.Close()
	fs.bodyFile.Close()
	fs.headerFile.Close()
	fs.sessionFile.Close()
	return fs.lock.Unlock()
}
