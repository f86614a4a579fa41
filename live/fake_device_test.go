package live

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"www.velocidex.com/golang/ntfsmon/parser"
	"www.velocidex.com/golang/ntfsmon/vtesting"
)

type testError struct {
	code uint32
}

func (self testError) Error() string {
	return fmt.Sprintf("test error %d", self.code)
}

func (self testError) ErrorCode() uint32 {
	return self.code
}

// A queued journal read. Records in update replace the device's MFT
// records when the read is served. A nil record deletes the entry.
type fakeRead struct {
	buf    []byte
	update map[int64][]byte
}

type readCall struct {
	StartUsn   int64
	ReasonMask uint32
	Size       int
}

// fakeDevice serves canned responses for the device control calls
// the live package makes.
type fakeDevice struct {
	mu sync.Mutex

	geometry []byte
	journal  []byte

	reads    []fakeRead
	read_err error
	calls    []readCall

	records     map[int64][]byte
	fetches     []int64
	fetch_error map[int64]error

	closed int
}

func newFakeDevice(max_entry int64) *fakeDevice {
	return &fakeDevice{
		geometry: vtesting.EncodeVolumeGeometry(&parser.VolumeGeometry{
			BytesPerSector:            512,
			BytesPerCluster:           4096,
			BytesPerFileRecordSegment: vtesting.TestRecordSize,
			MftValidDataLength:        max_entry * vtesting.TestRecordSize,
		}),
		journal: vtesting.EncodeJournalData(&parser.JournalMetadata{
			UsnJournalID:             0x01d5c0ffee,
			FirstUsn:                 0x100,
			NextUsn:                  0x8000,
			LowestValidUsn:           0x100,
			MaxUsn:                   0x7fffffffffff0000,
			MinSupportedMajorVersion: 2,
			MaxSupportedMajorVersion: 3,
		}, parser.USN_JOURNAL_DATA_V1_SIZE),
		records:     make(map[int64][]byte),
		fetch_error: make(map[int64]error),
	}
}

func (self *fakeDevice) opener(path string) (Device, error) {
	return self, nil
}

func (self *fakeDevice) SetRecord(entry int64, record []byte) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.records[entry] = record
}

func (self *fakeDevice) PushRead(read fakeRead) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.reads = append(self.reads, read)
}

func (self *fakeDevice) SetReadError(err error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.read_err = err
}

func (self *fakeDevice) Calls() []readCall {
	self.mu.Lock()
	defer self.mu.Unlock()

	return append([]readCall{}, self.calls...)
}

func (self *fakeDevice) Fetches() []int64 {
	self.mu.Lock()
	defer self.mu.Unlock()

	return append([]int64{}, self.fetches...)
}

func (self *fakeDevice) DeviceIoControl(
	code uint32, in []byte, out []byte) (uint32, error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	switch code {
	case FSCTL_GET_NTFS_VOLUME_DATA:
		return uint32(copy(out, self.geometry)), nil

	case FSCTL_QUERY_USN_JOURNAL:
		return uint32(copy(out, self.journal)), nil

	case FSCTL_READ_USN_JOURNAL:
		start_usn := int64(binary.LittleEndian.Uint64(in[0:8]))
		self.calls = append(self.calls, readCall{
			StartUsn:   start_usn,
			ReasonMask: binary.LittleEndian.Uint32(in[8:12]),
			Size:       len(in),
		})

		if len(self.reads) == 0 {
			if self.read_err != nil {
				return 0, self.read_err
			}
			// Caught up: nothing new.
			return uint32(copy(out, vtesting.BuildReadOutput(start_usn))), nil
		}

		read := self.reads[0]
		self.reads = self.reads[1:]
		for k, v := range read.update {
			if v == nil {
				delete(self.records, k)
				continue
			}
			self.records[k] = v
		}
		return uint32(copy(out, read.buf)), nil

	case FSCTL_GET_NTFS_FILE_RECORD:
		entry := int64(binary.LittleEndian.Uint64(in))
		self.fetches = append(self.fetches, entry)

		err, pres := self.fetch_error[entry]
		if pres {
			return 0, err
		}

		// The closest record at or below the requested entry.
		entries := []int64{}
		for k := range self.records {
			if k <= entry {
				entries = append(entries, k)
			}
		}
		if len(entries) == 0 {
			return 0, testError{code: 38}
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i] > entries[j] })

		found := entries[0]
		return uint32(copy(out, vtesting.BuildFileRecordOutput(
			found, self.records[found]))), nil
	}

	return 0, testError{code: 1}
}

func (self *fakeDevice) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.closed++
	return nil
}

func directoryRecord(entry uint32, name string, parent uint64) []byte {
	return vtesting.BuildMFTRecord(vtesting.MFTRecord{
		Entry:     entry,
		Sequence:  1,
		Allocated: true,
		Directory: true,
		Created:   vtesting.TestFiletime,
		Modified:  vtesting.TestFiletime,
		Accessed:  vtesting.TestFiletime,
		FileNames: []vtesting.FileName{{
			Name:     name,
			NameType: vtesting.NAME_TYPE_WIN32,
			Parent:   parent,
		}},
	})
}

func fileRecord(entry uint32, name string, parent uint64, accessed uint64) []byte {
	return vtesting.BuildMFTRecord(vtesting.MFTRecord{
		Entry:     entry,
		Sequence:  1,
		Allocated: true,
		Created:   vtesting.TestFiletime,
		Modified:  vtesting.TestFiletime,
		Accessed:  accessed,
		FileNames: []vtesting.FileName{{
			Name:     name,
			NameType: vtesting.NAME_TYPE_WIN32,
			Parent:   parent,
		}},
	})
}

func usnRecord(entry uint64, parent uint64, usn int64,
	reason uint32, attributes uint32, name string) []byte {
	return vtesting.BuildUSNRecord(vtesting.USNRecord{
		FileReference:   vtesting.FRN(entry, 1),
		ParentReference: parent,
		Usn:             usn,
		Reason:          reason,
		FileAttributes:  attributes,
		Name:            name,
	})
}

func readRecord(t *testing.T, output <-chan *parser.USNRecord) *parser.USNRecord {
	select {
	case record, ok := <-output:
		if !ok {
			t.Fatalf("Listener closed its output")
		}
		return record
	case <-time.After(5 * time.Second):
		t.Fatalf("Timed out waiting for a record")
	}
	return nil
}

func init() {
	spew.Config.DisablePointerAddresses = true
	spew.Config.SortKeys = true
}
