package live

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"www.velocidex.com/golang/ntfsmon/logging"
	"www.velocidex.com/golang/ntfsmon/parser"
)

// DeviceOpener opens a device path. OpenDevice is used unless the
// caller supplies another one.
type DeviceOpener func(path string) (Device, error)

// LiveVolume gives access to the MFT of a mounted volume through
// device control calls. Each LiveVolume owns its device handle.
type LiveVolume struct {
	path     string
	device   Device
	opener   DeviceOpener
	geometry *parser.VolumeGeometry
	decoder  parser.MFTDecoder
	options  parser.Options
}

func OpenLiveVolume(path string, options parser.Options) (*LiveVolume, error) {
	return OpenLiveVolumeWithOpener(path, options, OpenDevice)
}

func OpenLiveVolumeWithOpener(path string,
	options parser.Options, opener DeviceOpener) (*LiveVolume, error) {
	device, err := opener(path)
	if err != nil {
		return nil, errors.Wrap(err, "OpenLiveVolume "+path)
	}

	geometry, err := GetVolumeGeometry(device)
	if err != nil {
		device.Close()
		return nil, errors.Wrap(err, "OpenLiveVolume "+path)
	}

	logging.GetLogger().WithFields(logrus.Fields{
		"volume":      path,
		"record_size": geometry.BytesPerFileRecordSegment,
		"max_entry":   geometry.MaxEntry(),
	}).Debug("Opened live volume")

	return &LiveVolume{
		path:     path,
		device:   device,
		opener:   opener,
		geometry: geometry,
		decoder: parser.NewNTFSDecoder(
			int64(geometry.BytesPerCluster),
			int64(geometry.BytesPerFileRecordSegment)),
		options: options,
	}, nil
}

// Clone reopens the device path. The clone has its own handle so it
// can be used from another goroutine, and closing one does not
// affect the other.
func (self *LiveVolume) Clone() (*LiveVolume, error) {
	result, err := OpenLiveVolumeWithOpener(self.path, self.options, self.opener)
	if err != nil {
		return nil, err
	}
	result.decoder = self.decoder
	return result, nil
}

func (self *LiveVolume) Path() string {
	return self.path
}

func (self *LiveVolume) Device() Device {
	return self.device
}

func (self *LiveVolume) Geometry() *parser.VolumeGeometry {
	return self.geometry
}

func (self *LiveVolume) Options() parser.Options {
	return self.options
}

// SetDecoder replaces the MFT decoder used by this volume.
func (self *LiveVolume) SetDecoder(decoder parser.MFTDecoder) {
	self.decoder = decoder
}

func (self *LiveVolume) Close() error {
	return self.device.Close()
}

// GetMFTEntry fetches and decodes a single MFT entry.
func (self *LiveVolume) GetMFTEntry(entry int64) (*parser.MFTEntry, error) {
	buf, err := FetchMFTRecord(self.device, entry,
		self.geometry.BytesPerFileRecordSegment)
	if err != nil {
		return nil, err
	}
	return self.decoder.Decode(buf.RecordNumber, buf.Record)
}

// EntryIterator walks all allocated entries from the highest to the
// lowest.
func (self *LiveVolume) EntryIterator() *EntryIterator {
	return &EntryIterator{
		volume: self,
		cursor: self.geometry.MaxEntry() - 1,
	}
}

// GetFolderMapping scans the whole MFT for directories. Entries
// that fail to decode are logged and skipped.
func (self *LiveVolume) GetFolderMapping() *parser.FolderMapping {
	logger := logging.GetLogger()
	failed := 0

	result := parser.NewFolderMappingFromEntries(
		self.options, self.EntryIterator(), func(err error) {
			failed++
			logger.WithFields(logrus.Fields{
				"volume": self.path,
			}).Debugf("GetFolderMapping: %v", err)
		})

	logger.WithFields(logrus.Fields{
		"volume":   self.path,
		"mappings": result.Len(),
		"failed":   failed,
	}).Info("Built folder mapping")
	metricFolderMappings.Set(float64(result.Len()))

	return result
}

// EntryIterator relies on FSCTL_GET_NTFS_FILE_RECORD returning the
// closest allocated record at or below the requested entry. After
// each fetch we continue below the returned record, which skips
// runs of unallocated entries in a single call.
type EntryIterator struct {
	volume *LiveVolume
	cursor int64

	entry *parser.MFTEntry
	err   error
}

func (self *EntryIterator) Next() bool {
	if self.cursor < 0 {
		self.entry = nil
		self.err = nil
		return false
	}

	buf, err := FetchMFTRecord(self.volume.device, self.cursor,
		self.volume.geometry.BytesPerFileRecordSegment)
	if err != nil {
		self.entry = nil
		self.err = err
		self.cursor--
		return true
	}

	// Never move upwards, even if the device does.
	if buf.RecordNumber > self.cursor || buf.RecordNumber < 0 {
		self.cursor--
	} else {
		self.cursor = buf.RecordNumber - 1
	}

	self.entry, self.err = self.volume.decoder.Decode(
		buf.RecordNumber, buf.Record)
	return true
}

func (self *EntryIterator) Entry() (*parser.MFTEntry, error) {
	return self.entry, self.err
}
