package live

import (
	"context"
	"sync"

	"github.com/Velocidex/ordereddict"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"www.velocidex.com/golang/ntfsmon/logging"
	"www.velocidex.com/golang/ntfsmon/parser"
)

type EntryListenerOptions struct {
	Resolver PathResolver
	Opener   DeviceOpener
	Volume   parser.Options

	// Options for the journal listener driving the diffs. It always
	// follows live changes.
	Listener ListenerOptions
}

// MFTEntryListener watches a single MFT entry and reports how its
// attributes change.
type MFTEntryListener struct {
	path    string
	entry   int64
	options EntryListenerOptions
	logger  *logrus.Entry

	mu     sync.Mutex
	volume *LiveVolume
	err    error
}

// NewMFTEntryListener resolves path to its MFT entry and opens the
// volume it is on.
func NewMFTEntryListener(
	path string, options EntryListenerOptions) (*MFTEntryListener, error) {
	if options.Resolver == nil {
		options.Resolver = NewPathResolver()
	}
	if options.Opener == nil {
		options.Opener = OpenDevice
	}

	entry, volume_path, err := options.Resolver.Resolve(path)
	if err != nil {
		return nil, errors.Wrap(err, "NewMFTEntryListener")
	}

	volume, err := OpenLiveVolumeWithOpener(
		volume_path, options.Volume, options.Opener)
	if err != nil {
		return nil, err
	}

	return &MFTEntryListener{
		path:    path,
		entry:   entry,
		options: options,
		volume:  volume,
		logger: logging.GetLogger().WithFields(logrus.Fields{
			"path":   path,
			"volume": volume_path,
			"entry":  entry,
		}),
	}, nil
}

func (self *MFTEntryListener) Entry() int64 {
	return self.entry
}

func (self *MFTEntryListener) Volume() *LiveVolume {
	return self.volume
}

// GetCurrentValue decodes the entry and returns its snapshot.
func (self *MFTEntryListener) GetCurrentValue() (*ordereddict.Dict, error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	entry, err := self.volume.GetMFTEntry(self.entry)
	if err != nil {
		return nil, err
	}

	// The device hands out the closest allocated record below a
	// deleted one.
	if int64(entry.Reference.Entry) != self.entry {
		return nil, errors.Errorf(
			"MFT entry %d is not allocated (device returned entry %d)",
			self.entry, entry.Reference.Entry)
	}
	return entry.Snapshot(), nil
}

func (self *MFTEntryListener) Err() error {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.err
}

func (self *MFTEntryListener) setErr(err error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.err = err
}

// Listen emits a diff every time a journal record for the entry
// changes its snapshot. The baseline is the snapshot when Listen is
// called.
func (self *MFTEntryListener) Listen(ctx context.Context) (
	<-chan *ordereddict.Dict, error) {
	baseline, err := self.GetCurrentValue()
	if err != nil {
		return nil, err
	}

	// The journal listener gets its own handle.
	usn_volume, err := self.volume.Clone()
	if err != nil {
		return nil, err
	}

	options := self.options.Listener
	options.Historical = false
	options.Resume = false
	options.EnumeratePaths = false

	sub_ctx, cancel := context.WithCancel(ctx)
	listener := NewUSNVolumeListener(usn_volume, options)
	records, err := listener.Listen(sub_ctx)
	if err != nil {
		cancel()
		usn_volume.Close()
		return nil, err
	}

	output := make(chan *ordereddict.Dict, listener.options.OutputBuffer)
	go func() {
		defer close(output)
		defer usn_volume.Close()
		defer func() {
			// Wait for the journal listener to let go of the handle.
			cancel()
			for range records {
			}
		}()

		for record := range records {
			if int64(record.FileReference.Entry) != self.entry {
				continue
			}

			current, err := self.GetCurrentValue()
			if err != nil {
				self.logger.Warnf("Unable to decode entry: %v", err)
				continue
			}

			diff, err := parser.DiffSnapshots(baseline, current)
			if err != nil {
				self.logger.Warnf("Unable to diff entry: %v", err)
				continue
			}

			if diff.Len() == 0 {
				continue
			}
			baseline = current

			select {
			case <-ctx.Done():
				return
			case output <- diff:
				metricDiffsEmitted.Inc()
			}
		}

		self.setErr(listener.Err())
	}()

	return output, nil
}

func (self *MFTEntryListener) Close() error {
	return self.volume.Close()
}
