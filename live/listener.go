package live

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"www.velocidex.com/golang/ntfsmon/checkpoint"
	"www.velocidex.com/golang/ntfsmon/logging"
	"www.velocidex.com/golang/ntfsmon/parser"
)

const (
	DEFAULT_POLL_INTERVAL = 100 * time.Millisecond
	DEFAULT_OUTPUT_BUFFER = 100
)

type ListenerOptions struct {
	// Replay the journal from its start instead of following new
	// changes only.
	Historical bool

	// Start from the cursor saved in Checkpoint if it is still
	// valid for the journal.
	Resume bool

	// Only records with one of these reasons are returned. Zero
	// means all reasons.
	ReasonMask uint32

	// Maintain a folder mapping and attach the full path to each
	// record. This scans the whole MFT at start.
	EnumeratePaths bool

	// How long to wait after a read returned no records.
	PollInterval time.Duration

	// Size of the output channel. When the consumer falls behind
	// the listener stops reading from the journal.
	OutputBuffer int

	Clock clockwork.Clock

	// If set, the cursor is saved here after every read that
	// returned records.
	Checkpoint *checkpoint.Store
}

func GetDefaultListenerOptions() ListenerOptions {
	return ListenerOptions{
		ReasonMask:   parser.DEFAULT_REASON_MASK,
		PollInterval: DEFAULT_POLL_INTERVAL,
		OutputBuffer: DEFAULT_OUTPUT_BUFFER,
		Clock:        clockwork.NewRealClock(),
	}
}

// USNVolumeListener follows the USN journal of a single volume. Once
// Listen is called the listener goroutine owns the volume, the
// journal metadata and the folder mapping.
type USNVolumeListener struct {
	volume  *LiveVolume
	options ListenerOptions
	logger  *logrus.Entry

	meta         *parser.JournalMetadata
	mapping      *parser.FolderMapping
	cursor       int64
	catch_up_usn int64
	historical   bool

	mu  sync.Mutex
	err error
}

func NewUSNVolumeListener(
	volume *LiveVolume, options ListenerOptions) *USNVolumeListener {
	defaults := GetDefaultListenerOptions()
	if options.ReasonMask == 0 {
		options.ReasonMask = defaults.ReasonMask
	}
	if options.PollInterval <= 0 {
		options.PollInterval = defaults.PollInterval
	}
	if options.OutputBuffer < 0 {
		options.OutputBuffer = defaults.OutputBuffer
	}
	if options.Clock == nil {
		options.Clock = defaults.Clock
	}

	return &USNVolumeListener{
		volume:  volume,
		options: options,
		logger: logging.GetLogger().WithFields(logrus.Fields{
			"volume": volume.Path(),
		}),
	}
}

// Err returns the error which stopped the listener. It is only
// meaningful after the output channel is closed.
func (self *USNVolumeListener) Err() error {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.err
}

func (self *USNVolumeListener) setErr(err error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.err = err
}

// Cursor is the usn the next read will start from.
func (self *USNVolumeListener) Cursor() int64 {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.cursor
}

func (self *USNVolumeListener) setCursor(usn int64) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.cursor = usn
}

// Listen queries the journal and starts following it. Records are
// delivered in journal order until ctx is done or a read fails.
func (self *USNVolumeListener) Listen(ctx context.Context) (
	<-chan *parser.USNRecord, error) {
	meta, err := QueryJournal(self.volume.Device())
	if err != nil {
		return nil, errors.Wrap(err, "USNVolumeListener")
	}
	self.meta = meta
	self.selectStart()

	self.logger.WithFields(logrus.Fields{
		"journal_id": meta.UsnJournalID,
		"version":    meta.Version.String(),
		"start_usn":  self.cursor,
		"historical": self.historical,
	}).Info("Listening to USN journal")

	output := make(chan *parser.USNRecord, self.options.OutputBuffer)
	go func() {
		defer close(output)

		if self.options.EnumeratePaths {
			self.mapping = self.volume.GetFolderMapping()
		}

		self.loop(ctx, output)
	}()

	return output, nil
}

func (self *USNVolumeListener) selectStart() {
	meta := self.meta

	if self.options.Resume && self.options.Checkpoint != nil {
		saved, err := self.options.Checkpoint.Load(self.volume.Path())
		switch {
		case err != nil:
			self.logger.Debugf("No usable checkpoint: %v", err)

		case saved.JournalID != meta.UsnJournalID:
			self.logger.Warnf("Checkpoint is for journal %#x, journal is now %#x",
				saved.JournalID, meta.UsnJournalID)

		case saved.NextUsn < meta.LowestValidUsn || saved.NextUsn > meta.NextUsn:
			self.logger.Warnf("Checkpoint usn %#x is outside the journal range",
				saved.NextUsn)

		default:
			// Records between the checkpoint and now are a replay.
			self.cursor = saved.NextUsn
			self.catch_up_usn = meta.NextUsn
			self.historical = true
			return
		}
	}

	if self.options.Historical {
		self.cursor = 0
		self.catch_up_usn = meta.NextUsn
		self.historical = true
		return
	}

	self.cursor = meta.NextUsn
}

func (self *USNVolumeListener) loop(
	ctx context.Context, output chan *parser.USNRecord) {
	device := self.volume.Device()

	for {
		request := parser.NewReadRequest(self.meta).
			WithStartUsn(self.Cursor()).
			WithReasonMask(self.options.ReasonMask)

		metricJournalReads.Inc()
		buf, err := ReadJournal(device, request)
		if err != nil {
			metricReadFailures.Inc()
			self.logger.WithFields(logrus.Fields{
				"usn": request.StartUsn,
			}).Errorf("Unable to read USN journal: %v", err)
			self.setErr(err)
			return
		}

		it, err := parser.NewUSNRecordIterator(buf)
		if err != nil {
			metricReadFailures.Inc()
			self.logger.Errorf("Invalid USN journal buffer: %v", err)
			self.setErr(err)
			return
		}

		count := 0
		for it.Next() {
			record := it.Record()
			if self.mapping != nil {
				self.mapping.ApplyRecord(
					record, self.historical, self.catch_up_usn)
				record.FullPath = self.mapping.FullPath(record)
			}

			select {
			case <-ctx.Done():
				self.logger.Debug((&parser.ChannelSendError{Usn: record.Usn}).Error())
				return

			case output <- record:
				count++
				metricRecordsEmitted.Inc()
			}
		}

		// The rest of the buffer is lost but the cursor still moves
		// past it.
		if it.Err() != nil {
			self.logger.WithFields(logrus.Fields{
				"usn": request.StartUsn,
			}).Warnf("Skipping rest of buffer: %v", it.Err())
		}

		self.setCursor(it.NextUsn())
		if self.mapping != nil {
			metricFolderMappings.Set(float64(self.mapping.Len()))
		}

		if count > 0 {
			self.saveCheckpoint()
			continue
		}

		metricEmptyReads.Inc()
		select {
		case <-ctx.Done():
			return
		case <-self.options.Clock.After(self.options.PollInterval):
		}
	}
}

func (self *USNVolumeListener) saveCheckpoint() {
	if self.options.Checkpoint == nil {
		return
	}

	err := self.options.Checkpoint.Save(&checkpoint.Cursor{
		Volume:    self.volume.Path(),
		JournalID: self.meta.UsnJournalID,
		NextUsn:   self.Cursor(),
		Updated:   self.options.Clock.Now().UTC(),
	})
	if err != nil {
		self.logger.Warnf("Unable to save checkpoint: %v", err)
	}
}
