package parser

import (
	"sync"

	"www.velocidex.com/golang/ntfsmon/json"
)

var (
	STATS = Stats{}
)

// Process wide counters of parser activity.
type Stats struct {
	mu sync.Mutex

	USNRecord          int
	USNRecordSkipped   int
	MalformedBuffer    int
	MFTEntry           int
	MFTEntryDecodeFail int
	DiffComputed       int
}

func (self *Stats) DebugString() string {
	self.mu.Lock()
	defer self.mu.Unlock()

	serialized, _ := json.MarshalIndent(self)
	return string(serialized)
}

func (self *Stats) Inc_USNRecord() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.USNRecord++
}

func (self *Stats) Inc_USNRecordSkipped() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.USNRecordSkipped++
}

func (self *Stats) Inc_MalformedBuffer() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.MalformedBuffer++
}

func (self *Stats) Inc_MFTEntry() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.MFTEntry++
}

func (self *Stats) Inc_MFTEntryDecodeFail() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.MFTEntryDecodeFail++
}

func (self *Stats) Inc_DiffComputed() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.DiffComputed++
}
