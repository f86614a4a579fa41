// Manage the mapping of directory references to their names. This is
// used to resolve the full path of USN records without going back to
// the MFT.

package parser

import (
	"sync"

	"github.com/Velocidex/ordereddict"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

type EntryMapping struct {
	Name   string
	Parent EntryReference
}

type FolderMapping struct {
	mu sync.Mutex

	options Options

	mapping map[EntryReference]*EntryMapping

	// Resolved full paths.
	lru *simplelru.LRU[EntryReference, string]

	// Number of times the mapping table was consulted while walking
	// paths.
	lookups int
	hits    int
	misses  int
}

func NewFolderMapping(options Options) *FolderMapping {
	size := options.PathCacheSize
	if size <= 0 {
		size = DefaultPathCacheSize
	}

	if options.MaxDirectoryDepth <= 0 {
		options.MaxDirectoryDepth = GetDefaultOptions().MaxDirectoryDepth
	}

	lru, _ := simplelru.NewLRU[EntryReference, string](size, nil)
	return &FolderMapping{
		options: options,
		mapping: make(map[EntryReference]*EntryMapping),
		lru:     lru,
	}
}

func (self *FolderMapping) Stats() *ordereddict.Dict {
	self.mu.Lock()
	defer self.mu.Unlock()

	return ordereddict.NewDict().
		Set("Mappings", len(self.mapping)).
		Set("CachedPaths", self.lru.Len()).
		Set("CacheHits", self.hits).
		Set("CacheMisses", self.misses).
		Set("MappingLookups", self.lookups)
}

func (self *FolderMapping) Len() int {
	self.mu.Lock()
	defer self.mu.Unlock()

	return len(self.mapping)
}

func (self *FolderMapping) MappingLookups() int {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.lookups
}

func (self *FolderMapping) ContainsReference(ref EntryReference) bool {
	self.mu.Lock()
	defer self.mu.Unlock()

	_, pres := self.mapping[ref]
	return pres
}

func (self *FolderMapping) Get(ref EntryReference) (*EntryMapping, bool) {
	self.mu.Lock()
	defer self.mu.Unlock()

	res, pres := self.mapping[ref]
	return res, pres
}

// AddMapping adds or replaces the mapping for ref. Any cached path
// for ref is dropped so it is rebuilt with the new name.
func (self *FolderMapping) AddMapping(
	ref EntryReference, name string, parent EntryReference) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.lru.Remove(ref)
	self.mapping[ref] = &EntryMapping{
		Name:   name,
		Parent: parent,
	}
}

func (self *FolderMapping) RemoveMapping(ref EntryReference) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.lru.Remove(ref)
	delete(self.mapping, ref)
}

// ApplyRecord updates the mapping from a journal record. In
// historical mode, deletes that happened before catch_up_usn still
// name directories referenced by earlier records so they are kept.
func (self *FolderMapping) ApplyRecord(
	record *USNRecord, historical bool, catch_up_usn int64) {
	if !record.IsDirectory() && !self.options.MapFiles {
		return
	}

	reason := record.Reason
	switch {
	case reason&USN_REASON_RENAME_OLD_NAME != 0:
		self.RemoveMapping(record.FileReference)

	case reason&USN_REASON_FILE_DELETE != 0:
		if historical && record.Usn < catch_up_usn {
			self.AddMapping(record.FileReference,
				record.FileName, record.ParentReference)
		} else {
			self.RemoveMapping(record.FileReference)
		}

	case reason&(USN_REASON_RENAME_NEW_NAME|USN_REASON_FILE_CREATE) != 0:
		self.AddMapping(record.FileReference,
			record.FileName, record.ParentReference)
	}
}

// EntryIterator yields decoded MFT entries, or the error that
// prevented decoding one.
type EntryIterator interface {
	Next() bool
	Entry() (*MFTEntry, error)
}

// NewFolderMappingFromEntries builds the mapping from a scan of
// the MFT. Only directories with a name are mapped. Errors are
// passed to on_error and the scan continues.
func NewFolderMappingFromEntries(
	options Options, it EntryIterator, on_error func(err error)) *FolderMapping {
	result := NewFolderMapping(options)

	for it.Next() {
		entry, err := it.Entry()
		if err != nil {
			if on_error != nil {
				on_error(err)
			}
			continue
		}

		if !entry.IsDir {
			continue
		}

		fn := entry.BestFileName()
		if fn == nil {
			continue
		}

		result.AddMapping(entry.MappingReference(), fn.Name, fn.Parent)
	}

	return result
}
