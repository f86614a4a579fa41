package parser_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"www.velocidex.com/golang/ntfsmon/parser"
)

var (
	root = parser.EntryReference{Entry: 5, Sequence: 5}
	dir1 = parser.EntryReference{Entry: 100, Sequence: 1}
	dir2 = parser.EntryReference{Entry: 101, Sequence: 1}
)

func TestFolderMappingEnumeratePath(t *testing.T) {
	assert := assert.New(t)

	mapping := parser.NewFolderMapping(parser.GetDefaultOptions())
	mapping.AddMapping(dir1, "dir1", root)
	mapping.AddMapping(dir2, "dir2", dir1)

	assert.True(mapping.ContainsReference(dir1))
	assert.False(mapping.ContainsReference(
		parser.EntryReference{Entry: 100, Sequence: 2}))

	assert.Equal("[root]/dir1/dir2", mapping.EnumeratePath(dir2))
	assert.Equal("[root]", mapping.EnumeratePath(root))

	// Removing a mapping evicts its cached path. Descendants keep
	// their cached path until they are remapped themselves.
	mapping.RemoveMapping(dir1)
	assert.Equal("[<unknown>]", mapping.EnumeratePath(dir1))
	assert.Equal("[root]/dir1/dir2", mapping.EnumeratePath(dir2))

	mapping.AddMapping(dir2, "dir2", dir1)
	assert.Equal("[<unknown>]/dir2", mapping.EnumeratePath(dir2))
}

func TestFolderMappingCache(t *testing.T) {
	assert := assert.New(t)

	mapping := parser.NewFolderMapping(parser.GetDefaultOptions())
	mapping.AddMapping(dir1, "dir1", root)
	mapping.AddMapping(dir2, "dir2", dir1)

	assert.Equal("[root]/dir1/dir2", mapping.EnumeratePath(dir2))
	lookups := mapping.MappingLookups()
	assert.Equal(2, lookups)

	// The second call is served from the cache.
	assert.Equal("[root]/dir1/dir2", mapping.EnumeratePath(dir2))
	assert.Equal(lookups, mapping.MappingLookups())

	// Renaming invalidates the cached path.
	mapping.AddMapping(dir2, "renamed", dir1)
	assert.Equal("[root]/dir1/renamed", mapping.EnumeratePath(dir2))
	assert.Equal(lookups+2, mapping.MappingLookups())

	stats := mapping.Stats()
	hits, _ := stats.Get("CacheHits")
	assert.Equal(1, hits)
}

func TestFolderMappingCorrupt(t *testing.T) {
	assert := assert.New(t)

	a := parser.EntryReference{Entry: 200, Sequence: 1}
	b := parser.EntryReference{Entry: 201, Sequence: 1}

	mapping := parser.NewFolderMapping(parser.GetDefaultOptions())
	mapping.AddMapping(a, "a", b)
	mapping.AddMapping(b, "b", a)

	assert.Equal("[<corrupt>]/b/a", mapping.EnumeratePath(a))

	// A self referencing entry.
	mapping.AddMapping(a, "a", a)
	assert.Equal("[<corrupt>]/a", mapping.EnumeratePath(a))
}

func TestFolderMappingApplyRecord(t *testing.T) {
	assert := assert.New(t)

	directory := func(reason uint32, usn int64, name string) *parser.USNRecord {
		return &parser.USNRecord{
			FileReference:   dir1,
			ParentReference: root,
			Usn:             usn,
			Reason:          reason,
			FileAttributes:  parser.FILE_ATTRIBUTE_DIRECTORY,
			FileName:        name,
		}
	}

	mapping := parser.NewFolderMapping(parser.GetDefaultOptions())

	// Creation adds.
	mapping.ApplyRecord(directory(parser.USN_REASON_FILE_CREATE, 10, "dir1"),
		false, 0)
	assert.Equal("[root]/dir1", mapping.EnumeratePath(dir1))

	// Old names are removed, new names added.
	mapping.ApplyRecord(directory(parser.USN_REASON_RENAME_OLD_NAME, 20, "dir1"),
		false, 0)
	assert.False(mapping.ContainsReference(dir1))

	mapping.ApplyRecord(directory(parser.USN_REASON_RENAME_NEW_NAME, 30, "moved"),
		false, 0)
	assert.Equal("[root]/moved", mapping.EnumeratePath(dir1))

	// A live delete removes.
	mapping.ApplyRecord(directory(parser.USN_REASON_FILE_DELETE, 40, "moved"),
		false, 0)
	assert.False(mapping.ContainsReference(dir1))

	// Historical deletes before the catch up point keep the name so
	// earlier children still resolve.
	mapping.ApplyRecord(directory(parser.USN_REASON_FILE_DELETE, 500, "old"),
		true, 1000)
	assert.True(mapping.ContainsReference(dir1))
	assert.Equal("[root]/old", mapping.EnumeratePath(dir1))

	mapping.ApplyRecord(directory(parser.USN_REASON_FILE_DELETE, 1500, "old"),
		true, 1000)
	assert.False(mapping.ContainsReference(dir1))

	// Files do not touch the mapping.
	file := directory(parser.USN_REASON_FILE_CREATE, 2000, "file.txt")
	file.FileAttributes = 0x20
	mapping.ApplyRecord(file, false, 0)
	assert.False(mapping.ContainsReference(dir1))

	// Other reasons are ignored.
	mapping.ApplyRecord(directory(parser.USN_REASON_DATA_EXTEND, 2100, "x"),
		false, 0)
	assert.Equal(0, mapping.Len())
}

func TestFolderMappingFullPath(t *testing.T) {
	mapping := parser.NewFolderMapping(parser.GetDefaultOptions())
	mapping.AddMapping(dir1, "dir1", root)

	record := &parser.USNRecord{
		FileReference:   parser.EntryReference{Entry: 300, Sequence: 1},
		ParentReference: dir1,
		FileName:        "report.docx",
	}
	assert.Equal(t, "[root]/dir1/report.docx", mapping.FullPath(record))

	record.ParentReference = dir2
	assert.Equal(t, "[<unknown>]/report.docx", mapping.FullPath(record))
}

type entryIterator struct {
	entries []*parser.MFTEntry
	errors  []error
	idx     int
}

func (self *entryIterator) Next() bool {
	self.idx++
	return self.idx <= len(self.entries)
}

func (self *entryIterator) Entry() (*parser.MFTEntry, error) {
	return self.entries[self.idx-1], self.errors[self.idx-1]
}

func TestFolderMappingFromEntries(t *testing.T) {
	assert := assert.New(t)

	it := &entryIterator{
		entries: []*parser.MFTEntry{
			{
				Reference: dir2, IsDir: true,
				FileNames: []*parser.FileNameInfo{
					{Name: "DIR2~1", NameType: "DOS", Parent: dir1},
					{Name: "directory two", NameType: "Win32", Parent: dir1},
				},
			},
			nil,
			{
				// An extension record is keyed by its base record.
				Reference:     parser.EntryReference{Entry: 150, Sequence: 1},
				BaseReference: dir1,
				IsDir:         true,
				FileNames: []*parser.FileNameInfo{
					{Name: "dir1", NameType: "POSIX", Parent: root},
				},
			},
			{
				// Files are not mapped.
				Reference: parser.EntryReference{Entry: 300, Sequence: 1},
				FileNames: []*parser.FileNameInfo{
					{Name: "file.txt", NameType: "Win32", Parent: dir1},
				},
			},
			{
				// Directories without a name are skipped.
				Reference: parser.EntryReference{Entry: 400, Sequence: 1},
				IsDir:     true,
			},
		},
		errors: []error{nil, errors.New("bad record"), nil, nil, nil},
	}

	errs := []error{}
	mapping := parser.NewFolderMappingFromEntries(
		parser.GetDefaultOptions(), it, func(err error) {
			errs = append(errs, err)
		})

	assert.Equal(1, len(errs))
	assert.Equal(2, mapping.Len())
	assert.Equal("[root]/dir1/directory two", mapping.EnumeratePath(dir2))
}
