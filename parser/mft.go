package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/Velocidex/ordereddict"
	ntfs "www.velocidex.com/golang/go-ntfs/parser"
)

const (
	MFT_ENTRY_MIN_SIZE = 48

	// The device does not hand out the volume's cluster size to the
	// decoder; records are already fixed up so this is only used
	// for sizing.
	DEFAULT_CLUSTER_SIZE = 0x1000
)

type FileNameInfo struct {
	Name     string
	NameType string
	Parent   EntryReference
}

// MFTEntry is a decoded MFT record together with its JSON snapshot.
type MFTEntry struct {
	Reference     EntryReference
	BaseReference EntryReference
	Allocated     bool
	IsDir         bool
	FileNames     []*FileNameInfo

	snapshot *ordereddict.Dict
}

// MappingReference is the reference the folder mapping keys this
// entry under. Extension records belong to their base record.
func (self *MFTEntry) MappingReference() EntryReference {
	if self.BaseReference.Entry != 0 {
		return self.BaseReference
	}
	return self.Reference
}

var fileNameRank = map[string]int{
	"Win32":     0,
	"DOS+Win32": 1,
	"POSIX":     2,
	"DOS":       3,
}

func rankFileName(name_type string) int {
	rank, pres := fileNameRank[name_type]
	if !pres {
		return len(fileNameRank)
	}
	return rank
}

// BestFileName prefers Win32 over Win32+DOS over POSIX over the DOS
// short name. Ties keep attribute order.
func (self *MFTEntry) BestFileName() *FileNameInfo {
	var result *FileNameInfo
	for _, fn := range self.FileNames {
		if result == nil || rankFileName(fn.NameType) < rankFileName(result.NameType) {
			result = fn
		}
	}
	return result
}

// Snapshot is the JSON representation of the entry used for
// differencing.
func (self *MFTEntry) Snapshot() *ordereddict.Dict {
	if self.snapshot == nil {
		return ordereddict.NewDict()
	}
	return self.snapshot
}

func (self *MFTEntry) DebugString() string {
	result := fmt.Sprintf("[MFTEntry] %v\n", self.Reference)
	result += fmt.Sprintf("  BaseReference: %v\n", self.BaseReference)
	result += fmt.Sprintf("  Allocated: %v\n", self.Allocated)
	result += fmt.Sprintf("  IsDir: %v\n", self.IsDir)
	for _, fn := range self.FileNames {
		result += fmt.Sprintf("  FileName: %v (%v) parent %v\n",
			fn.Name, fn.NameType, fn.Parent)
	}
	return result
}

// MFTDecoder turns a fixed up MFT record into an MFTEntry.
type MFTDecoder interface {
	Decode(entry int64, record []byte) (*MFTEntry, error)
}

// NTFSDecoder decodes records with the go-ntfs parser. There is no
// MFT behind the context: every record comes from the device.
type NTFSDecoder struct {
	ntfs *ntfs.NTFSContext
}

func NewNTFSDecoder(cluster_size, record_size int64) *NTFSDecoder {
	if cluster_size == 0 {
		cluster_size = DEFAULT_CLUSTER_SIZE
	}

	return &NTFSDecoder{
		ntfs: ntfs.GetNTFSContextFromRawMFT(
			bytes.NewReader(nil), cluster_size, record_size),
	}
}

func (self *NTFSDecoder) Decode(entry int64, record []byte) (result *MFTEntry, err error) {
	defer func() {
		r := recover()
		if r != nil {
			result = nil
			err = &DecodeError{Entry: entry, Err: fmt.Errorf("panic: %v", r)}
		}

		if err != nil {
			STATS.Inc_MFTEntryDecodeFail()
		} else {
			STATS.Inc_MFTEntry()
		}
	}()

	if len(record) < MFT_ENTRY_MIN_SIZE {
		return nil, &DecodeError{Entry: entry,
			Err: fmt.Errorf("record too short: %d bytes", len(record))}
	}

	if string(record[:4]) != "FILE" {
		return nil, &DecodeError{Entry: entry,
			Err: fmt.Errorf("invalid record signature %q", record[:4])}
	}

	reader := bytes.NewReader(record)
	mft_entry := self.ntfs.Profile.MFT_ENTRY(reader, 0)
	flags := mft_entry.Flags()

	result = &MFTEntry{
		Reference: EntryReference{
			Entry:    uint64(mft_entry.Record_number()),
			Sequence: mft_entry.Sequence_value(),
		},
		BaseReference: NewEntryReference(mft_entry.Base_record_reference()),
		Allocated:     flags.IsSet("ALLOCATED"),
		IsDir:         flags.IsSet("DIRECTORY"),
	}

	flag_names := []string{}
	if result.Allocated {
		flag_names = append(flag_names, "ALLOCATED")
	}
	if result.IsDir {
		flag_names = append(flag_names, "DIRECTORY")
	}

	header := ordereddict.NewDict().
		Set("record_number", result.Reference.Entry).
		Set("sequence", result.Reference.Sequence).
		Set("flags", flag_names).
		Set("base_reference", result.BaseReference).
		Set("logfile_sequence_number", mft_entry.Logfile_sequence_number()).
		Set("hard_link_count", mft_entry.Link_count()).
		Set("used_entry_size", mft_entry.Mft_entry_size()).
		Set("total_entry_size", mft_entry.Mft_entry_allocated()).
		Set("next_attribute_id", mft_entry.Next_attribute_id())

	attributes := ordereddict.NewDict()
	for _, attr := range mft_entry.EnumerateAttributes(self.ntfs) {
		type_name := attr.Type().Name
		key := attributeKey(type_name)

		instances, pres := attributes.Get(key)
		if !pres {
			instances = ordereddict.NewDict()
			attributes.Set(key, instances)
		}

		rendered := self.renderAttribute(attr)
		if type_name == "$FILE_NAME" && attr.IsResident() {
			fn := self.ntfs.Profile.FILE_NAME(attr.Data(self.ntfs), 0)
			result.FileNames = append(result.FileNames, &FileNameInfo{
				Name:     fn.Name(),
				NameType: fn.NameType().Name,
				Parent: EntryReference{
					Entry:    fn.MftReference(),
					Sequence: fn.Seq_num(),
				},
			})
		}

		instances.(*ordereddict.Dict).Set(
			fmt.Sprintf("%d", attr.Attribute_id()), rendered)
	}

	result.snapshot = ordereddict.NewDict().
		Set("header", header).
		Set("attributes", attributes)

	return result, nil
}

func (self *NTFSDecoder) renderAttribute(attr *ntfs.NTFS_ATTRIBUTE) *ordereddict.Dict {
	attr_type := attr.Type()

	header := ordereddict.NewDict().
		Set("type_code", attr_type.Value).
		Set("type_name", attr_type.Name).
		Set("instance", attr.Attribute_id()).
		Set("name", attr.Name()).
		Set("resident", attr.IsResident()).
		Set("data_size", attr.DataSize())

	result := ordereddict.NewDict().Set("header", header)

	// Non resident content lives in clusters we can not reach
	// through the file record.
	if !attr.IsResident() {
		return result.Set("data", nil)
	}

	switch attr_type.Name {
	case "$STANDARD_INFORMATION":
		si := self.ntfs.Profile.STANDARD_INFORMATION(attr.Data(self.ntfs), 0)
		result.Set("data", ordereddict.NewDict().
			Set("created", si.Create_time().Time).
			Set("modified", si.File_altered_time().Time).
			Set("mft_modified", si.Mft_altered_time().Time).
			Set("accessed", si.File_accessed_time().Time))

	case "$FILE_NAME":
		fn := self.ntfs.Profile.FILE_NAME(attr.Data(self.ntfs), 0)
		result.Set("data", ordereddict.NewDict().
			Set("parent", EntryReference{
				Entry:    fn.MftReference(),
				Sequence: fn.Seq_num(),
			}).
			Set("created", fn.Created().Time).
			Set("modified", fn.File_modified().Time).
			Set("mft_modified", fn.Mft_modified().Time).
			Set("accessed", fn.File_accessed().Time).
			Set("name_type", fn.NameType().Name).
			Set("name", fn.Name()))

	default:
		result.Set("data", ordereddict.NewDict().
			Set("size", attr.DataSize()))
	}

	return result
}

// $STANDARD_INFORMATION -> StandardInformation
func attributeKey(type_name string) string {
	parts := strings.Split(strings.TrimPrefix(type_name, "$"), "_")
	for idx, part := range parts {
		if part == "" {
			continue
		}
		parts[idx] = part[:1] + strings.ToLower(part[1:])
	}
	return strings.Join(parts, "")
}
