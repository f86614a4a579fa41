package parser_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"www.velocidex.com/golang/ntfsmon/parser"
	"www.velocidex.com/golang/ntfsmon/vtesting"
	"www.velocidex.com/golang/ntfsmon/vtesting/goldie"
)

func helloRecord() vtesting.USNRecord {
	return vtesting.USNRecord{
		FileReference:   vtesting.FRN(200, 3),
		ParentReference: vtesting.FRN(100, 1),
		Usn:             4096,
		Reason:          parser.USN_REASON_FILE_CREATE | parser.USN_REASON_CLOSE,
		FileAttributes:  0x20,
		Name:            "hello.txt",
	}
}

func TestUSNRecordIterator(t *testing.T) {
	assert := assert.New(t)

	records := [][]byte{}
	for i := 0; i < 10; i++ {
		records = append(records, vtesting.BuildUSNRecord(vtesting.USNRecord{
			FileReference:   vtesting.FRN(uint64(1000+i), 1),
			ParentReference: vtesting.FRN(5, 5),
			Usn:             int64(0x100 * (i + 1)),
			Reason:          parser.USN_REASON_DATA_EXTEND,
			Name:            fmt.Sprintf("file%d.txt", i),
		}))
	}

	it, err := parser.NewUSNRecordIterator(
		vtesting.BuildReadOutput(0xb00, records...))
	require.NoError(t, err)
	assert.Equal(int64(0xb00), it.NextUsn())

	result, err := it.Records()
	require.NoError(t, err)
	require.Equal(t, 10, len(result))

	for i, record := range result {
		assert.Equal(uint64(1000+i), record.FileReference.Entry)
		assert.Equal(uint16(1), record.FileReference.Sequence)
		assert.True(record.ParentReference.IsRoot())
		assert.Equal(int64(0x100*(i+1)), record.Usn)
		assert.Equal(fmt.Sprintf("file%d.txt", i), record.FileName)
		assert.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), record.Timestamp)
	}

	// Exhausted iterators stay exhausted.
	assert.False(it.Next())
	assert.Nil(it.Record())
}

func TestUSNRecordIteratorCaughtUp(t *testing.T) {
	it, err := parser.NewUSNRecordIterator(vtesting.BuildReadOutput(0x4000))
	require.NoError(t, err)

	assert.Equal(t, int64(0x4000), it.NextUsn())
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}

func TestUSNRecordIteratorShortBuffer(t *testing.T) {
	_, err := parser.NewUSNRecordIterator([]byte{1, 2, 3})

	malformed := &parser.MalformedRecordBufferError{}
	assert.True(t, errors.As(err, &malformed))
}

func TestUSNRecordIteratorMalformed(t *testing.T) {
	assert := assert.New(t)
	good := vtesting.BuildUSNRecord(helloRecord())

	// A zero length record after a good one.
	buf := vtesting.BuildReadOutput(0x2000, good, make([]byte, 64))
	it, err := parser.NewUSNRecordIterator(buf)
	require.NoError(t, err)

	assert.True(it.Next())
	assert.Equal("hello.txt", it.Record().FileName)
	assert.False(it.Next())

	malformed := &parser.MalformedRecordBufferError{}
	assert.True(errors.As(it.Err(), &malformed))
	assert.Equal(8+len(good), malformed.Offset)

	// A record claiming more bytes than the buffer has.
	truncated := vtesting.BuildReadOutput(0x2000, good[:len(good)-8])
	it, err = parser.NewUSNRecordIterator(truncated)
	require.NoError(t, err)

	before := parser.STATS.MalformedBuffer
	assert.False(it.Next())
	assert.True(errors.As(it.Err(), &malformed))
	assert.Equal(8, malformed.Offset)

	// Calling Next again on a failed iterator does not count the
	// buffer twice.
	assert.False(it.Next())
	assert.Nil(it.Record())
	assert.Equal(before+1, parser.STATS.MalformedBuffer)
}

func TestUSNRecordVersions(t *testing.T) {
	assert := assert.New(t)

	v3 := helloRecord()
	v3.MajorVersion = 3
	v3.Usn = 8192
	v3.Name = "v3.txt"

	buf := vtesting.BuildReadOutput(0x3000,
		vtesting.BuildUSNRecord(helloRecord()),
		vtesting.BuildRangeTrackRecord(vtesting.FRN(200, 3), 6000),
		vtesting.BuildUSNRecord(v3))

	it, err := parser.NewUSNRecordIterator(buf)
	require.NoError(t, err)

	result, err := it.Records()
	require.NoError(t, err)

	// The range tracking record is skipped.
	require.Equal(t, 2, len(result))
	assert.Equal(uint16(2), result[0].MajorVersion)
	assert.Equal(uint16(3), result[1].MajorVersion)
	assert.Equal(int64(8192), result[1].Usn)
	assert.Equal("v3.txt", result[1].FileName)
	assert.Equal(parser.EntryReference{Entry: 200, Sequence: 3}, result[1].FileReference)
	assert.Equal(parser.EntryReference{Entry: 100, Sequence: 1}, result[1].ParentReference)
	assert.Equal(result[0].Reason, result[1].Reason)
	assert.Equal(result[0].FileAttributes, result[1].FileAttributes)
}

func TestUSNRecordFlags(t *testing.T) {
	assert := assert.New(t)

	it, err := parser.NewUSNRecordIterator(vtesting.BuildReadOutput(
		0x2000, vtesting.BuildUSNRecord(helloRecord())))
	require.NoError(t, err)
	require.True(t, it.Next())

	record := it.Record()
	assert.False(record.IsDirectory())
	assert.Equal([]string{"USN_REASON_FILE_CREATE", "USN_REASON_CLOSE"},
		record.Reasons())
	assert.Equal([]string{"FILE_ATTRIBUTE_ARCHIVE"},
		parser.FileAttributeNames(record.FileAttributes))

	mask, ok := parser.ParseReasonMask("file_create|USN_REASON_FILE_DELETE")
	assert.True(ok)
	assert.Equal(uint32(0x300), mask)

	_, ok = parser.ParseReasonMask("not_a_reason")
	assert.False(ok)
}

func TestUSNRecordSerialization(t *testing.T) {
	it, err := parser.NewUSNRecordIterator(vtesting.BuildReadOutput(
		0x2000, vtesting.BuildUSNRecord(helloRecord())))
	require.NoError(t, err)
	require.True(t, it.Next())

	goldie.AssertJson(t, "TestUSNRecordSerialization", it.Record().ToDict())
}

// A raw $J stream has sparse zero runs between records.
func TestParseUSNStream(t *testing.T) {
	assert := assert.New(t)

	stream := bytes.Buffer{}
	stream.Write(make([]byte, 4096))
	for i := 0; i < 3; i++ {
		stream.Write(vtesting.BuildUSNRecord(vtesting.USNRecord{
			FileReference:   vtesting.FRN(uint64(300+i), 2),
			ParentReference: vtesting.FRN(5, 5),
			Usn:             int64(4096 + i*0x100),
			Reason:          parser.USN_REASON_CLOSE,
			Name:            fmt.Sprintf("stream%d", i),
		}))
		stream.Write(make([]byte, 256))
	}

	data := stream.Bytes()
	names := []string{}
	for record := range parser.ParseUSNStream(context.Background(),
		bytes.NewReader(data), int64(len(data)), 0) {
		names = append(names, record.FileName)
	}

	assert.Equal([]string{"stream0", "stream1", "stream2"}, names, spew.Sdump(names))

	// Small pages split records across page boundaries.
	reader, err := parser.NewPagedReader(bytes.NewReader(data), 64, 4)
	require.NoError(t, err)

	paged := []string{}
	for record := range parser.ParseUSNStream(context.Background(),
		reader, int64(len(data)), 0) {
		paged = append(paged, record.FileName)
	}
	assert.Equal(names, paged)
}

func TestEntryReference(t *testing.T) {
	assert := assert.New(t)

	ref := parser.NewEntryReference(0x0005000000001234)
	assert.Equal(uint64(0x1234), ref.Entry)
	assert.Equal(uint16(5), ref.Sequence)
	assert.Equal(uint64(0x0005000000001234), ref.Value())
	assert.Equal("4660-5", ref.String())
	assert.False(ref.IsRoot())
	assert.True(parser.NewEntryReference(vtesting.FRN(5, 5)).IsRoot())
}

func init() {
	time.Local = time.UTC
	spew.Config.DisablePointerAddresses = true
	spew.Config.SortKeys = true
}
