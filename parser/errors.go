package parser

import (
	"fmt"
)

// DeviceError is returned when a device control call on the volume
// handle fails. Code is the OS error code.
type DeviceError struct {
	Op   string
	Code uint32
	Err  error
}

func (self *DeviceError) Error() string {
	if self.Err != nil {
		return fmt.Sprintf("%v: device error %#x: %v", self.Op, self.Code, self.Err)
	}
	return fmt.Sprintf("%v: device error %#x", self.Op, self.Code)
}

func (self *DeviceError) Unwrap() error {
	return self.Err
}

// The journal query returned a buffer of a size we do not know.
type InvalidJournalDataError struct {
	Size int
}

func (self *InvalidJournalDataError) Error() string {
	return fmt.Sprintf("Invalid journal data: unknown buffer size %d", self.Size)
}

type MalformedRecordBufferError struct {
	Offset int
	Reason string
}

func (self *MalformedRecordBufferError) Error() string {
	return fmt.Sprintf("Malformed record buffer at offset %d: %v",
		self.Offset, self.Reason)
}

// The MFT decoder failed to decode a record.
type DecodeError struct {
	Entry int64
	Err   error
}

func (self *DecodeError) Error() string {
	return fmt.Sprintf("Unable to decode MFT entry %d: %v", self.Entry, self.Err)
}

func (self *DecodeError) Unwrap() error {
	return self.Err
}

// The consumer of a listener went away.
type ChannelSendError struct {
	Usn int64
}

func (self *ChannelSendError) Error() string {
	return fmt.Sprintf("Unable to deliver record with usn %d: consumer gone", self.Usn)
}
