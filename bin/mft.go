package main

import (
	kingpin "gopkg.in/alecthomas/kingpin.v2"
	"www.velocidex.com/golang/ntfsmon/live"
)

var (
	listen_mft_command = app.Command(
		"listen_mft", "Report changes to the MFT entry of a file.")

	listen_mft_command_path = listen_mft_command.Arg(
		"path", "The file or directory to watch",
	).Required().String()

	listen_mft_command_pretty = listen_mft_command.Flag(
		"pretty", "Indent the output").Bool()

	snapshot_command = app.Command(
		"snapshot", "Show the decoded MFT entry of a file.")

	snapshot_command_path = snapshot_command.Arg(
		"path", "The file or directory to show",
	).Required().String()
)

func newEntryListener(path string) *live.MFTEntryListener {
	config_obj := loadConfig()

	options := live.EntryListenerOptions{
		Volume:   config_obj.USN.ParserOptions(),
		Listener: listenerOptions(config_obj),
	}

	listener, err := live.NewMFTEntryListener(path, options)
	kingpin.FatalIfError(err, "Can not open %v", path)
	return listener
}

func doListenMFT() {
	listener := newEntryListener(*listen_mft_command_path)
	defer listener.Close()

	ctx, cancel := signalContext()
	defer cancel()

	output, err := listener.Listen(ctx)
	kingpin.FatalIfError(err, "Can not listen to %v", *listen_mft_command_path)

	for diff := range output {
		printJson(diff, *listen_mft_command_pretty)
	}

	if ctx.Err() == nil {
		kingpin.FatalIfError(listener.Err(), "Listener failed")
	}
}

func doSnapshot() {
	listener := newEntryListener(*snapshot_command_path)
	defer listener.Close()

	snapshot, err := listener.GetCurrentValue()
	kingpin.FatalIfError(err, "Can not decode %v", *snapshot_command_path)

	printJson(snapshot, true)
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case listen_mft_command.FullCommand():
			doListenMFT()
		case snapshot_command.FullCommand():
			doSnapshot()
		default:
			return false
		}
		return true
	})
}
