package main

import (
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	kingpin "gopkg.in/alecthomas/kingpin.v2"
)

var (
	checkpoint_command = app.Command(
		"checkpoint", "Show or delete saved journal cursors.")

	checkpoint_command_path = checkpoint_command.Flag(
		"checkpoint_path", "Directory the cursors are kept in").String()

	checkpoint_command_delete = checkpoint_command.Flag(
		"delete", "Delete the cursor of this volume").String()
)

func doCheckpoint() {
	config_obj := loadConfig()
	if *checkpoint_command_path != "" {
		config_obj.USN.CheckpointPath = *checkpoint_command_path
	}

	store := openCheckpoint(config_obj.USN.CheckpointPath)
	if store == nil {
		kingpin.Fatalf("No checkpoint path specified")
	}
	defer store.Close()

	if *checkpoint_command_delete != "" {
		err := store.Delete(*checkpoint_command_delete)
		kingpin.FatalIfError(err, "Can not delete checkpoint")
		return
	}

	cursors, err := store.List()
	kingpin.FatalIfError(err, "Can not list checkpoints")

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Volume", "JournalID", "NextUsn", "Updated"})
	defer table.Render()

	for _, cursor := range cursors {
		table.Append([]string{
			cursor.Volume,
			fmt.Sprintf("%#x", cursor.JournalID),
			fmt.Sprintf("%#x", cursor.NextUsn),
			cursor.Updated.In(time.UTC).Format(time.RFC3339),
		})
	}
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case checkpoint_command.FullCommand():
			doCheckpoint()
		default:
			return false
		}
		return true
	})
}
