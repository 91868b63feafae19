// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"log"
	"os"

	"github.com/integrii/flaggy"

	"github.com/relabs-tech/gesture_lock/internal/app"
	"github.com/relabs-tech/gesture_lock/internal/config"
)

// AppName is the app name
const AppName = "gesturelock"

// AppDesc is the app description
const AppDesc = "Gyroscope gesture lock"

var version = "unknown"

type options struct {
	configPath string

	recordName string
	recordOut  string

	passkeyPath string
	attemptPath string
}

func main() {
	opts := options{
		configPath: "gesture_config.txt",
		recordName: "gesture",
		recordOut:  "gesture.yaml",
	}

	parser := flaggy.NewParser(AppName)
	parser.Description = AppDesc
	parser.Version = version
	parser.String(&opts.configPath, "c", "config", "path to the KEY=VALUE config file")

	runCmd := flaggy.NewSubcommand("run")
	runCmd.Description = "run the unlock state machine"
	parser.AttachSubcommand(runCmd, 1)

	recordCmd := flaggy.NewSubcommand("record")
	recordCmd.Description = "capture one gesture to a YAML file"
	recordCmd.String(&opts.recordName, "n", "name", "name stored in the recording")
	recordCmd.String(&opts.recordOut, "o", "out", "output file")
	parser.AttachSubcommand(recordCmd, 1)

	scoreCmd := flaggy.NewSubcommand("score")
	scoreCmd.Description = "compare two recorded gestures"
	scoreCmd.AddPositionalValue(&opts.passkeyPath, "passkey", 1, true, "recorded passkey")
	scoreCmd.AddPositionalValue(&opts.attemptPath, "attempt", 2, true, "recorded attempt")
	parser.AttachSubcommand(scoreCmd, 1)

	registersCmd := flaggy.NewSubcommand("registers")
	registersCmd.ShortName = "regs"
	registersCmd.Description = "dump the gyroscope register map over SPI"
	parser.AttachSubcommand(registersCmd, 1)

	chk(parser.Parse(), "failed to parse arguments")

	if !runCmd.Used && !recordCmd.Used && !scoreCmd.Used && !registersCmd.Used {
		parser.ShowHelpAndExit("a subcommand is required")
	}

	chk(config.InitGlobal(opts.configPath), "failed to load config")

	switch {
	case runCmd.Used:
		log.Println("starting gesture lock")
		chk(app.RunLock(), "fatal")
	case recordCmd.Used:
		chk(app.RunRecord(opts.recordName, opts.recordOut), "record failed")
	case scoreCmd.Used:
		chk(app.RunScore(opts.passkeyPath, opts.attemptPath), "score failed")
	case registersCmd.Used:
		chk(app.RunRegisters(os.Stdout), "register dump failed")
	}
}

func chk(err error, wrap string) {
	if err != nil {
		log.Fatalf("%s: %v", wrap, err)
	}
}
