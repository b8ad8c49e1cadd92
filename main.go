// Command json2sip bridges telephone-call control and live call audio to
// a parent process: JSON commands in on stdin, JSON events out on
// stdout, one object per line. The SIP signaling and media transport
// live in the external stack behind the sipstack package.
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/ini.v1"

	"json2sip/sipstack"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := ini.LooseLoad("settings.ini")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load settings: %v\n", err)
		return 1
	}

	settings, err := LoadSettings(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse settings: %v\n", err)
		return 1
	}

	if err := initLogging(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		return 1
	}
	defer closeLogging()

	startMetrics(settings)

	publicAddr := settings.PublicAddress()
	if publicAddr == "" {
		if addr, err := detectHostIP(); err == nil {
			publicAddr = addr
		} else {
			coreLog.Debugf("no public address detected: %v", err)
		}
	}

	emitter := NewEmitter(os.Stdout)
	stack := sipstack.New(sipstack.Config{
		UserAgent:     settings.UserAgent(),
		MaxCalls:      settings.MaxCalls(),
		PublicAddress: publicAddr,
		LogLevel:      settings.StackLogLevel(),
		LogFunc:       stackLogFunc,
	})

	engine := NewEngine(stack, emitter, settings)
	if err := engine.Start(); err != nil {
		coreLog.Errorf("failed to start SIP engine: %v", err)
		emitter.Error("Failed to initialize SIP engine")
		return 1
	}

	emitter.Ready()
	coreLog.Info("engine ready, reading commands")

	readCommands(os.Stdin, engine, settings.MaxLineBytes())

	coreLog.Info("performing a graceful shutdown...")
	if err := engine.Close(); err != nil {
		coreLog.Warnf("shutdown error: %v", err)
	}
	return 0
}

// readCommands feeds the engine one line at a time until quit or the
// stream closes. An oversized line is drained and dropped so a single
// runaway command cannot end the session.
func readCommands(r io.Reader, engine *Engine, maxLine int) {
	reader := bufio.NewReaderSize(r, maxLine)
	for {
		line, oversized, err := readCommandLine(reader)
		if err != nil {
			if err != io.EOF {
				coreLog.Warnf("command stream error: %v", err)
			}
			return
		}
		if oversized {
			coreLog.Warnf("ignoring command line longer than %d bytes", maxLine)
			continue
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !engine.Handle(line) {
			return
		}
	}
}

// readCommandLine returns the next line, or oversized=true after
// draining a line that did not fit the reader's buffer.
func readCommandLine(r *bufio.Reader) ([]byte, bool, error) {
	line, isPrefix, err := r.ReadLine()
	if err != nil {
		return nil, false, err
	}
	if !isPrefix {
		return line, false, nil
	}
	for isPrefix {
		if _, isPrefix, err = r.ReadLine(); err != nil {
			return nil, true, err
		}
	}
	return nil, true, nil
}
