package main

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Loggers default to discarding until initLogging runs, so code under
// test can log freely without configuration.
var (
	coreLog  = silentEntry("core")
	pjsipLog = silentEntry("pjsip")
	logFile  *lumberjack.Logger
)

// sipMessages controls whether full SIP messages are logged.
var sipMessages bool

// initLogging configures per-subsystem loggers. The console hooks write
// to stderr: stdout belongs to the event protocol and must never carry
// log lines.
func initLogging(cfg *ini.File) error {
	sec := cfg.Section("logging")

	consoleMin := toLogrusLevel(sec.Key("console_min_level").MustInt(0))
	fileMin := toLogrusLevel(sec.Key("file_min_level").MustInt(0))

	logFile = &lumberjack.Logger{
		Filename:   "json2sip.log",
		MaxSize:    100, // megabytes
		MaxBackups: 1,
	}

	coreLog = newLogger("core", toLogrusLevel(sec.Key("core").MustInt(2)), consoleMin, fileMin, logFile)
	pjsipLog = newLogger("pjsip", toLogrusLevel(sec.Key("pjsip").MustInt(2)), consoleMin, fileMin, logFile)

	sipMessages = sec.Key("sip_messages").MustBool(true)
	if !sipMessages {
		// filter out verbose SIP message dumps
		pjsipLog.Logger.AddHook(&sipMessageFilterHook{})
	}
	return nil
}

// closeLogging flushes and closes log files.
func closeLogging() {
	if logFile != nil {
		_ = logFile.Close()
	}
}

// stackLogFunc adapts the SIP stack's leveled output onto pjsipLog.
func stackLogFunc(level int, msg string) {
	msg = strings.TrimRight(msg, "\r\n")
	switch {
	case level <= 1:
		pjsipLog.Error(msg)
	case level == 2:
		pjsipLog.Warn(msg)
	case level == 3:
		pjsipLog.Info(msg)
	default:
		pjsipLog.Debug(msg)
	}
}

// writerHook writes logs to the specified writer for provided levels.
type writerHook struct {
	Writer    io.Writer
	LogLevels []logrus.Level
}

func (h *writerHook) Fire(e *logrus.Entry) error {
	line, err := e.String()
	if err != nil {
		return err
	}
	_, err = h.Writer.Write([]byte(line))
	return err
}

func (h *writerHook) Levels() []logrus.Level {
	return h.LogLevels
}

func newLogger(name string, level, consoleMin, fileMin logrus.Level, file io.Writer) *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(io.Discard)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	logger.AddHook(&writerHook{Writer: os.Stderr, LogLevels: availableLevels(consoleMin)})
	logger.AddHook(&writerHook{Writer: file, LogLevels: availableLevels(fileMin)})
	return logger.WithField("name", name)
}

func silentEntry(name string) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger.WithField("name", name)
}

func availableLevels(min logrus.Level) []logrus.Level {
	levels := []logrus.Level{}
	for _, l := range logrus.AllLevels {
		if l <= min {
			levels = append(levels, l)
		}
	}
	return levels
}

func toLogrusLevel(v int) logrus.Level {
	switch {
	case v <= 0:
		return logrus.TraceLevel
	case v == 1:
		return logrus.DebugLevel
	case v == 2:
		return logrus.InfoLevel
	case v == 3:
		return logrus.WarnLevel
	case v == 4:
		return logrus.ErrorLevel
	case v == 5:
		return logrus.FatalLevel
	default:
		return logrus.PanicLevel // off
	}
}

// sipMessageFilterHook suppresses logging of full SIP messages when disabled via configuration.
type sipMessageFilterHook struct{}

func (h *sipMessageFilterHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *sipMessageFilterHook) Fire(e *logrus.Entry) error {
	if strings.Contains(e.Message, ".pjsua_core.c") || strings.HasPrefix(e.Message, "RX ") || strings.HasPrefix(e.Message, "TX ") {
		// elevate level so writer hooks ignore the entry
		e.Level = logrus.PanicLevel + 1
	}
	return nil
}
