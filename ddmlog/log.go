// Package ddmlog is the daemon's leveled logger: a thin tag-prefixed
// wrapper around the standard logger that also mirrors entries to the
// systemd journal when running under systemd, and collapses runs of
// identical lines the way a long-lived daemon's log needs to.
package ddmlog

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/coreos/go-systemd/v22/journal"

	"github.com/diskdevmgr/ddm/ddmerrors"
)

const (
	// LevelError logs only errors.
	LevelError = 1
	// LevelWarning logs warnings and errors.
	LevelWarning = 2
	// LevelInfo logs informational messages and above.
	LevelInfo = 3
	// LevelDebug logs debug detail and above.
	LevelDebug = 4
	// LevelVerbose is Debug without repeat-line collapsing.
	LevelVerbose = 5
)

var levelNames = map[int]string{
	LevelError:   "LevelError",
	LevelWarning: "LevelWarning",
	LevelInfo:    "LevelInfo",
	LevelDebug:   "LevelDebug",
	LevelVerbose: "LevelVerbose",
}

var (
	level      = LevelInfo
	filehandle *os.File

	logFileName string

	useJournal bool

	lineLast  string
	lineCount int
)

// SetLevel sets the active log level, clamping out-of-range values.
func SetLevel(l int) {
	if l < LevelError {
		level = LevelError
		logTag("WRN", "log level %d too low, forcing to %s (%d)", l, levelNames[level], level)
	} else if l > LevelVerbose {
		level = LevelVerbose
		logTag("WRN", "log level %d too high, forcing to %s (%d)", l, levelNames[level], level)
	} else {
		level = l
		Debug("log level set to %s (%d)", levelNames[level], l)
	}
}

// UseJournal enables or disables mirroring entries to the systemd
// journal in addition to the regular output writer.
func UseJournal(enabled bool) {
	useJournal = enabled && journal.Enabled()
}

// NotifyReady tells systemd (via sd_notify) that the daemon has
// finished startup and is ready to serve the boundary API. It is a
// no-op outside of a systemd-managed unit.
func NotifyReady() error {
	_, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	return err
}

// NotifyStopping tells systemd the daemon is shutting down.
func NotifyStopping() error {
	_, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	return err
}

// SetOutputFile directs log output to logFile instead of stderr.
func SetOutputFile(logFile string) (*os.File, error) {
	logFileName = logFile

	var err error
	filehandle, err = os.OpenFile(logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	log.SetOutput(filehandle)

	return filehandle, nil
}

// ArchiveLogFile copies the current log file's contents to archiveFile.
func ArchiveLogFile(archiveFile string) error {
	if filehandle == nil {
		return ddmerrors.Errorf("log output not set, see ddmlog.SetOutputFile()")
	}

	a, err := os.OpenFile(archiveFile, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return err
	}

	defer func() {
		_ = a.Close()
		_, _ = filehandle.Seek(0, io.SeekEnd)
	}()

	_ = filehandle.Sync()

	if _, err = filehandle.Seek(0, io.SeekStart); err != nil {
		Error("failed to seek log file (%v)", err)
		return err
	}

	n, err := io.Copy(a, filehandle)
	if err != nil {
		Error("failed to archive log file (%v) %q", err, archiveFile)
		return err
	}
	Debug("archived %d bytes to %q", n, archiveFile)

	return a.Sync()
}

// LevelStr converts a level constant to its text name.
func LevelStr(l int) (string, error) {
	if s, ok := levelNames[l]; ok {
		return s, nil
	}
	return "", fmt.Errorf("invalid log level: %d", l)
}

func journalPriority(tag string) journal.Priority {
	switch tag {
	case "ERR":
		return journal.PriErr
	case "WRN":
		return journal.PriWarning
	case "DBG":
		return journal.PriDebug
	default:
		return journal.PriInfo
	}
}

func logTag(tag string, format string, a ...interface{}) {
	f := fmt.Sprintf("[%s] %s\n", tag, format)
	output := fmt.Sprintf(f, a...)

	if useJournal {
		_ = journal.Send(fmt.Sprintf(format, a...), journalPriority(tag), nil)
	}

	if level >= LevelVerbose {
		log.Print(output)
		return
	}

	if output != lineLast {
		if lineCount > 0 {
			plural := ""
			if lineCount > 1 {
				plural = "s"
			}
			log.Printf("[%s] [Previous line repeated %d time%s]\n", tag, lineCount, plural)
		}

		log.Print(output)

		lineLast = output
		lineCount = 0
	} else {
		lineCount++
	}
}

// Debug logs at LevelDebug with the DBG tag.
func Debug(format string, a ...interface{}) {
	if level < LevelDebug {
		return
	}
	logTag("DBG", format, a...)
}

// Error logs at any level with the ERR tag.
func Error(format string, a ...interface{}) {
	logTag("ERR", format, a...)
}

// ErrorError logs err with the ERR tag, including trace information
// when err is a ddmerrors.TraceableError.
func ErrorError(err error) {
	msg := err.Error()

	if e, ok := err.(ddmerrors.TraceableError); ok {
		msg = fmt.Sprintf("%s: %s%s", e.Kind, e.What, e.Trace)
	}

	logTag("ERR", msg)
}

// Info logs at LevelInfo with the INF tag.
func Info(format string, a ...interface{}) {
	if level < LevelInfo {
		return
	}
	logTag("INF", format, a...)
}

// Warning logs at LevelWarning with the WRN tag.
func Warning(format string, a ...interface{}) {
	if level < LevelWarning {
		return
	}
	logTag("WRN", format, a...)
}
