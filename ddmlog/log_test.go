package ddmlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/diskdevmgr/ddm/ddmerrors"
)

func TestSetLevelClamps(t *testing.T) {
	defer SetLevel(LevelInfo)

	SetLevel(0)
	if level != LevelError {
		t.Errorf("level = %d, want %d", level, LevelError)
	}

	SetLevel(99)
	if level != LevelVerbose {
		t.Errorf("level = %d, want %d", level, LevelVerbose)
	}

	SetLevel(LevelDebug)
	if level != LevelDebug {
		t.Errorf("level = %d, want %d", level, LevelDebug)
	}
}

func TestLevelStr(t *testing.T) {
	s, err := LevelStr(LevelDebug)
	if err != nil || s != "LevelDebug" {
		t.Errorf("LevelStr(LevelDebug) = %q, %v", s, err)
	}

	if _, err := LevelStr(999); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestSetOutputFileAndArchive(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "ddmd.log")

	fh, err := SetOutputFile(logFile)
	if err != nil {
		t.Fatalf("SetOutputFile: %v", err)
	}
	defer func() { _ = fh.Close() }()

	Info("hello %s", "world")

	archiveFile := filepath.Join(dir, "ddmd.log.archive")
	if err := ArchiveLogFile(archiveFile); err != nil {
		t.Fatalf("ArchiveLogFile: %v", err)
	}

	data, err := os.ReadFile(archiveFile)
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	if len(data) == 0 {
		t.Error("archived log file is empty")
	}
}

func TestArchiveWithoutOutputFails(t *testing.T) {
	filehandle = nil
	if err := ArchiveLogFile("/tmp/whatever"); err == nil {
		t.Error("expected error when no output file is set")
	}
}

func TestErrorErrorIncludesTrace(t *testing.T) {
	dir := t.TempDir()
	fh, err := SetOutputFile(filepath.Join(dir, "ddmd.log"))
	if err != nil {
		t.Fatalf("SetOutputFile: %v", err)
	}
	defer func() { _ = fh.Close() }()

	ErrorError(ddmerrors.New(ddmerrors.NotFound, "missing partition"))
}
