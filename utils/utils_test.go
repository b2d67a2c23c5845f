// Copyright © 2019 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

const testString = "Lorem ipsum dolor sit amet, consectetur adipiscing elit"

func TestExpandVariables(t *testing.T) {
	vars := map[string]string{
		"chrootDir": "/tmp/mydir",
		"ISCHOOT":   "1",
		"HOME":      "/root",
	}

	text := "[[ ${ISCHOOT} -eq 0 ]] && chroot ${chrootDir} ...."
	want := "[[ 1 -eq 0 ]] && chroot /tmp/mydir ...."
	if got := ExpandVariables(vars, text); got != want {
		t.Fatalf("ExpandVariables() = %q, want %q", got, want)
	}

	text = "$home ${Home} $HoME ...."
	if got := ExpandVariables(vars, text); got != text {
		t.Fatalf("case-sensitive expansion changed the string: %q", got)
	}
}

func TestCopyFile(t *testing.T) {
	fileSrc, err := os.CreateTemp("", "test_copy_file")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer func() {
		_ = fileSrc.Close()
		_ = os.Remove(fileSrc.Name())
	}()

	if _, err = fileSrc.Write([]byte(testString)); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	pathDest := filepath.Join(filepath.Dir(fileSrc.Name()), "test_copy_file_dest")
	defer func() { _ = os.Remove(pathDest) }()

	if err := CopyFile(fileSrc.Name(), pathDest); err != nil {
		t.Fatalf("CopyFile() error = %v", err)
	}
	if err := compareFiles(fileSrc.Name(), pathDest); err != nil {
		t.Error(err)
	}

	if err := CopyFile("", ""); err == nil {
		t.Fatal("CopyFile(\"\", \"\") expected an error")
	}
}

func compareFiles(pathSrc, pathDest string) error {
	statSrc, err := os.Stat(pathSrc)
	if err != nil {
		return fmt.Errorf("stat src: %v", err)
	}
	statDest, err := os.Stat(pathDest)
	if err != nil {
		return fmt.Errorf("stat dest: %v", err)
	}
	if statDest.Mode() != statSrc.Mode() {
		return errors.New("mode mismatch")
	}

	destData, err := os.ReadFile(pathDest)
	if err != nil {
		return fmt.Errorf("read dest: %v", err)
	}
	if string(destData) != testString {
		return errors.New("data mismatch")
	}

	return nil
}

func TestFileExists(t *testing.T) {
	ok, err := FileExists(os.Args[0])
	if err != nil || !ok {
		t.Errorf("FileExists(%q) = %v, %v; want true, nil", os.Args[0], ok, err)
	}

	ok, err = FileExists("/no/such/path/hopefully")
	if err != nil || ok {
		t.Errorf("FileExists() for missing path = %v, %v; want false, nil", ok, err)
	}
}

func TestStringAndIntSliceContains(t *testing.T) {
	if !StringSliceContains([]string{"a", "b"}, "b") {
		t.Error("expected StringSliceContains to find \"b\"")
	}
	if StringSliceContains([]string{"a", "b"}, "c") {
		t.Error("expected StringSliceContains to not find \"c\"")
	}
	if !IntSliceContains([]int{1, 2, 3}, 2) {
		t.Error("expected IntSliceContains to find 2")
	}
	if IntSliceContains([]int{1, 2, 3}, 9) {
		t.Error("expected IntSliceContains to not find 9")
	}
}

func TestMkdirAllIsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	if err := MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll second call: %v", err)
	}
}
