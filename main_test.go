package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSplitFlags(t *testing.T) {
	got, err := splitFlags(`-opt=1 -ldflags="-X main.x=a b"`)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"-opt=1", "-ldflags=-X main.x=a b"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("splitFlags returned %q, want %q", got, want)
	}
	if got, err := splitFlags(""); got != nil || err != nil {
		t.Errorf("splitFlags of an empty string returned %q, %v", got, err)
	}
}

func TestLoadProfile(t *testing.T) {
	p, err := loadProfile("unmatched", "")
	if err != nil || p.Name != "unmatched" {
		t.Errorf("loadProfile(unmatched) returned %+v, %v", p, err)
	}

	file := filepath.Join(t.TempDir(), "custom.yaml")
	data := "name: custom\ntarget: targets/gosbi-virt.json\nharts: 1\nload-address: 0x80000000\nsupervisor-entry: 0x80400000\n"
	if err := os.WriteFile(file, []byte(data), 0o666); err != nil {
		t.Fatal(err)
	}
	p, err = loadProfile("virt", file)
	if err != nil || p.Name != "custom" || p.SupervisorEntry != 0x80400000 {
		t.Errorf("loadProfile with a profile file returned %+v, %v", p, err)
	}
}

func TestRepoRoot(t *testing.T) {
	root, err := repoRoot()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(root, "targets", "gosbi.ld")); err != nil {
		t.Errorf("repoRoot returned %s, which has no linker script", root)
	}
}
