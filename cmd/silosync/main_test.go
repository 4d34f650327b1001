package main

import (
	"errors"
	"testing"

	"github.com/fruitsalade/silosync/internal/faults"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{faults.Validationf("setup", "bad"), 2},
		{faults.Wrap(faults.NotFoundf("delete", "no path"), "cli"), 3},
		{faults.Remote("Folder.Create", errors.New("quota")), 4},
		{faults.Transportf("Project.GetAll", nil, "timeout"), 4},
		{errors.New("boom"), 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{errors.New("boom"), "Error: boom"},
		{faults.Validationf("setup", "bad output"), "ValidationError: setup: bad output"},
		{
			faults.Wrap(faults.Remote("Folder.Create", errors.New("quota exceeded")), "create folder"),
			"RemoteCallError: create folder: quota exceeded (method Folder.Create)",
		},
	}
	for _, tt := range tests {
		if got := describe(tt.err); got != tt.want {
			t.Errorf("describe() = %q, want %q", got, tt.want)
		}
	}
}
