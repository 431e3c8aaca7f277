package main

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

// TestMain registers this test binary itself as the "optexc" command inside
// testscript's scripted shell, so `exec optexc ...` in testdata/script/*.txt
// runs the real CLI dispatcher in-process rather than requiring a prebuilt
// binary on PATH.
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"optexc": func() int { return run(os.Args[1:]) },
	}))
}

func TestCLIScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
	})
}
