package deploy

import (
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/SSE4/conan-deploy-tool/pkg/errors"
)

// LauncherOptions describes the entry-point script to generate.
type LauncherOptions struct {
	// LibDirs and BinDirs are bundle-relative directories, already sorted.
	// Their order is the runtime search precedence.
	LibDirs []string
	BinDirs []string
	// BaseVar is the textual shell reference the script prefixes every
	// directory with (e.g. "$APPDIR/usr/bin" or "/app"). It is emitted
	// verbatim and resolved only when the script runs.
	BaseVar string
	// BaseInit, when non-empty, is a line emitted before the exports,
	// typically defining the variable referenced by BaseVar.
	BaseInit string
	// Executable is the bundle-relative path (slash-separated) of the
	// binary to launch.
	Executable string
}

// Script renders the POSIX launcher. Output is deterministic: identical
// options produce byte-identical scripts.
func Script(opts LauncherOptions) []byte {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	if opts.BaseInit != "" {
		b.WriteString(opts.BaseInit)
		b.WriteString("\n")
	}
	writeExport(&b, "PATH", opts.BaseVar, opts.BinDirs)
	writeExport(&b, "LD_LIBRARY_PATH", opts.BaseVar, opts.LibDirs)

	// Run the executable from its own directory so its relative library
	// lookups resolve, then return to wherever the caller was.
	execDir := opts.BaseVar
	if dir := path.Dir(opts.Executable); dir != "." {
		execDir += "/" + dir
	}
	b.WriteString("cd " + execDir + "\n")
	b.WriteString("./" + path.Base(opts.Executable) + " \"$@\"\n")
	b.WriteString("cd - > /dev/null\n")
	return []byte(b.String())
}

func writeExport(b *strings.Builder, name, baseVar string, dirs []string) {
	if len(dirs) == 0 {
		return
	}
	b.WriteString("export " + name + "=$" + name)
	for _, dir := range dirs {
		b.WriteString(":" + baseVar + "/" + dir)
	}
	b.WriteString("\n")
}

// WriteLauncher renders the script to path and marks it executable.
func WriteLauncher(fsys afero.Fs, scriptPath string, opts LauncherOptions) error {
	if err := afero.WriteFile(fsys, scriptPath, Script(opts), 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrLauncherWrite, "writing launcher %s", scriptPath)
	}
	if err := fsys.Chmod(scriptPath, 0o755); err != nil {
		return errors.Wrapf(err, errors.ErrLauncherWrite, "marking %s executable", scriptPath)
	}
	return nil
}
