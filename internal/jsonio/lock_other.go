//go:build !unix && !windows

package jsonio

import "os"

// Platforms without advisory locks fall back to rename atomicity only.

func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) error { return nil }
