package main

import "errors"

// errExitSilently signals a non-zero exit whose explanation has already
// been printed (as diagnostics), so main should not print the error
// again itself.
var errExitSilently = errors.New("")
