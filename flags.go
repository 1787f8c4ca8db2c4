package main

import "github.com/google/shlex"

// splitFlags splits a flag value holding several arguments the way a shell
// would.
func splitFlags(value string) ([]string, error) {
	if value == "" {
		return nil, nil
	}
	return shlex.Split(value)
}
