//go:build !profile

package profiler

import "fmt"

// No-op stand-ins when built without the "profile" tag.

func Init(capacity int) {}

func Start(name string) func() { return func() {} }

func Dump() (string, error) { return "", fmt.Errorf("profiler: built without the profile tag") }
