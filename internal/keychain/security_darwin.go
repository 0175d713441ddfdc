// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

//go:build darwin

package keychain

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

func isVerbose() bool {
	return os.Getenv("SUPERSETCTL_VERBOSE") == "1"
}

// securityBackend stores secrets with the macOS security command. Entries use
// ServiceName as the account and the key as the service.
type securityBackend struct{}

func newSecurityBackend() (*securityBackend, error) {
	if _, err := exec.LookPath("security"); err != nil {
		return nil, fmt.Errorf("security command not found: %w", err)
	}
	return &securityBackend{}, nil
}

func (s *securityBackend) run(args ...string) (string, string, error) {
	cmd := exec.Command("security", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if isVerbose() {
		fmt.Fprintf(os.Stderr, "[DEBUG] keychain: security %s for %q: err=%v\n", args[0], args[4], err)
	}
	return stdout.String(), stderr.String(), err
}

func notFound(stderr string) bool {
	return strings.Contains(stderr, "could not be found")
}

func (s *securityBackend) Set(key, value string) error {
	_ = s.Delete(key)
	// -U updates an entry that survived the delete.
	_, stderr, err := s.run("add-generic-password", "-a", ServiceName, "-s", key, "-w", value, "-U")
	if err != nil {
		return fmt.Errorf("store %q in keychain: %s: %w", key, strings.TrimSpace(stderr), err)
	}
	return nil
}

func (s *securityBackend) Get(key string) (string, error) {
	stdout, stderr, err := s.run("find-generic-password", "-a", ServiceName, "-s", key, "-w")
	if err != nil {
		if notFound(stderr) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read %q from keychain: %s: %w", key, strings.TrimSpace(stderr), err)
	}
	return strings.TrimSpace(stdout), nil
}

func (s *securityBackend) Delete(key string) error {
	_, stderr, err := s.run("delete-generic-password", "-a", ServiceName, "-s", key)
	if err != nil && !notFound(stderr) {
		return fmt.Errorf("delete %q from keychain: %s: %w", key, strings.TrimSpace(stderr), err)
	}
	return nil
}
