// Copyright 2026 The Deppth Authors
// SPDX-License-Identifier: Apache-2.0

package patch

import "log/slog"

// Observer receives merge decisions as they are made. Events describe
// the merge plan; they are delivered before the output is written.
type Observer interface {
	// EntryKept reports a base entry no patch replaced.
	EntryKept(name string)

	// EntryReplaced reports an existing entry replaced by the patch at
	// patchPath. A name replaced by several patches is reported once
	// per patch.
	EntryReplaced(name, patchPath string)

	// EntryAppended reports a name first introduced by the patch at
	// patchPath.
	EntryAppended(name, patchPath string)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) EntryKept(string)             {}
func (NopObserver) EntryReplaced(string, string) {}
func (NopObserver) EntryAppended(string, string) {}

// SlogObserver returns an observer that logs replacements and
// additions at info level and kept entries at debug level.
func SlogObserver(logger *slog.Logger) Observer {
	return &slogObserver{logger: logger}
}

type slogObserver struct {
	logger *slog.Logger
}

func (o *slogObserver) EntryKept(name string) {
	o.logger.Debug("entry kept", "entry", name)
}

func (o *slogObserver) EntryReplaced(name, patchPath string) {
	o.logger.Info("entry replaced", "entry", name, "patch", patchPath)
}

func (o *slogObserver) EntryAppended(name, patchPath string) {
	o.logger.Info("entry appended", "entry", name, "patch", patchPath)
}
