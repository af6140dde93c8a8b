// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package services

import (
	"context"

	"github.com/thejerf/suture/v4"
)

// ContextRunner is a background loop that runs until its context ends.
// The websocket hub, session sweeper, activity GC and event consumer all
// satisfy it.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// RunnerService adapts a ContextRunner to suture.Service under a name
// used in supervisor logs.
type RunnerService struct {
	runner ContextRunner
	name   string
}

// NewRunnerService wraps runner.
func NewRunnerService(name string, runner ContextRunner) *RunnerService {
	return &RunnerService{runner: runner, name: name}
}

// Serve implements suture.Service. A loop that returns nil before
// shutdown is reported as done so suture does not restart it.
func (s *RunnerService) Serve(ctx context.Context) error {
	err := s.runner.RunWithContext(ctx)
	if err == nil && ctx.Err() == nil {
		return suture.ErrDoNotRestart
	}
	return err
}

func (s *RunnerService) String() string {
	return s.name
}
