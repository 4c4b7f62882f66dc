package main

import (
	"context"
	"errors"
	"fmt"
)

const (
	exitCodeFailure  = 1
	exitCodeConfig   = 2
	exitCodeCanceled = 130
)

// exitError carries a process exit code through cobra's error return.
// Silent errors have already been reported to the user.
type exitError struct {
	code   int
	err    error
	silent bool
}

func (e *exitError) Error() string {
	if e == nil {
		return ""
	}
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit %d", e.code)
}

func (e *exitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

func configError(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: exitCodeConfig, err: err}
}

// exitCode maps err to the process exit code and the error worth reporting.
func exitCode(err error) (int, bool, error) {
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			return ee.code, ee.silent, ee.err
		}
		return ee.code, ee.silent, err
	}
	if errors.Is(err, context.Canceled) {
		return exitCodeCanceled, false, err
	}
	return exitCodeFailure, false, err
}
