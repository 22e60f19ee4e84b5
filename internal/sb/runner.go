package sb

import "context"

// Runner executes a command on a remote host and returns its stdout.
// Implementations must return an error that carries the command's exit
// status and captured stderr when the command fails. The context cancels
// the command mid-flight; maintenance re-enable paths deliberately run
// with a fresh context so cleanup survives interrupts.
type Runner interface {
	Run(ctx context.Context, host string, command string) ([]byte, error)
}
