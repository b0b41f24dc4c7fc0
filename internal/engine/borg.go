package engine

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/juju/loggo/v2"

	"borgsched/internal/secret"
)

const DefaultGrace = 10 * time.Second

// Borg invokes a borg-compatible backup engine as a subprocess. It is
// a dispatcher plus decoder: the only side effect is whatever the
// operation itself does to the repository.
type Borg struct {
	Path  string
	Grace time.Duration

	logger loggo.Logger
}

func NewBorg(path string, grace time.Duration) *Borg {
	if path == "" {
		path = "borg"
	}
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Borg{
		Path:   path,
		Grace:  grace,
		logger: loggo.GetLogger("borgsched.engine"),
	}
}

func (b *Borg) Invoke(ctx context.Context, op Operation, creds *secret.Credentials, args []string, timeout time.Duration) (*Result, error) {
	start := time.Now()

	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	argv := append([]string{string(op)}, args...)
	cmd := exec.Command(b.Path, argv...)
	cmd.Env = minimalEnv(creds)
	// Own process group so termination reaches ssh and other children.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		return nil, &Error{Kind: KindSpawn, Op: op, Status: -1, Summary: err.Error()}
	}

	buf := &lineBuffer{}
	decodeDone := make(chan struct{})
	go func() {
		defer close(decodeDone)
		_ = buf.decodeLines(pr, func(line string, mangled bool) {
			b.logger.Debugf("%s: %s", op, line)
		})
	}()

	waitDone := make(chan error, 1)
	exited := make(chan struct{})
	go func() {
		waitDone <- cmd.Wait()
		close(exited)
	}()

	var waitErr error
	interrupted := false
	select {
	case waitErr = <-waitDone:
	case <-runCtx.Done():
		interrupted = true
		b.terminate(cmd.Process.Pid, exited)
		waitErr = <-waitDone
	}
	pw.Close()
	<-decodeDone

	res := &Result{
		Lines:          append([]string(nil), buf.lines...),
		Duration:       time.Since(start),
		DecodeWarnings: buf.decodeWarnings,
	}
	res.ExitStatus = exitStatus(waitErr)
	res.Warning = res.ExitStatus == exitWarning

	if interrupted {
		if ctx.Err() != nil {
			// Shutdown or reload cancellation, not a timeout.
			return res, ctx.Err()
		}
		return res, &Error{Kind: KindTimeout, Op: op, Status: res.ExitStatus, Summary: "operation timed out", Transient: true}
	}
	if engErr := Classify(op, res.ExitStatus, res.Lines); engErr != nil {
		return res, engErr
	}
	return res, nil
}

// terminate asks the process group to exit, then kills it after the
// grace period. Grace matters: the engine writes a checkpoint on
// SIGTERM but not on SIGKILL.
func (b *Borg) terminate(pid int, exited <-chan struct{}) {
	_ = syscall.Kill(-pid, syscall.SIGTERM)
	select {
	case <-exited:
	case <-time.After(b.Grace):
		b.logger.Warningf("engine ignored SIGTERM for %s, killing process group", b.Grace)
		_ = syscall.Kill(-pid, syscall.SIGKILL)
	}
}

func exitStatus(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

// minimalEnv builds the environment for exactly one invocation: the
// repository URL, its passphrase, its transport identity, and nothing
// belonging to any other job. The two ACCESS_IS_OK guards make the
// engine fail fast instead of waiting for an answer nobody will give.
func minimalEnv(creds *secret.Credentials) []string {
	env := []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + os.Getenv("HOME"),
		"BORG_REPO=" + creds.RepoURL,
		"BORG_PASSPHRASE=" + creds.Passphrase,
		"BORG_RELOCATED_REPO_ACCESS_IS_OK=no",
		"BORG_UNKNOWN_UNENCRYPTED_REPO_ACCESS_IS_OK=no",
	}
	rsh := "ssh -oBatchMode=yes"
	if creds.SSHKeyFile != "" {
		rsh += " -i " + creds.SSHKeyFile
	}
	return append(env, "BORG_RSH="+rsh)
}

var _ Invoker = (*Borg)(nil)
