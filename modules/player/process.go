package player

import (
	"io"
	"os/exec"
	"time"
)

// process wraps the external audio player. The player is a black box: it is
// handed the stream URL as its only argument, its output is discarded, and
// the only question ever asked of it is whether it is still running.
type process struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

// startProcess spawns the player. The returned process is already reaped in
// the background, so alive() never races with wait().
func startProcess(path, url string) (*process, error) {
	cmd := exec.Command(path, url)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &process{
		cmd:  cmd,
		done: make(chan struct{}),
	}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()

	return p, nil
}

// alive reports whether the player is still running.
func (p *process) alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// terminate kills the player and waits briefly for the exit to be reaped.
// The exit code is of no interest.
func (p *process) terminate() {
	if p.alive() {
		_ = p.cmd.Process.Kill()
	}
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
	}
}
