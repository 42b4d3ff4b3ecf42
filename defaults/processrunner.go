package defaults

import (
	"context"
	"os/exec"

	"github.com/websocks/agent/collab"
	wslog "github.com/websocks/agent/log"
)

// ExecProcessRunner implements collab.ProcessRunner over os/exec. Spawned
// programs are detached background tasks: their stdout/stderr
// is tee'd to the agent log and their exit is logged, but never awaited by
// the caller.
type ExecProcessRunner struct{}

type execProcess struct {
	cmd      *exec.Cmd
	onExitCb func(error)
}

func (p *execProcess) OnExit(cb func(error)) {
	p.onExitCb = cb
}

// Spawn starts commandLine through "sh -c", piping output to the agent
// logger and reporting its eventual exit.
func (ExecProcessRunner) Spawn(ctx context.Context, commandLine string) (collab.Process, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", commandLine)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	proc := &execProcess{cmd: cmd}
	go pipeToLog(commandLine, "stdout", stdout)
	go pipeToLog(commandLine, "stderr", stderr)
	go func() {
		err := cmd.Wait()
		wslog.Infoln("server program %q exited: %v", commandLine, err)
		if proc.onExitCb != nil {
			proc.onExitCb(err)
		}
	}()

	return proc, nil
}

func pipeToLog(commandLine, stream string, r interface{ Read([]byte) (int, error) }) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			wslog.Debugln("%s [%s]: %s", commandLine, stream, string(buf[:n]))
		}
		if err != nil {
			return
		}
	}
}
