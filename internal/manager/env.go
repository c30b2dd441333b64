package manager

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	shellwords "github.com/mattn/go-shellwords"
)

// DefaultShell runs the environment script.
const DefaultShell = "bash -c"

// DefaultEnvScript loads the Intel oneAPI runtime and dumps the result.
const DefaultEnvScript = "source /opt/intel/oneapi/setvars.sh --force > /dev/null 2>&1 && env"

// EnvironmentProvider supplies extra variables for the llama-server process.
// It is called once per start attempt; the result is merged over the
// gateway's own environment.
type EnvironmentProvider interface {
	Environ(ctx context.Context) (map[string]string, error)
}

// NoopProvider adds nothing.
type NoopProvider struct{}

func (NoopProvider) Environ(context.Context) (map[string]string, error) { return nil, nil }

// StaticProvider returns a fixed set of variables.
type StaticProvider map[string]string

func (s StaticProvider) Environ(context.Context) (map[string]string, error) {
	out := make(map[string]string, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out, nil
}

// ShellProvider runs Script under Shell and parses KEY=VALUE lines from its
// stdout. Shell is a command line such as "bash -c".
type ShellProvider struct {
	Shell  string
	Script string
}

func (p ShellProvider) Environ(ctx context.Context) (map[string]string, error) {
	shell := p.Shell
	if strings.TrimSpace(shell) == "" {
		shell = DefaultShell
	}
	script := p.Script
	if strings.TrimSpace(script) == "" {
		script = DefaultEnvScript
	}
	argv, err := shellwords.Parse(shell)
	if err != nil {
		return nil, &EnvironmentProviderError{Provider: "shell", Err: fmt.Errorf("parse shell %q: %w", shell, err)}
	}
	if len(argv) == 0 {
		return nil, &EnvironmentProviderError{Provider: "shell", Err: errors.New("empty shell")}
	}
	argv = append(argv, script)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if tail := strings.TrimSpace(stderr.String()); tail != "" {
			err = fmt.Errorf("%w: %s", err, tail)
		}
		return nil, &EnvironmentProviderError{Provider: "shell", Err: err}
	}
	return parseEnvLines(out), nil
}

// parseEnvLines splits each line on its first '='; lines without one are skipped.
func parseEnvLines(b []byte) map[string]string {
	env := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		k, v, ok := strings.Cut(sc.Text(), "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// FileProvider reads variables from a dotenv file.
type FileProvider struct {
	Path string
}

func (p FileProvider) Environ(context.Context) (map[string]string, error) {
	env, err := godotenv.Read(p.Path)
	if err != nil {
		return nil, &EnvironmentProviderError{Provider: "file", Err: err}
	}
	return env, nil
}

// ChainProvider merges providers in order; later ones win on conflicts.
// The first error aborts the chain.
type ChainProvider []EnvironmentProvider

func (c ChainProvider) Environ(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	for _, p := range c {
		if p == nil {
			continue
		}
		env, err := p.Environ(ctx)
		if err != nil {
			return nil, err
		}
		for k, v := range env {
			out[k] = v
		}
	}
	return out, nil
}

// mergeEnviron overlays extra onto base (KEY=VALUE form). Keys from extra
// replace those in base; the result is sorted for stable process listings.
func mergeEnviron(base []string, extra map[string]string) []string {
	merged := make(map[string]string, len(base)+len(extra))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}
	for k, v := range extra {
		merged[k] = v
	}
	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

func processEnviron(ctx context.Context, p EnvironmentProvider) ([]string, error) {
	extra, err := p.Environ(ctx)
	if err != nil {
		if !IsEnvironmentError(err) {
			err = &EnvironmentProviderError{Provider: fmt.Sprintf("%T", p), Err: err}
		}
		return nil, err
	}
	return mergeEnviron(os.Environ(), extra), nil
}
