package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"testing"
	"time"

	"llamagate/pkg/types"
)

type gatewayProc struct {
	cmd  *exec.Cmd
	base string
	done chan error
}

// startBinary runs the real llamagate binary against the fake llama-server.
func startBinary(t *testing.T, models *modelsDir, extra ...string) *gatewayProc {
	t.Helper()
	bin := goBuild(t, "llamagate", "./cmd/llamagate")
	port := freePort(t)
	args := append([]string{
		"serve",
		"--addr", fmt.Sprintf("127.0.0.1:%d", port),
		"--models-dir", models.root,
		"--llama-bin", fakeLlama(t),
		"--llama-port", fmt.Sprint(freePort(t)),
		"--env-provider", "none",
		"--log-format", "json",
	}, extra...)
	cmd := exec.Command(bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start gateway: %v", err)
	}
	gp := &gatewayProc{cmd: cmd, base: fmt.Sprintf("http://127.0.0.1:%d", port), done: make(chan error, 1)}
	go func() { gp.done <- cmd.Wait() }()
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		<-gp.done
	})

	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := http.Get(gp.base + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("gateway did not come up in time")
		}
		time.Sleep(50 * time.Millisecond)
	}
	return gp
}

func waitReady(t *testing.T, base string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, _ := get(t, base+"/readyz")
		if resp.StatusCode == http.StatusOK {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("/readyz did not become ready; last=%d", resp.StatusCode)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestBlackbox_PreloadServeAndShutdown(t *testing.T) {
	models := newModelsDir(t)
	phi := models.add("library", "phi4", "latest")
	models.add("acme", "phi4", "latest")
	models.add("acme", "coder", "latest")
	gp := startBinary(t, models, "--default-model", "phi4", "--preload")

	waitReady(t, gp.base)

	resp, body := get(t, gp.base+"/api/tags")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/api/tags %d %s", resp.StatusCode, body)
	}
	var tags types.TagsResponse
	if err := json.Unmarshal(body, &tags); err != nil {
		t.Fatalf("json: %v", err)
	}
	var names []string
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	if strings.Join(names, ",") != "coder:latest,phi4:latest" {
		t.Fatalf("names = %v", names)
	}

	resp, body = get(t, gp.base+"/status")
	var st types.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("/status json: %v body=%s", err, body)
	}
	if st.Backend.State != "ready" || st.Backend.ModelPath != phi || st.Backend.PID == 0 {
		t.Fatalf("status = %+v", st.Backend)
	}

	resp, body = postJSON(t, gp.base+"/v1/chat/completions", `{"model":"phi4","messages":[]}`)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "chat.completion") {
		t.Fatalf("chat %d %s", resp.StatusCode, body)
	}

	resp, body = get(t, gp.base+"/metrics")
	if !strings.Contains(string(body), "llamagate_backend_starts_total") {
		t.Fatalf("metrics missing backend starts")
	}

	if err := gp.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("signal: %v", err)
	}
	select {
	case err := <-gp.done:
		gp.done <- err
		if err != nil {
			t.Fatalf("gateway exit: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("gateway did not exit after SIGTERM")
	}
	if !processGone(st.Backend.PID) {
		t.Fatalf("llama-server pid %d survived gateway shutdown", st.Backend.PID)
	}
}

func TestBlackbox_UnknownModel404(t *testing.T) {
	models := newModelsDir(t)
	models.add("library", "phi4", "latest")
	gp := startBinary(t, models, "--preload=false")

	resp, body := postJSON(t, gp.base+"/v1/chat/completions", `{"model":"missing"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d, body=%s", resp.StatusCode, body)
	}
	resp, _ = get(t, gp.base+"/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/readyz %d, want 503 with nothing started", resp.StatusCode)
	}
}
