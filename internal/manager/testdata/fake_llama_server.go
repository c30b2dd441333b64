package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"
)

// A stand-in for llama-server. FAKE_LLAMA_MODE selects a failure mode:
//
//	exit        write to stderr and exit 3 before listening
//	mute        never listen; wait for a signal
//	stubborn    like normal, but ignore SIGTERM
//
// FAKE_LLAMA_DELAY postpones listening by a duration such as "300ms".
func main() {
	var model, host, port, splitMode string
	var ctxSize, ngl, batch int
	flag.StringVar(&model, "m", "", "model path")
	flag.StringVar(&host, "host", "127.0.0.1", "host")
	flag.StringVar(&port, "port", "0", "port")
	flag.IntVar(&ctxSize, "ctx-size", 0, "context size")
	flag.IntVar(&ngl, "n-gpu-layers", 0, "gpu layers")
	flag.IntVar(&batch, "batch-size", 0, "batch size")
	flag.StringVar(&splitMode, "split-mode", "", "split mode")
	flag.Bool("flash-attn", false, "ignored")
	flag.Parse()

	mode := os.Getenv("FAKE_LLAMA_MODE")
	sigCh := make(chan os.Signal, 1)
	if mode == "stubborn" {
		signal.Ignore(syscall.SIGTERM)
		signal.Notify(sigCh, syscall.SIGINT)
	} else {
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	}

	switch mode {
	case "exit":
		fmt.Fprintln(os.Stderr, "error: failed to load model", model)
		os.Exit(3)
	case "mute":
		<-sigCh
		return
	}

	if d, err := time.ParseDuration(os.Getenv("FAKE_LLAMA_DELAY")); err == nil {
		time.Sleep(d)
	}

	args := os.Args[1:]
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/args", func(w http.ResponseWriter, r *http.Request) {
		env := map[string]string{}
		for _, k := range []string{"FAKE_LLAMA_MARK", "ONEAPI_ROOT"} {
			if v, ok := os.LookupEnv(k); ok {
				env[k] = v
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"model": model, "args": args, "env": env, "pid": os.Getpid()})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model  string `json:"model"`
			Stream bool   `json:"stream"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"object":  "chat.completion",
				"model":   model,
				"choices": []any{map[string]any{"message": map[string]string{"role": "assistant", "content": "hello"}}},
			})
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fl, _ := w.(http.Flusher)
		for _, tok := range []string{"hel", "lo"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", tok)
			if fl != nil {
				fl.Flush()
			}
			time.Sleep(20 * time.Millisecond)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		hdr := make([]string, 0, len(r.Header))
		for k := range r.Header {
			hdr = append(hdr, k)
		}
		sort.Strings(hdr)
		w.Header().Set("X-Fake-Model", model)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"method":  r.Method,
			"path":    r.URL.Path,
			"query":   r.URL.RawQuery,
			"host":    r.Host,
			"headers": hdr,
			"body":    string(body),
		})
	})

	ln, err := net.Listen("tcp", net.JoinHostPort(host, port))
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-sigCh
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
