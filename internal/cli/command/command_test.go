package command

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/evant/instance-state/internal/core/service"
	"github.com/evant/instance-state/internal/server/localserver"
	"github.com/evant/instance-state/internal/server/msgserver"
	"github.com/evant/instance-state/internal/telemetry/logger"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(*cli.Context, error) {}

	base := []string{"instancestate-cli", "--config", filepath.Join(t.TempDir(), "missing.yaml")}
	err := app.Run(append(base, args...))
	return out.String(), err
}

func startMessageServer(t *testing.T, store *service.StateStore) string {
	t.Helper()
	cfg := msgserver.DefaultConfig()
	cfg.Address = "127.0.0.1:0"
	s := msgserver.New(cfg, service.NewDispatcher(store, service.WithAckMutations(true)))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})
	return s.Addr().String()
}

func startLocalServer(t *testing.T, store *service.StateStore) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.sock")
	h := localserver.NewHandler(localserver.Deps{
		Store:     store,
		StartedAt: time.Now(),
	})
	s := localserver.New(path, h, logger.Default())
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	go s.Serve(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})
	return path
}

func TestEncodeDecode(t *testing.T) {
	out, err := run(t, "encode", "set", "k", "v")
	if err != nil {
		t.Fatalf("encode error = %v", err)
	}
	want := "01016b0000000000" + "76"
	if got := strings.TrimSpace(out); got != want {
		t.Fatalf("encode = %s, want %s", got, want)
	}

	out, err = run(t, "-o", "json", "decode", want)
	if err != nil {
		t.Fatalf("decode error = %v", err)
	}
	var res DecodeResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if res.Kind != "set" || res.Key != "k" || !res.HasData || res.Data != "v" {
		t.Errorf("decode = %+v", res)
	}
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown kind", []string{"encode", "put", "k"}},
		{"set without value", []string{"encode", "set", "k"}},
		{"bad hex value", []string{"encode", "--hex", "set", "k", "zz"}},
		{"hex and base64", []string{"encode", "--hex", "--base64", "set", "k", "00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDecode_EmptyAndGet(t *testing.T) {
	out, err := run(t, "-o", "json", "decode", "00016b")
	if err != nil {
		t.Fatalf("decode error = %v", err)
	}
	var res DecodeResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if res.Kind != "get" || res.HasData {
		t.Errorf("decode = %+v", res)
	}

	if _, err := run(t, "decode", "0001"); err == nil {
		t.Error("truncated key should fail")
	}
}

func TestStateCommands(t *testing.T) {
	store := service.NewStateStore()
	store.Initialize(map[string][]byte{"a": []byte("hello")})
	addr := startMessageServer(t, store)

	out, err := run(t, "--addr", addr, "-o", "json", "get", "a")
	if err != nil {
		t.Fatalf("get error = %v", err)
	}
	var got GetResult
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("get output %q: %v", out, err)
	}
	if !got.Present || got.Value != "hello" || got.Size != 5 {
		t.Errorf("get = %+v", got)
	}

	if _, err := run(t, "--addr", addr, "--ack", "set", "--hex", "b", "0102"); err != nil {
		t.Fatalf("set error = %v", err)
	}
	if _, err := run(t, "--addr", addr, "--ack", "set", "--empty", "e"); err != nil {
		t.Fatalf("set --empty error = %v", err)
	}
	snap := store.Snapshot()
	if string(snap["b"]) != "\x01\x02" {
		t.Errorf("snapshot[b] = %v", snap["b"])
	}
	if v, ok := snap["e"]; !ok || v == nil || len(v) != 0 {
		t.Errorf("snapshot[e] = %v, %v; want empty value", v, ok)
	}

	if _, err := run(t, "--addr", addr, "--ack", "remove", "b"); err != nil {
		t.Fatalf("remove error = %v", err)
	}
	if _, ok := store.Snapshot()["b"]; ok {
		t.Error("b should be removed")
	}
}

func TestAdminCommands(t *testing.T) {
	store := service.NewStateStore()
	store.Initialize(nil)
	if _, err := run(t, "--addr", startMessageServer(t, store), "--ack", "set", "k", "v"); err != nil {
		t.Fatalf("set error = %v", err)
	}
	sock := startLocalServer(t, store)

	out, err := run(t, "--socket", sock, "-o", "json", "status")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	if !strings.Contains(out, `"backend"`) {
		t.Errorf("status output = %s", out)
	}

	out, err = run(t, "--socket", sock, "snapshot")
	if err != nil {
		t.Fatalf("snapshot error = %v", err)
	}
	if !strings.Contains(out, "KEY") || !strings.Contains(out, "k") {
		t.Errorf("snapshot output = %s", out)
	}

	if _, err := run(t, "--socket", sock, "loglevel", "verbose"); err == nil {
		t.Error("invalid log level should fail")
	}
}
