package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/banners/internal/logger"
)

func validOptions() ConnectOptions {
	return ConnectOptions{
		Addr:           "127.0.0.1:1",
		DialTimeout:    50 * time.Millisecond,
		ReadTimeout:    50 * time.Millisecond,
		WriteTimeout:   50 * time.Millisecond,
		PoolSize:       1,
		ConnectTimeout: 200 * time.Millisecond,
		RetryInterval:  20 * time.Millisecond,
		MaxWait:        50 * time.Millisecond,
		PingTimeout:    50 * time.Millisecond,
		WarnThreshold:  1,
	}
}

func TestValidateOptions(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ConnectOptions)
		wantErr string
	}{
		{name: "valid", mutate: func(*ConnectOptions) {}},
		{name: "no addr", mutate: func(o *ConnectOptions) { o.Addr = "" }, wantErr: "Addr"},
		{name: "no connect timeout", mutate: func(o *ConnectOptions) { o.ConnectTimeout = 0 }, wantErr: "ConnectTimeout"},
		{name: "no retry interval", mutate: func(o *ConnectOptions) { o.RetryInterval = 0 }, wantErr: "RetryInterval"},
		{name: "no max wait", mutate: func(o *ConnectOptions) { o.MaxWait = 0 }, wantErr: "MaxWait"},
		{name: "no ping timeout", mutate: func(o *ConnectOptions) { o.PingTimeout = 0 }, wantErr: "PingTimeout"},
		{name: "negative warn threshold", mutate: func(o *ConnectOptions) { o.WarnThreshold = -1 }, wantErr: "WarnThreshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validOptions()
			tt.mutate(&opts)
			err := opts.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestNewGivesUpAfterConnectTimeout(t *testing.T) {
	start := time.Now()
	client, err := New(context.Background(), validOptions(), logger.NewNop())
	if err == nil {
		_ = client.Close()
		t.Fatal("New() should fail against a closed port")
	}
	if !strings.Contains(err.Error(), "redis unavailable") {
		t.Errorf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("New() took %v, should honour ConnectTimeout", elapsed)
	}
}

func TestNewHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := validOptions()
	opts.ConnectTimeout = time.Minute
	if _, err := New(ctx, opts, logger.NewNop()); err == nil {
		t.Fatal("New() should fail with a cancelled context")
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	err := ConnectOptions{}.Validate()
	if err == nil {
		t.Fatal("Validate() on zero options should fail")
	}
	for _, name := range []string{"Addr", "ConnectTimeout", "RetryInterval", "MaxWait", "PingTimeout"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("Validate() error %q does not mention %s", err, name)
		}
	}
}

func TestBackoffDoublesUpToMax(t *testing.T) {
	b := &backoff{wait: time.Second, max: 5 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := b.next(); got != w {
			t.Errorf("next() #%d = %v, want %v", i, got, w)
		}
	}
}

func TestClientOptions(t *testing.T) {
	opts := validOptions()
	opts.User = "svc"
	opts.RedisDB = 3
	co := opts.clientOptions()
	if co.Addr != opts.Addr || co.Username != "svc" || co.DB != 3 || co.PoolSize != 1 {
		t.Errorf("clientOptions() = %+v", co)
	}
}
