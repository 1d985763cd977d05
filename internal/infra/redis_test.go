package infra

import (
	"context"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNewRedisClientEmptyURL(t *testing.T) {
	client, err := NewRedisClient(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client != nil {
		t.Fatalf("expected nil client when redis is not configured")
	}
	if got := RedisStatus(context.Background(), client); got != "DISABLED" {
		t.Fatalf("expected DISABLED got %s", got)
	}
}

func TestNewRedisClientPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	if got := RedisStatus(context.Background(), client); got != "OK" {
		t.Fatalf("expected OK got %s", got)
	}

	mr.Close()
	if got := RedisStatus(context.Background(), client); !strings.HasPrefix(got, "FAILED") {
		t.Fatalf("expected failure after server stop, got %s", got)
	}
}

func TestNewRedisClientBadURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "not a url"); err == nil {
		t.Fatalf("expected parse error")
	}
}
