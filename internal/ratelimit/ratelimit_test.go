package ratelimit

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestRouteLimiterEnforcesQuota(t *testing.T) {
	redis := miniredis.RunT(t)
	client, err := NewClient(redis.Addr(), "", "test:ratelimit")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	login := client.PerMinute("login", 2)
	if !login.AllowIP("10.0.0.1") {
		t.Fatalf("first attempt should pass")
	}
	if !login.AllowIP("10.0.0.1") {
		t.Fatalf("second attempt should pass")
	}
	if login.AllowIP("10.0.0.1") {
		t.Fatalf("third attempt should be blocked")
	}
}

func TestRouteLimiterIsolatesRoutesAndClients(t *testing.T) {
	redis := miniredis.RunT(t)
	client, err := NewClient(redis.Addr(), "", "test:ratelimit")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	login := client.PerMinute("login", 1)
	sos := client.PerMinute("sos", 1)

	if !login.AllowIP("10.0.0.1") {
		t.Fatalf("first login should pass")
	}
	if login.AllowIP("10.0.0.1") {
		t.Fatalf("second login from same address should be blocked")
	}
	// Exhausting the login quota must not touch the SOS counter.
	if !sos.AllowIP("10.0.0.1") {
		t.Fatalf("sos quota must be independent of login quota")
	}
	// Nor quotas of other client addresses.
	if !login.AllowIP("10.0.0.2") {
		t.Fatalf("login quota must be counted per client address")
	}
}

func TestRouteLimiterFailsClosed(t *testing.T) {
	redis := miniredis.RunT(t)
	client, err := NewClient(redis.Addr(), "", "test:ratelimit")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	limiter := client.PerMinute("login", 5)
	redis.Close()
	if limiter.AllowIP("10.0.0.1") {
		t.Fatalf("limiter should fail closed on redis errors")
	}
}

func TestNilLimiterAllowsEverything(t *testing.T) {
	var client *Client
	if limiter := client.PerMinute("login", 5); !limiter.AllowIP("10.0.0.1") {
		t.Fatalf("nil client must yield an allow-all limiter")
	}

	redis := miniredis.RunT(t)
	connected, err := NewClient(redis.Addr(), "", "test:ratelimit")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if limiter := connected.PerMinute("login", 0); !limiter.AllowIP("10.0.0.1") {
		t.Fatalf("zero limit must yield an allow-all limiter")
	}
}

func TestNewClientRequiresAddr(t *testing.T) {
	if _, err := NewClient("", "", "test:ratelimit"); err == nil {
		t.Fatalf("expected error for empty redis addr")
	}
}
