package bruteforce

import (
	"sync"
	"testing"
	"time"
)

func testGuard(t *testing.T, cfg Config) *Guard {
	t.Helper()
	g, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestGuard_BlocksAfterThreshold(t *testing.T) {
	g := testGuard(t, Config{MaxFailures: 5, Window: time.Minute})

	for i := 0; i < 4; i++ {
		g.RecordFailure("10.0.0.1\x00alice")
		if blocked, _ := g.Check("10.0.0.1\x00alice"); blocked {
			t.Fatalf("blocked after only %d failures", i+1)
		}
	}

	g.RecordFailure("10.0.0.1\x00alice")
	blocked, retryAfter := g.Check("10.0.0.1\x00alice")
	if !blocked {
		t.Fatal("expected block after 5 failures")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Errorf("retryAfter = %v, want within (0, 1m]", retryAfter)
	}
}

func TestGuard_WindowExpiryUnblocks(t *testing.T) {
	g := testGuard(t, Config{MaxFailures: 3, Window: time.Minute})

	current := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		g.RecordFailure("key")
	}
	if blocked, _ := g.Check("key"); !blocked {
		t.Fatal("expected block")
	}

	// One second short of expiry: still blocked.
	current = current.Add(time.Minute - time.Second)
	if blocked, _ := g.Check("key"); !blocked {
		t.Error("expected block to hold until the window elapses")
	}

	// Window elapsed: clean slate.
	current = current.Add(time.Second)
	if blocked, _ := g.Check("key"); blocked {
		t.Error("expected unblock after window expiry")
	}
	if got := g.Failures("key"); got != 0 {
		t.Errorf("Failures() = %d after expiry, want 0", got)
	}
}

func TestGuard_FailureAfterExpiryStartsFreshWindow(t *testing.T) {
	g := testGuard(t, Config{MaxFailures: 3, Window: time.Minute})

	current := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		g.RecordFailure("key")
	}
	current = current.Add(2 * time.Minute)

	g.RecordFailure("key")
	if got := g.Failures("key"); got != 1 {
		t.Errorf("Failures() = %d in fresh window, want 1", got)
	}
	if blocked, _ := g.Check("key"); blocked {
		t.Error("single failure in a fresh window must not block")
	}
}

func TestGuard_KeysAreIndependent(t *testing.T) {
	g := testGuard(t, Config{MaxFailures: 2, Window: time.Minute})

	g.RecordFailure("a")
	g.RecordFailure("a")
	if blocked, _ := g.Check("a"); !blocked {
		t.Fatal("expected key a blocked")
	}
	if blocked, _ := g.Check("b"); blocked {
		t.Error("key b must be unaffected by key a")
	}
}

func TestGuard_FailsClosed(t *testing.T) {
	var g *Guard
	if blocked, _ := g.Check("key"); !blocked {
		t.Error("nil guard must report blocked")
	}

	g = testGuard(t, Config{})
	if blocked, _ := g.Check(""); !blocked {
		t.Error("empty key must report blocked")
	}
}

func TestGuard_Key(t *testing.T) {
	tests := []struct {
		mode KeyMode
		want string
	}{
		{KeyIP, "10.0.0.1"},
		{KeyUser, "alice"},
		{KeyIPUser, "10.0.0.1\x00alice"},
	}
	for _, tc := range tests {
		t.Run(string(tc.mode), func(t *testing.T) {
			g := testGuard(t, Config{KeyMode: tc.mode})
			if got := g.Key("10.0.0.1", "alice"); got != tc.want {
				t.Errorf("Key() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestGuard_Sweep(t *testing.T) {
	g := testGuard(t, Config{MaxFailures: 5, Window: time.Minute, Shards: 4})

	current := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return current }

	g.RecordFailure("old")
	current = current.Add(30 * time.Second)
	g.RecordFailure("fresh")

	current = current.Add(45 * time.Second) // "old" expired, "fresh" not
	g.Sweep()

	total := 0
	for _, sh := range g.shards {
		total += len(sh.entries)
	}
	if total != 1 {
		t.Errorf("expected 1 surviving entry after sweep, got %d", total)
	}
	if got := g.Failures("fresh"); got != 1 {
		t.Errorf("fresh entry lost by sweep: failures = %d", got)
	}
}

func TestGuard_ConcurrentRecording(t *testing.T) {
	g := testGuard(t, Config{MaxFailures: 1000000, Window: time.Hour, Shards: 8})

	const goroutines = 16
	const perGoroutine = 200

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			keys := []string{"shared", "solo-a", "solo-b", "solo-c"}
			for j := 0; j < perGoroutine; j++ {
				g.RecordFailure(keys[j%len(keys)])
				g.Check(keys[(j+n)%len(keys)])
			}
		}(i)
	}
	wg.Wait()

	want := goroutines * perGoroutine / 4
	for _, key := range []string{"shared", "solo-a", "solo-b", "solo-c"} {
		if got := g.Failures(key); got != want {
			t.Errorf("Failures(%q) = %d, want %d (lost increments)", key, got, want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults valid", Config{}, false},
		{"negative failures", Config{MaxFailures: -1}, true},
		{"negative window", Config{Window: -time.Second}, true},
		{"bad key mode", Config{KeyMode: "cookie"}, true},
		{"negative shards", Config{Shards: -2}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			cfg.ApplyDefaults()
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
