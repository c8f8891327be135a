// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFake_NowAdvance(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	fake := Fake(start)

	if !fake.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", fake.Now(), start)
	}

	fake.Advance(90 * time.Second)
	want := start.Add(90 * time.Second)
	if !fake.Now().Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", fake.Now(), want)
	}
}

func TestFake_After(t *testing.T) {
	fake := Fake(time.Unix(1000, 0))
	ch := fake.After(5 * time.Second)

	select {
	case <-ch:
		t.Fatal("After fired before Advance")
	default:
	}

	fake.Advance(5 * time.Second)
	select {
	case fired := <-ch:
		if !fired.Equal(time.Unix(1005, 0)) {
			t.Errorf("fired at %v, want %v", fired, time.Unix(1005, 0))
		}
	default:
		t.Fatal("After did not fire at its deadline")
	}
}

func TestFake_TickerRearms(t *testing.T) {
	fake := Fake(time.Unix(0, 0))
	ticker := fake.NewTicker(10 * time.Second)
	defer ticker.Stop()

	fake.Advance(10 * time.Second)
	<-ticker.C
	fake.Advance(10 * time.Second)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker did not re-arm")
	}
}

func TestFake_TickerStop(t *testing.T) {
	fake := Fake(time.Unix(0, 0))
	ticker := fake.NewTicker(time.Second)
	ticker.Stop()

	fake.Advance(5 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}
